package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	canonicalBitDepth   = 16
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	errInvalidWAV = errors.New("invalid WAV file")
	// errNonPCMWAV 浮点或压缩编码的 WAV，交给 ffmpeg 解码
	errNonPCMWAV = errors.New("WAV is not integer PCM")
)

// readWAVInts decodes an integer PCM WAV file and returns its raw buffer and bit depth.
func readWAVInts(path string) (*audio.IntBuffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, 0, errInvalidWAV
	}
	if decoder.WavAudioFormat != wavFormatPCM && decoder.WavAudioFormat != wavFormatExtensible {
		return nil, 0, errNonPCMWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, 0, fmt.Errorf("failed to read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, 0, errInvalidWAV
	}
	return buf, int(decoder.BitDepth), nil
}

// writeWAVInts 以指定位深写出整型 PCM 数据
func writeWAVInts(path string, buf *audio.IntBuffer, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	enc := wav.NewEncoder(f, buf.Format.SampleRate, bitDepth, buf.Format.NumChannels, wavFormatPCM)
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("failed to write WAV data: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("failed to finalize WAV header: %w", err)
	}
	return f.Close()
}

// ReadWAV decodes a WAV file into a float buffer.
func ReadWAV(path string) (*Buffer, error) {
	buf, depth, err := readWAVInts(path)
	if err != nil {
		return nil, err
	}

	data := make([]float64, len(buf.Data))
	if depth == 8 {
		// 8 位 WAV 为无符号
		for i, v := range buf.Data {
			data[i] = float64(v-128) / 128
		}
	} else {
		scale := float64(int64(1) << (depth - 1))
		for i, v := range buf.Data {
			data[i] = float64(v) / scale
		}
	}

	return &Buffer{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Data:       data,
	}, nil
}

// WriteWAV writes b as 16-bit PCM.
func WriteWAV(path string, b *Buffer) error {
	ints := make([]int, len(b.Data))
	for i, v := range b.Data {
		ints[i] = quantize16(v)
	}
	return writeWAVInts(path, &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: b.Channels, SampleRate: b.SampleRate},
		Data:           ints,
		SourceBitDepth: canonicalBitDepth,
	}, canonicalBitDepth)
}

func quantize16(v float64) int {
	v = math.Round(v * 32767)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int(v)
}

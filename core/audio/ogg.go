package audio

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"
)

// ReadOgg decodes an Ogg Vorbis file into a float buffer.
func ReadOgg(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decoder, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create OGG decoder: %w", err)
	}

	var samples []float64
	chunk := make([]float32, 16384)
	for {
		n, err := decoder.Read(chunk)
		for _, s := range chunk[:n] {
			samples = append(samples, float64(s))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read OGG data: %w", err)
		}
	}

	return &Buffer{
		SampleRate: decoder.SampleRate(),
		Channels:   decoder.Channels(),
		Data:       samples,
	}, nil
}

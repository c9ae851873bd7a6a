package audio

import (
	"math"
	"time"
)

// Buffer holds decoded samples in [-1, 1], interleaved when Channels > 1.
type Buffer struct {
	SampleRate int
	Channels   int
	Data       []float64
}

// Frames 返回每声道的采样点数
func (b *Buffer) Frames() int {
	if b == nil || b.Channels <= 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration 返回音频时长
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Downmix averages all channels of every frame into a mono buffer.
func Downmix(b *Buffer) *Buffer {
	if b.Channels <= 1 {
		return &Buffer{SampleRate: b.SampleRate, Channels: 1, Data: b.Data}
	}

	frames := b.Frames()
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		frame := b.Data[i*b.Channels : (i+1)*b.Channels]
		for _, s := range frame {
			sum += s
		}
		mono[i] = sum / float64(b.Channels)
	}
	return &Buffer{SampleRate: b.SampleRate, Channels: 1, Data: mono}
}

// ResampledLength 返回 round(length * to / from)
func ResampledLength(length, from, to int) int {
	if length <= 0 || from <= 0 || to <= 0 {
		return 0
	}
	return int(math.Round(float64(length) * float64(to) / float64(from)))
}

// Resample converts a mono buffer to rate `to` by linear interpolation at evenly
// spaced positions over [0, L-1]. No anti-aliasing filter is applied.
func Resample(b *Buffer, to int) *Buffer {
	if b.SampleRate == to {
		return b
	}
	return &Buffer{SampleRate: to, Channels: 1, Data: resampleLinear(b.Data, b.SampleRate, to)}
}

func resampleLinear(data []float64, from, to int) []float64 {
	n := ResampledLength(len(data), from, to)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	last := len(data) - 1
	if n == 1 || last == 0 {
		for i := range out {
			out[i] = data[0]
		}
		return out
	}

	step := float64(last) / float64(n-1)
	for i := range out {
		pos := float64(i) * step
		lo := int(pos)
		if lo >= last {
			out[i] = data[last]
			continue
		}
		frac := pos - float64(lo)
		out[i] = data[lo]*(1-frac) + data[lo+1]*frac
	}
	return out
}

package audio

import (
	"fmt"
	"path/filepath"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/core/utils"

	"github.com/go-audio/audio"
)

// DefaultSegmentSeconds 单次识别允许的最大时长
const DefaultSegmentSeconds = 60

// Segment is one contiguous slice of a canonical WAV file.
type Segment struct {
	Index      int
	Path       string
	Samples    int
	SampleRate int
}

// Duration 返回分段时长
func (s Segment) Duration() time.Duration {
	if s.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(s.Samples) / float64(s.SampleRate) * float64(time.Second))
}

// SegmentPath returns the deterministic file name of segment index.
func SegmentPath(path string, index int) string {
	return fmt.Sprintf("%s.segment_%d.wav", path, index)
}

// Split cuts the WAV at path into consecutive chunks of maxSeconds*sampleRate
// frames. The last chunk may be shorter but is never empty. Samples are copied
// without re-quantization so the chunks concatenate back to the original.
func Split(path string, maxSeconds int) ([]Segment, int, error) {
	const op = "split"
	if maxSeconds <= 0 {
		maxSeconds = DefaultSegmentSeconds
	}

	buf, depth, err := readWAVInts(path)
	if err != nil {
		return nil, 0, apperr.Wrapf(apperr.NormalizationFailure, op, err, "cannot read %s", filepath.Base(path))
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}
	rate := buf.Format.SampleRate
	frames := len(buf.Data) / channels
	if frames == 0 || rate <= 0 {
		return nil, 0, apperr.New(apperr.NormalizationFailure, op, "audio is empty: "+filepath.Base(path))
	}

	chunk := maxSeconds * rate
	segments := make([]Segment, 0, (frames+chunk-1)/chunk)
	for start, index := 0, 0; start < frames; start, index = start+chunk, index+1 {
		end := start + chunk
		if end > frames {
			end = frames
		}

		segPath := SegmentPath(path, index)
		part := &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: channels, SampleRate: rate},
			Data:           buf.Data[start*channels : end*channels],
			SourceBitDepth: depth,
		}
		if err := writeWAVInts(segPath, part, depth); err != nil {
			utils.RemoveFile(segPath)
			for _, s := range segments {
				utils.RemoveFile(s.Path)
			}
			return nil, 0, apperr.Wrapf(apperr.NormalizationFailure, op, err, "cannot write segment %d", index)
		}

		segments = append(segments, Segment{
			Index:      index,
			Path:       segPath,
			Samples:    end - start,
			SampleRate: rate,
		})
	}
	return segments, len(segments), nil
}

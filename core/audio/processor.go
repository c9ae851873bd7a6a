package audio

import "context"

// Processor defines the external decode operations the pipeline relies on.
type Processor interface {
	// ExtractAudio pulls the audio track of a video into a compressed mono file.
	ExtractAudio(ctx context.Context, videoPath, outputPath string) error
	// DecodeToWAV materializes an audio-only PCM WAV. sampleRate 0 keeps the source rate.
	DecodeToWAV(ctx context.Context, inputPath, outputPath string, sampleRate int) error
	GetAudioDuration(ctx context.Context, inputFile string) (float64, error)
}

package audio

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"AudioScribe/core/apperr"
	"AudioScribe/core/utils"
)

type fakeRunner struct {
	name   string
	args   []string
	result utils.CommandResult
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (utils.CommandResult, error) {
	f.name = name
	f.args = args
	return f.result, f.err
}

func TestExtractAudioArgs(t *testing.T) {
	runner := &fakeRunner{}
	p := NewFFmpegProcessorWithRunner("", runner)
	out := filepath.Join(t.TempDir(), "nested", "clip.mp3")

	if err := p.ExtractAudio(context.Background(), "clip.mp4", out); err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}
	if runner.name != "ffmpeg" {
		t.Fatalf("binary = %q", runner.name)
	}
	want := "-i clip.mp4 -vn -ac 1 -codec:a libmp3lame -q:a 2 -ar 44100 -y " + out
	if got := strings.Join(runner.args, " "); got != want {
		t.Fatalf("args = %q\nwant  %q", got, want)
	}
}

func TestExtractAudioFailureCarriesStderr(t *testing.T) {
	runner := &fakeRunner{
		result: utils.CommandResult{Stderr: "clip.mp4: Invalid data found when processing input\n", ExitCode: 1},
		err:    errors.New("exit status 1"),
	}
	p := NewFFmpegProcessorWithRunner("ffmpeg", runner)

	err := p.ExtractAudio(context.Background(), "clip.mp4", filepath.Join(t.TempDir(), "clip.mp3"))
	if !apperr.Is(err, apperr.ExtractionFailure) {
		t.Fatalf("err = %v, want ExtractionFailure", err)
	}
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || !strings.Contains(appErr.Detail, "Invalid data") {
		t.Fatalf("stderr missing from error: %#v", err)
	}
}

func TestDecodeToWAVSampleRate(t *testing.T) {
	runner := &fakeRunner{}
	p := NewFFmpegProcessorWithRunner("ffmpeg", runner)
	out := filepath.Join(t.TempDir(), "a.wav")

	if err := p.DecodeToWAV(context.Background(), "a.m4a", out, 16000); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(runner.args, " "); !strings.Contains(got, "-acodec pcm_s16le -ar 16000 -f wav -y "+out) {
		t.Fatalf("args = %q", got)
	}

	if err := p.DecodeToWAV(context.Background(), "a.m4a", out, 0); err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(runner.args, " "); strings.Contains(got, "-ar") {
		t.Fatalf("rate 0 must keep source rate, args = %q", got)
	}

	runner.err = errors.New("exit status 1")
	if err := p.DecodeToWAV(context.Background(), "a.m4a", out, 0); !apperr.Is(err, apperr.NormalizationFailure) {
		t.Fatalf("err = %v, want NormalizationFailure", err)
	}
}

func TestGetAudioDuration(t *testing.T) {
	runner := &fakeRunner{result: utils.CommandResult{Stdout: `{"format":{"duration":"12.500000"}}`}}
	p := NewFFmpegProcessorWithRunner("/opt/bin/ffmpeg", runner)

	d, err := p.GetAudioDuration(context.Background(), "a.mp3")
	if err != nil {
		t.Fatal(err)
	}
	if d != 12.5 {
		t.Fatalf("duration = %v", d)
	}
	if runner.name != "/opt/bin/ffprobe" {
		t.Fatalf("ffprobe path = %q", runner.name)
	}

	runner.result.Stdout = `{"format":{}}`
	if _, err := p.GetAudioDuration(context.Background(), "a.mp3"); err == nil {
		t.Fatal("missing duration should fail")
	}
}

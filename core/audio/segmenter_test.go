package audio

import (
	"os"
	"path/filepath"
	"testing"

	"AudioScribe/core/apperr"
)

func writeRamp(t *testing.T, path string, rate, frames int) {
	t.Helper()
	data := make([]float64, frames)
	for i := range data {
		data[i] = float64(i%2000)/1000 - 1
	}
	if err := WriteWAV(path, &Buffer{SampleRate: rate, Channels: 1, Data: data}); err != nil {
		t.Fatal(err)
	}
}

func TestSplitCountsAndReconstruction(t *testing.T) {
	const rate = 800
	cases := []struct {
		seconds, max, wantCount, wantLast int
	}{
		{150, 60, 3, 30},
		{120, 60, 2, 60},
		{10, 60, 1, 10},
		{61, 60, 2, 1},
	}
	for _, c := range cases {
		path := filepath.Join(t.TempDir(), "canon.wav")
		writeRamp(t, path, rate, c.seconds*rate)
		original, _, err := readWAVInts(path)
		if err != nil {
			t.Fatal(err)
		}

		segments, total, err := Split(path, c.max)
		if err != nil {
			t.Fatalf("Split(%ds): %v", c.seconds, err)
		}
		if total != c.wantCount || len(segments) != total {
			t.Fatalf("%ds: %d segments, want %d", c.seconds, total, c.wantCount)
		}

		var joined []int
		for i, s := range segments {
			if s.Index != i || s.Path != SegmentPath(path, i) {
				t.Fatalf("segment %d = %+v", i, s)
			}
			want := c.max * rate
			if i == total-1 {
				want = c.wantLast * rate
			}
			if s.Samples != want {
				t.Errorf("%ds: segment %d has %d samples, want %d", c.seconds, i, s.Samples, want)
			}
			buf, _, err := readWAVInts(s.Path)
			if err != nil {
				t.Fatal(err)
			}
			joined = append(joined, buf.Data...)
		}

		if len(joined) != len(original.Data) {
			t.Fatalf("%ds: reconstructed %d samples, want %d", c.seconds, len(joined), len(original.Data))
		}
		for i := range joined {
			if joined[i] != original.Data[i] {
				t.Fatalf("%ds: sample %d differs", c.seconds, i)
			}
		}
	}
}

func TestSplitMissingFile(t *testing.T) {
	_, _, err := Split(filepath.Join(t.TempDir(), "none.wav"), 60)
	if !apperr.Is(err, apperr.NormalizationFailure) {
		t.Fatalf("err = %v", err)
	}
}

func TestSplitWriteFailureRemovesSegments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canon.wav")
	writeRamp(t, path, 100, 250)

	// 第二个分段路径被目录占用，写入失败
	if err := os.Mkdir(SegmentPath(path, 1), 0o755); err != nil {
		t.Fatal(err)
	}

	if _, _, err := Split(path, 1); !apperr.Is(err, apperr.NormalizationFailure) {
		t.Fatalf("err = %v", err)
	}
	if _, err := os.Stat(SegmentPath(path, 0)); !os.IsNotExist(err) {
		t.Fatal("segment 0 should have been removed")
	}
}

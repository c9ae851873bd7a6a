package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestKindOfWalksWrappedChain(t *testing.T) {
	base := Wrapf(ExtractionFailure, "extract", errors.New("exit status 1"), "ffmpeg failed")
	wrapped := fmt.Errorf("handler: %w", base)

	if got := KindOf(wrapped); got != ExtractionFailure {
		t.Fatalf("KindOf = %q, want %q", got, ExtractionFailure)
	}
	if !Is(wrapped, ExtractionFailure) {
		t.Fatal("Is should match wrapped kind")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("plain errors carry no kind")
	}
}

func TestErrorMessageIncludesDetail(t *testing.T) {
	err := &Error{Kind: ExtractionFailure, Op: "extract", Message: "ffmpeg failed", Detail: "Invalid data found"}
	msg := err.Error()
	if !strings.Contains(msg, "extract: ffmpeg failed") || !strings.Contains(msg, "Invalid data found") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		InputMissing:         http.StatusBadRequest,
		UnsupportedMediaType: http.StatusUnsupportedMediaType,
		NotFound:             http.StatusNotFound,
		RecognitionFailure:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		if got := HTTPStatus(New(kind, "op", "msg")); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}

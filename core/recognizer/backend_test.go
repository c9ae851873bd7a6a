package recognizer

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"AudioScribe/config"
	"AudioScribe/core/apperr"
	"AudioScribe/core/utils"
)

func TestParseResults(t *testing.T) {
	res, err := parseResults([]byte(` [{"text":"你好"},{"text":"世界"}]`))
	if err != nil || len(res) != 2 || res[1].Text != "世界" {
		t.Fatalf("array: %v %v", res, err)
	}
	res, err = parseResults([]byte(`{"text":"single"}`))
	if err != nil || len(res) != 1 || res[0].Text != "single" {
		t.Fatalf("object: %v %v", res, err)
	}
	res, err = parseResults([]byte(`[]`))
	if err != nil || len(res) != 0 {
		t.Fatalf("empty array: %v %v", res, err)
	}
	for _, bad := range []string{"", "   ", "null", "not json", `{"text":`, `[{"txt":"x"}]`, `{}`} {
		if _, err := parseResults([]byte(bad)); err == nil {
			t.Errorf("parseResults(%q) should fail", bad)
		}
	}
}

type scriptedRunner struct {
	name   string
	args   []string
	result utils.CommandResult
	err    error
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (utils.CommandResult, error) {
	r.name, r.args = name, args
	return r.result, r.err
}

func TestCommandBackendGenerate(t *testing.T) {
	runner := &scriptedRunner{result: utils.CommandResult{Stdout: `[{"text":"hello world"}]`}}
	b := NewCommandBackend("asr", Options{Model: "paraformer-zh", Punctuation: true}, runner)

	res, err := b.Generate(context.Background(), "/tmp/a.wav")
	if err != nil {
		t.Fatal(err)
	}
	if res[0].Text != "hello world" {
		t.Fatalf("res = %v", res)
	}
	if got := strings.Join(runner.args, " "); got != "--model paraformer-zh --audio /tmp/a.wav --punc" {
		t.Fatalf("args = %q", got)
	}

	b = NewCommandBackend("asr", Options{Model: "m"}, runner)
	b.Generate(context.Background(), "a.wav")
	if strings.Contains(strings.Join(runner.args, " "), "--punc") {
		t.Fatal("--punc passed with punctuation disabled")
	}
}

func TestCommandBackendFailures(t *testing.T) {
	runner := &scriptedRunner{
		result: utils.CommandResult{Stderr: "CUDA out of memory", ExitCode: 2},
		err:    errors.New("exit status 2"),
	}
	b := NewCommandBackend("asr", Options{}, runner)

	_, err := b.Generate(context.Background(), "a.wav")
	var appErr *apperr.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperr.RecognitionFailure || appErr.Detail != "CUDA out of memory" {
		t.Fatalf("err = %#v", err)
	}

	runner.err = nil
	runner.result = utils.CommandResult{Stdout: "Traceback (most recent call last)"}
	if _, err := b.Generate(context.Background(), "a.wav"); !apperr.Is(err, apperr.RecognitionFailure) {
		t.Fatalf("malformed output: %v", err)
	}
}

func TestCommandBackendLoadMissingExecutable(t *testing.T) {
	b := NewCommandBackend("definitely-not-a-real-recognizer-binary", Options{}, nil)
	if err := b.Load(context.Background()); !apperr.Is(err, apperr.BackendUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPBackend(t *testing.T) {
	var gotPunc, gotModel, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/asr":
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			gotPunc = r.FormValue("punc")
			gotModel = r.FormValue("model")
			f, _, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			gotFile = string(data)
			w.Write([]byte(`{"text":"识别结果"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "a.wav")
	os.WriteFile(audio, []byte("RIFF-data"), 0o644)

	b := NewHTTPBackend(srv.URL+"/asr/", Options{Model: "m1", Punctuation: true}, srv.Client())
	res, err := b.Generate(context.Background(), audio)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Text != "识别结果" {
		t.Fatalf("res = %v", res)
	}
	if gotPunc != "true" || gotModel != "m1" || gotFile != "RIFF-data" {
		t.Fatalf("form = punc:%q model:%q file:%q", gotPunc, gotModel, gotFile)
	}

	health := NewHTTPBackend(srv.URL, Options{}, srv.Client())
	if err := health.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestHTTPBackendErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	audio := filepath.Join(t.TempDir(), "a.wav")
	os.WriteFile(audio, []byte("x"), 0o644)

	b := NewHTTPBackend(srv.URL, Options{}, srv.Client())
	if err := b.Load(context.Background()); !apperr.Is(err, apperr.BackendUnavailable) {
		t.Fatalf("Load err = %v", err)
	}
	if _, err := b.Generate(context.Background(), audio); !apperr.Is(err, apperr.RecognitionFailure) {
		t.Fatalf("Generate err = %v", err)
	}
}

func TestFactory(t *testing.T) {
	cfg := config.Default()
	cfg.RecognizerBackend = "stub"
	factory, err := NewFactory(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewLoader(factory).Get(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	audio := filepath.Join(t.TempDir(), "seg.wav")
	os.WriteFile(audio, []byte("1234"), 0o644)
	res, err := b.Generate(context.Background(), audio)
	if err != nil || len(res) != 1 || res[0].Text != "[stub:paraformer-zh] seg.wav 4 bytes" {
		t.Fatalf("res = %v err = %v", res, err)
	}

	cfg.RecognizerBackend = "http"
	cfg.RecognizerURL = ""
	if _, err := NewFactory(cfg); err == nil {
		t.Fatal("http backend without URL should fail")
	}
	cfg.RecognizerBackend = "grpc"
	if _, err := NewFactory(cfg); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

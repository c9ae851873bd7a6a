package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"AudioScribe/core/apperr"
	"AudioScribe/logger"
)

// HTTPBackend posts audio to a recognition service as multipart/form-data.
type HTTPBackend struct {
	url    string
	opts   Options
	client *http.Client
}

// NewHTTPBackend 创建 HTTP 识别后端，client 为空时使用 30 分钟超时的默认客户端
func NewHTTPBackend(url string, opts Options, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	return &HTTPBackend{url: strings.TrimRight(url, "/"), opts: opts, client: client}
}

// Load GETs <url>/health and expects a 2xx response.
func (b *HTTPBackend) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"/health", nil)
	if err != nil {
		return apperr.Wrap(apperr.BackendUnavailable, "load backend", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return apperr.Wrapf(apperr.BackendUnavailable, "load backend", err, "recognizer service unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return apperr.New(apperr.BackendUnavailable, "load backend",
			fmt.Sprintf("recognizer health check returned %d", resp.StatusCode))
	}
	logger.Info("识别服务就绪", logger.String("url", b.url), logger.String("model", b.opts.Model))
	return nil
}

// Generate 上传音频并解析识别结果
func (b *HTTPBackend) Generate(ctx context.Context, audioPath string) ([]Result, error) {
	const op = "recognize"

	body, contentType, err := b.form(audioPath)
	if err != nil {
		return nil, apperr.Wrapf(apperr.IOFailure, op, err, "cannot read %s", filepath.Base(audioPath))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, body)
	if err != nil {
		return nil, apperr.Wrap(apperr.RecognitionFailure, op, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, apperr.Wrapf(apperr.RecognitionFailure, op, err, "recognizer request failed")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperr.Wrapf(apperr.RecognitionFailure, op, err, "cannot read recognizer response")
	}
	if resp.StatusCode >= 300 {
		return nil, &apperr.Error{
			Kind:    apperr.RecognitionFailure,
			Op:      op,
			Message: fmt.Sprintf("recognizer http %d", resp.StatusCode),
			Detail:  strings.TrimSpace(string(data)),
		}
	}

	results, err := parseResults(data)
	if err != nil {
		return nil, apperr.Wrap(apperr.RecognitionFailure, op, err)
	}
	return results, nil
}

func (b *HTTPBackend) form(audioPath string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", err
	}
	if err := mw.WriteField("punc", strconv.FormatBool(b.opts.Punctuation)); err != nil {
		return nil, "", err
	}
	if b.opts.Model != "" {
		if err := mw.WriteField("model", b.opts.Model); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &body, mw.FormDataContentType(), nil
}

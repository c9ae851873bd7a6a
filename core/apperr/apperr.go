package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind 错误分类，贯穿整个转录流水线
type Kind string

const (
	InputMissing         Kind = "input_missing"
	UnsupportedMediaType Kind = "unsupported_media_type"
	NotFound             Kind = "not_found"
	ExtractionFailure    Kind = "extraction_failure"
	NormalizationFailure Kind = "normalization_failure"
	BackendUnavailable   Kind = "backend_unavailable"
	RecognitionFailure   Kind = "recognition_failure"
	IOFailure            Kind = "io_failure"
)

// Error is a stage-aware failure. Detail carries external tool diagnostics (ffmpeg stderr).
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		msg = fmt.Sprintf("%s: %s", e.Op, msg)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s\n%s", msg, e.Detail)
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New 创建一个不包含底层错误的 Error
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap 用指定分类包装底层错误
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Wrapf 包装底层错误并附带说明
func Wrapf(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus 将错误分类映射为 HTTP 状态码
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case InputMissing:
		return http.StatusBadRequest
	case UnsupportedMediaType:
		return http.StatusUnsupportedMediaType
	case NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

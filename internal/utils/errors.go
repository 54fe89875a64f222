package utils

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeTimeout         Code = "TIMEOUT"
	CodeInternal        Code = "INTERNAL"
)

var codeStatus = map[Code]int{
	CodeInvalidArgument: http.StatusBadRequest,
	CodeNotFound:        http.StatusNotFound,
	CodeConflict:        http.StatusConflict,
	CodeUnavailable:     http.StatusServiceUnavailable,
	CodeTimeout:         http.StatusGatewayTimeout,
	CodeInternal:        http.StatusInternalServerError,
}

var (
	ErrNotFound = errors.New("not found")

	// ErrIncompleteUploadBatch: an upload batch is missing one of the two image tags.
	ErrIncompleteUploadBatch = errors.New("incomplete upload batch")

	// ErrImagesNotReady: a visual query arrived without a fresh, complete image pair.
	ErrImagesNotReady = errors.New("images not ready")
)

// sentinel errors that reach the edge without an AppError around them
var sentinelCodes = []struct {
	err  error
	code Code
}{
	{ErrNotFound, CodeNotFound},
	{ErrIncompleteUploadBatch, CodeInvalidArgument},
	{ErrImagesNotReady, CodeConflict},
}

// AppError carries a code for the edge, the failing operation, and a message safe to show callers.
type AppError struct {
	Code    Code
	Op      string // ex: "TalkService.UploadBatch"
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, 3)
	if e.Op != "" {
		parts = append(parts, e.Op)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	if len(parts) == 0 {
		return "error"
	}
	return strings.Join(parts, ": ")
}

func (e *AppError) Unwrap() error { return e.Err }

func E(code Code, op, msg string, err error) error {
	return &AppError{Code: code, Op: op, Message: msg, Err: err}
}

// Ef is E with a formatted message.
func Ef(code Code, op string, err error, format string, args ...any) error {
	return E(code, op, fmt.Sprintf(format, args...), err)
}

// CodeOf reports the code of the outermost AppError, then known sentinels, else CodeInternal.
func CodeOf(err error) Code {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

func HTTPStatus(err error) int {
	if s, ok := codeStatus[CodeOf(err)]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Public returns what may be shown to a caller. Wrapped causes never leave the process.
func Public(err error) (Code, string) {
	var ae *AppError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Code, ae.Message
	}
	code := CodeOf(err)
	return code, http.StatusText(codeStatus[code])
}

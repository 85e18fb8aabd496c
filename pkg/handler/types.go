package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/storage"
	"github.com/zenetia/zap/pkg/types"
)

// Context key types to avoid string collision in context values
type contextKey string

const (
	RequestIDContextKey contextKey = "requestId"
	StartTimeContextKey contextKey = "startTime"
	PrincipalContextKey contextKey = "principal"
)

// Custom error types for request validation
var (
	ErrNoFile          = errors.New("no file provided")
	ErrTooManyFiles    = errors.New("too many files provided")
	ErrUnsupportedFile = errors.New("unsupported file format")
	ErrInvalidParams   = errors.New("invalid request parameters")
)

// Response is the standardized API response envelope.
type Response struct {
	Success      bool   `json:"success"`
	StatusCode   int    `json:"statusCode,omitempty"`
	RequestID    string `json:"requestId,omitempty"`
	ProcessingMS int64  `json:"processingMs,omitempty"`

	// For successful responses
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`

	// For error responses
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorDetails string `json:"errorDetails,omitempty"`
}

// FileInfo describes a stored conversion output.
type FileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Format   string `json:"format"`
	MimeType string `json:"mime_type"`
}

// ConversionResponse is returned by every conversion endpoint.
type ConversionResponse struct {
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
	ConversionID string    `json:"conversion_id"`
	Status       string    `json:"status"`
	DownloadURL  string    `json:"download_url"`
	FileInfo     *FileInfo `json:"file_info,omitempty"`
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(RequestIDContextKey).(string); ok && id != "" {
		return id
	}
	return uuid.New().String()
}

func processingMS(r *http.Request) int64 {
	if start, ok := r.Context().Value(StartTimeContextKey).(time.Time); ok {
		return time.Since(start).Milliseconds()
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError logs the failure and emits the error envelope. Auth errors
// carry their own HTTP status; everything else uses the given fallback.
func writeError(w http.ResponseWriter, r *http.Request, err error, status int) {
	errCode := "internal_error"
	errMsg := "An internal error occurred"

	var authErr *types.AuthError
	switch {
	case errors.As(err, &authErr):
		status = authErr.Status()
		errCode = string(authErr.Kind)
		errMsg = "Authentication failed"
		if authErr.Kind == types.AuthServiceUnavailable {
			errMsg = "Authentication service unavailable"
		}
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
		errCode = "not_found"
		errMsg = "File not found"
	case errors.Is(err, ErrNoFile), errors.Is(err, ErrTooManyFiles),
		errors.Is(err, ErrUnsupportedFile), errors.Is(err, ErrInvalidParams):
		status = http.StatusBadRequest
		errCode = "invalid_request"
		errMsg = "Invalid request parameters"
	}

	reqID := requestID(r)
	slog.Error("Request error",
		slog.String("requestId", reqID),
		slog.String("path", r.URL.Path),
		slog.String("errorCode", errCode),
		slog.String("error", err.Error()),
		slog.Int("status", status))

	writeJSON(w, status, Response{
		Success:      false,
		StatusCode:   status,
		RequestID:    reqID,
		ProcessingMS: processingMS(r),
		ErrorCode:    errCode,
		Message:      errMsg,
		ErrorDetails: err.Error(),
	})
}

func mimeForExt(ext string) string {
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// fileExt returns the lowercased extension without the dot.
func fileExt(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// safeFilename reduces a client-supplied filename to its base name so it
// can never traverse out of the storage key space.
func safeFilename(name string) string {
	name = filepath.Base(filepath.Clean(name))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}

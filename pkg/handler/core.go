package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/config"
	"github.com/zenetia/zap/pkg/storage"
	"github.com/zenetia/zap/pkg/version"
)

// UploadResponse is returned by the generic upload endpoint.
type UploadResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	FileID      string `json:"file_id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	DownloadURL string `json:"download_url"`
}

// handleUpload stores a file as-is and hands back a download location.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", nil)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	src, err := fh.Open()
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to open upload: %w", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = src.Close()
	}()

	fileID := uuid.New().String()
	filename := safeFilename(fh.Filename)
	key := fileID + "/" + filename

	size, err := a.store.Save(r.Context(), key, src)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to store upload: %w", err), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success:     true,
		Message:     "File uploaded successfully",
		FileID:      fileID,
		Filename:    filename,
		Size:        size,
		DownloadURL: "/api/v1/core/download/" + key,
	})
}

// handleDownload streams a stored object back to the client.
func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("id") + "/" + r.PathValue("filename")

	obj, err := a.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, err, http.StatusNotFound)
			return
		}
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = obj.Close()
	}()

	filename := safeFilename(r.PathValue("filename"))
	w.Header().Set("Content-Type", mimeForExt(filepath.Ext(filename)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if _, err := io.Copy(w, obj); err != nil {
		slog.Error("Failed to stream download",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}

// FileValidation reports whether an upload is acceptable before any
// conversion work is spent on it.
type FileValidation struct {
	Valid    bool   `json:"valid"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
	Size     int64  `json:"size"`
	Category string `json:"category,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// handleValidate checks a file's format and size without converting it.
// An unsupported file is reported as invalid, not rejected.
func (a *API) handleValidate(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", nil)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	hubs := map[string][]string{
		"pdf":   a.cfg.SupportedPDFFormats,
		"image": a.cfg.SupportedImageFormats,
		"audio": a.cfg.SupportedAudioFormats,
		"video": a.cfg.SupportedVideoFormats,
	}

	result := FileValidation{
		Filename: safeFilename(fh.Filename),
		Format:   fileExt(fh.Filename),
		Size:     fh.Size,
	}

	if category := r.FormValue("category"); category != "" {
		formats, ok := hubs[category]
		if !ok {
			writeError(w, r, fmt.Errorf("%w: unknown category %q", ErrInvalidParams, category), http.StatusBadRequest)
			return
		}
		result.Category = category
		result.Valid = config.FormatSupported(formats, result.Format)
	} else {
		for _, category := range []string{"pdf", "image", "audio", "video"} {
			if config.FormatSupported(hubs[category], result.Format) {
				result.Category = category
				result.Valid = true
				break
			}
		}
	}

	if !result.Valid {
		result.Reason = fmt.Sprintf("format %q is not supported", result.Format)
	}

	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		StatusCode: http.StatusOK,
		RequestID:  requestID(r),
		Data:       result,
	})
}

// handleFormats lists the accepted input formats per hub.
func (a *API) handleFormats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{
		Success:    true,
		StatusCode: http.StatusOK,
		RequestID:  requestID(r),
		Data: map[string][]string{
			"pdf":   a.cfg.SupportedPDFFormats,
			"image": a.cfg.SupportedImageFormats,
			"audio": a.cfg.SupportedAudioFormats,
			"video": a.cfg.SupportedVideoFormats,
		},
	})
}

// handleHealth is the unauthenticated liveness probe.
func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": info.Version,
	})
}

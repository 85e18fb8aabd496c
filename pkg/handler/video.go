package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/config"
)

// handleVideoConvert transcodes into the requested container format.
func (a *API) handleVideoConvert(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedVideoFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	format := strings.ToLower(strings.TrimPrefix(r.FormValue("format"), "."))
	if format == "" || !config.FormatSupported(a.cfg.SupportedVideoFormats, format) {
		writeError(w, r, fmt.Errorf("%w: unsupported target format %q", ErrInvalidParams, format), http.StatusBadRequest)
		return
	}

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("converted_%s.%s", conversionID, format))

	if err := a.video.Convert(r.Context(), input, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Video converted successfully")
}

// handleVideoCompress re-encodes with a constant rate factor. Higher crf
// means smaller output.
func (a *API) handleVideoCompress(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedVideoFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	crf, err := formInt(r, "crf", 23)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("compressed_%s.%s", conversionID, fileExt(fh.Filename)))

	if err := a.video.Compress(r.Context(), input, output, crf); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Video compressed successfully")
}

// handleVideoTrim cuts a clip defined by start and duration seconds.
func (a *API) handleVideoTrim(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedVideoFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	start, err := formFloat(r, "start", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	duration, err := formFloat(r, "duration", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	if duration <= 0 {
		writeError(w, r, fmt.Errorf("%w: duration must be positive", ErrInvalidParams), http.StatusBadRequest)
		return
	}

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("trimmed_%s.%s", conversionID, fileExt(fh.Filename)))

	if err := a.video.Trim(r.Context(), input, output, start, duration); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Video trimmed successfully")
}

// handleVideoToGIF renders an animated GIF at the requested frame rate
// and width.
func (a *API) handleVideoToGIF(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedVideoFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	fps, err := formInt(r, "fps", 10)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	width, err := formInt(r, "width", 480)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("animated_%s.gif", conversionID))

	if err := a.video.ToGIF(r.Context(), input, output, fps, width); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Video converted to GIF successfully")
}

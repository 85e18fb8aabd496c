package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/config"
)

// handleAudioConvert transcodes into the requested format.
func (a *API) handleAudioConvert(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedAudioFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	format := strings.ToLower(strings.TrimPrefix(r.FormValue("format"), "."))
	if format == "" || !config.FormatSupported(a.cfg.SupportedAudioFormats, format) {
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

	if err := a.audio.Convert(r.Context(), input, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Audio converted successfully")
}

// handleAudioTrim cuts a clip defined by start and duration seconds.
func (a *API) handleAudioTrim(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedAudioFormats)
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

	if err := a.audio.Trim(r.Context(), input, output, start, duration); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Audio trimmed successfully")
}

// handleAudioMerge concatenates the uploaded tracks in order.
func (a *API) handleAudioMerge(w http.ResponseWriter, r *http.Request) {
	files, err := a.formFiles(r, "files", a.cfg.SupportedAudioFormats, 2)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	var inputs []string
	for _, fh := range files {
		path, cleanup, err := a.saveTempUpload(fh)
		if err != nil {
			writeError(w, r, err, http.StatusInternalServerError)
			return
		}
		defer cleanup()
		inputs = append(inputs, path)
	}

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("merged_%s.%s", conversionID, fileExt(files[0].Filename)))

	if err := a.audio.Merge(r.Context(), inputs, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Audio files merged successfully")
}

// handleAudioVolume adjusts loudness by the requested decibel delta.
func (a *API) handleAudioVolume(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedAudioFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	db, err := formFloat(r, "db", 0)
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
	output := a.tempOutputPath(fmt.Sprintf("volume_%s.%s", conversionID, fileExt(fh.Filename)))

	if err := a.audio.AdjustVolume(r.Context(), input, output, db); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Audio volume adjusted successfully")
}

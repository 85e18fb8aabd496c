package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/config"
)

// formInt parses an integer form value with a fallback for absent values.
func formInt(r *http.Request, field string, fallback int) (int, error) {
	v := r.FormValue(field)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, field)
	}
	return n, nil
}

func formFloat(r *http.Request, field string, fallback float64) (float64, error) {
	v := r.FormValue(field)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidParams, field)
	}
	return f, nil
}

// handleImageConvert re-encodes the image into the requested format.
func (a *API) handleImageConvert(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedImageFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	format := strings.ToLower(strings.TrimPrefix(r.FormValue("format"), "."))
	if format == "" || !config.FormatSupported(a.cfg.SupportedImageFormats, format) {
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

	if err := a.image.Convert(r.Context(), input, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Image converted successfully")
}

// handleImageResize scales the image; keep_aspect fits it inside the box.
func (a *API) handleImageResize(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedImageFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	width, err := formInt(r, "width", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	height, err := formInt(r, "height", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	keepAspect := r.FormValue("keep_aspect") != "false"

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	ext := fileExt(fh.Filename)
	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("resized_%s.%s", conversionID, ext))

	if err := a.image.Resize(r.Context(), input, output, width, height, keepAspect); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidParams, err), http.StatusBadRequest)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Image resized successfully")
}

// handleImageCrop cuts the requested rectangle out of the image.
func (a *API) handleImageCrop(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedImageFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	x, err := formInt(r, "x", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	y, err := formInt(r, "y", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	width, err := formInt(r, "width", 0)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}
	height, err := formInt(r, "height", 0)
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

	ext := fileExt(fh.Filename)
	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("cropped_%s.%s", conversionID, ext))

	if err := a.image.Crop(r.Context(), input, output, x, y, width, height); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidParams, err), http.StatusBadRequest)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Image cropped successfully")
}

// handleImageBackgroundRemove delegates to the external rembg tool.
func (a *API) handleImageBackgroundRemove(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedImageFormats)
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

	// rembg always outputs PNG to preserve transparency
	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("nobg_%s.png", conversionID))

	if err := a.image.RemoveBackground(r.Context(), input, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Background removed successfully")
}

// handleImageCompress re-encodes the image at the requested quality.
func (a *API) handleImageCompress(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedImageFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	quality, err := formInt(r, "quality", 75)
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

	ext := fileExt(fh.Filename)
	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("compressed_%s.%s", conversionID, ext))

	if err := a.image.Compress(r.Context(), input, output, quality); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidParams, err), http.StatusBadRequest)
		return
	}

	a.finishConversion(w, r, conversionID, output, "Image compressed successfully")
}

package handler

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/convert"
)

// handlePDFMerge merges two or more uploaded PDFs into one document.
func (a *API) handlePDFMerge(w http.ResponseWriter, r *http.Request) {
	files, err := a.formFiles(r, "files", a.cfg.SupportedPDFFormats, 2)
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
	output := a.tempOutputPath(fmt.Sprintf("merged_%s.pdf", conversionID))

	if err := a.pdf.Merge(r.Context(), inputs, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "PDFs merged successfully")
}

// handlePDFSplit extracts the requested pages ("1,3,5-10") into a new
// document.
func (a *API) handlePDFSplit(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedPDFFormats)
	if err != nil {
		writeError(w, r, err, http.StatusBadRequest)
		return
	}

	pages, err := convert.ParsePageSelection(r.FormValue("pages"))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", ErrInvalidParams, err), http.StatusBadRequest)
		return
	}

	input, cleanup, err := a.saveTempUpload(fh)
	if err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}
	defer cleanup()

	conversionID := uuid.New().String()
	output := a.tempOutputPath(fmt.Sprintf("split_%s.pdf", conversionID))

	if err := a.pdf.Split(r.Context(), input, output, pages); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "PDF split successfully")
}

// handlePDFCompress rewrites the document through the optimizer.
func (a *API) handlePDFCompress(w http.ResponseWriter, r *http.Request) {
	fh, err := a.formFile(r, "file", a.cfg.SupportedPDFFormats)
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
	output := a.tempOutputPath(fmt.Sprintf("compressed_%s.pdf", conversionID))

	if err := a.pdf.Compress(r.Context(), input, output); err != nil {
		writeError(w, r, err, http.StatusInternalServerError)
		return
	}

	a.finishConversion(w, r, conversionID, output, "PDF compressed successfully")
}

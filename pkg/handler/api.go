package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/zenetia/zap/pkg/config"
	"github.com/zenetia/zap/pkg/convert"
	"github.com/zenetia/zap/pkg/storage"
)

// API owns the HTTP surface of the converter service. Conversion services
// are stateless collaborators; all authentication state lives in the auth
// gate's validator.
type API struct {
	cfg   *config.Config
	store storage.Store
	pdf   *convert.PDFService
	image *convert.ImageService
	audio *convert.AudioService
	video *convert.VideoService
}

func NewAPI(cfg *config.Config, store storage.Store) *API {
	return &API{
		cfg:   cfg,
		store: store,
		pdf:   convert.NewPDFService(),
		image: convert.NewImageService(),
		audio: convert.NewAudioService(),
		video: convert.NewVideoService(),
	}
}

// Routes assembles the full router. Everything under /api/v1 requires a
// verified principal; the health check stays open for probes.
func (a *API) Routes(gate *AuthGate) http.Handler {
	protected := http.NewServeMux()

	protected.HandleFunc("GET /api/v1/auth/me", a.handleAuthMe)
	protected.HandleFunc("GET /api/v1/auth/session", a.handleAuthSession)
	protected.HandleFunc("POST /api/v1/auth/verify", a.handleAuthVerify)

	protected.HandleFunc("POST /api/v1/pdf/merge", a.handlePDFMerge)
	protected.HandleFunc("POST /api/v1/pdf/split", a.handlePDFSplit)
	protected.HandleFunc("POST /api/v1/pdf/compress", a.handlePDFCompress)

	protected.HandleFunc("POST /api/v1/image/convert", a.handleImageConvert)
	protected.HandleFunc("POST /api/v1/image/resize", a.handleImageResize)
	protected.HandleFunc("POST /api/v1/image/crop", a.handleImageCrop)
	protected.HandleFunc("POST /api/v1/image/background-remove", a.handleImageBackgroundRemove)
	protected.HandleFunc("POST /api/v1/image/compress", a.handleImageCompress)

	protected.HandleFunc("POST /api/v1/audio/convert", a.handleAudioConvert)
	protected.HandleFunc("POST /api/v1/audio/trim", a.handleAudioTrim)
	protected.HandleFunc("POST /api/v1/audio/merge", a.handleAudioMerge)
	protected.HandleFunc("POST /api/v1/audio/volume-adjust", a.handleAudioVolume)

	protected.HandleFunc("POST /api/v1/video/convert", a.handleVideoConvert)
	protected.HandleFunc("POST /api/v1/video/compress", a.handleVideoCompress)
	protected.HandleFunc("POST /api/v1/video/trim", a.handleVideoTrim)
	protected.HandleFunc("POST /api/v1/video/to-gif", a.handleVideoToGIF)

	protected.HandleFunc("POST /api/v1/core/upload", a.handleUpload)
	protected.HandleFunc("POST /api/v1/core/validate", a.handleValidate)
	protected.HandleFunc("GET /api/v1/core/download/{id}/{filename}", a.handleDownload)
	protected.HandleFunc("GET /api/v1/core/formats", a.handleFormats)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.handleHealth)
	mux.Handle("/api/v1/", Chain(protected,
		WithRequestID,
		WithLogging,
		WithBodyLimit(a.cfg.MaxUploadSize),
		gate.Middleware,
	))

	return mux
}

// saveTempUpload writes one multipart file into the scratch directory and
// returns its path plus a cleanup func.
func (a *API) saveTempUpload(fh *multipart.FileHeader) (string, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	if err := os.MkdirAll(a.cfg.TempDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s", uuid.New().String(), safeFilename(fh.Filename))
	path := filepath.Join(a.cfg.TempDir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	_, err = dst.ReadFrom(src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", nil, fmt.Errorf("failed to save upload: %w", err)
	}

	cleanup := func() {
		_ = os.Remove(path)
	}
	return path, cleanup, nil
}

// tempOutputPath builds a scratch path for a conversion output.
func (a *API) tempOutputPath(filename string) string {
	return filepath.Join(a.cfg.TempDir, filename)
}

// finishConversion moves a produced output file into the store and
// responds with the conversion envelope.
func (a *API) finishConversion(w http.ResponseWriter, r *http.Request, conversionID, outputPath, message string) {
	filename := filepath.Base(outputPath)

	f, err := os.Open(outputPath)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to open conversion output: %w", err), http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = f.Close()
		_ = os.Remove(outputPath)
	}()

	key := conversionID + "/" + filename
	size, err := a.store.Save(r.Context(), key, f)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to store conversion output: %w", err), http.StatusInternalServerError)
		return
	}

	ext := strings.TrimPrefix(filepath.Ext(filename), ".")
	writeJSON(w, http.StatusOK, ConversionResponse{
		Success:      true,
		Message:      message,
		ConversionID: conversionID,
		Status:       "completed",
		DownloadURL:  "/api/v1/core/download/" + key,
		FileInfo: &FileInfo{
			Filename: filename,
			Size:     size,
			Format:   ext,
			MimeType: mimeForExt("." + ext),
		},
	})
}

// formFile fetches the single expected multipart file and checks its
// extension against the allowed format list.
func (a *API) formFile(r *http.Request, field string, formats []string) (*multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(a.cfg.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	if len(files) > 1 {
		return nil, ErrTooManyFiles
	}

	fh := files[0]
	if formats != nil && !config.FormatSupported(formats, filepath.Ext(fh.Filename)) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, safeFilename(fh.Filename))
	}
	return fh, nil
}

// formFiles fetches a multi-file field with the same format check.
func (a *API) formFiles(r *http.Request, field string, formats []string, minCount int) ([]*multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(a.cfg.MaxUploadSize); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	files := r.MultipartForm.File[field]
	if len(files) < minCount {
		return nil, fmt.Errorf("%w: at least %d files required", ErrNoFile, minCount)
	}

	for _, fh := range files {
		if formats != nil && !config.FormatSupported(formats, filepath.Ext(fh.Filename)) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, safeFilename(fh.Filename))
		}
	}
	return files, nil
}

package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/heicbridge/service/internal/convert"
	"github.com/heicbridge/service/internal/response"
	"github.com/heicbridge/service/internal/scratch"
	"github.com/heicbridge/service/internal/storage"
)

// Limits bounds a single upload request.
type Limits struct {
	MaxFiles    int
	MaxFileSize int64
}

// Handler holds the HTTP handler for the upload endpoint.
type Handler struct {
	svc     *Service
	scratch *scratch.Store
	limits  Limits
	log     logrus.FieldLogger
}

// NewHandler creates a new upload Handler.
func NewHandler(svc *Service, store *scratch.Store, limits Limits, log logrus.FieldLogger) *Handler {
	return &Handler{svc: svc, scratch: store, limits: limits, log: log}
}

// Convert godoc
//
//	@Summary		Convert and store images
//	@Description	Accepts 1-5 image files. HEIC/HEIF files (by extension) are converted to JPEG, others are stored as-is. Each part's field name must be "<prefix>/<bucket>". Returns the public URLs in submission order.
//	@Tags			images
//	@Accept			mpfd
//	@Produce		json
//	@Param			prefix/bucket	formData	file	true	"Image file; the field name selects prefix and bucket"
//	@Success		200				{array}		string
//	@Failure		400				{object}	response.ErrorBody
//	@Failure		500				{object}	response.ErrorBody
//	@Router			/convert-heic [post]
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithField("request_id", chiMiddleware.GetReqID(r.Context()))

	area, err := h.scratch.Open()
	if err != nil {
		log.WithError(err).Error("could not open request area")
		response.InternalError(w)
		return
	}
	defer func() {
		if err := area.Cleanup(); err != nil {
			log.WithError(err).Warn("failed to clear request area")
			return
		}
		log.WithField("dir", area.Dir()).Debug("request area cleared")
	}()

	files, err := h.readFiles(r, area)
	if err != nil {
		h.fail(w, log, err)
		return
	}
	log.WithField("files", len(files)).Info("processing upload")

	stored, err := h.svc.Process(r.Context(), area, files)
	if err != nil {
		h.fail(w, log, err)
		return
	}

	urls := make([]string, len(stored))
	for i, obj := range stored {
		urls[i] = obj.URL
	}
	response.OK(w, urls)
}

// readFiles streams every file part into area and validates the whole set
// before anything is converted or stored.
func (h *Handler) readFiles(r *http.Request, area *scratch.Area) ([]IncomingFile, error) {
	mr, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, ErrNoFiles
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	var files []IncomingFile
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, bodyError(err)
		}

		f, err := h.savePart(part, area, len(files))
		_ = part.Close()
		if err != nil {
			return nil, err
		}
		if f != nil {
			files = append(files, *f)
		}
	}

	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	for _, f := range files {
		if _, err := ParseFieldKey(f.FieldKey); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// savePart returns nil for non-file form fields.
func (h *Handler) savePart(part *multipart.Part, area *scratch.Area, seen int) (*IncomingFile, error) {
	name := part.FileName()
	if name == "" {
		return nil, nil
	}
	if seen >= h.limits.MaxFiles {
		return nil, fmt.Errorf("%w: you can upload a maximum of %d files at a time", ErrTooManyFiles, h.limits.MaxFiles)
	}

	path, n, err := area.Save(part, h.limits.MaxFileSize)
	if errors.Is(err, scratch.ErrTooLarge) {
		return nil, fmt.Errorf("%w of %s: %q", ErrFileTooLarge, humanize.IBytes(uint64(h.limits.MaxFileSize)), name)
	}
	if err != nil {
		return nil, bodyError(err)
	}

	return &IncomingFile{
		Name:      name,
		MimeType:  part.Header.Get("Content-Type"),
		SizeBytes: n,
		FieldKey:  part.FormName(),
		Path:      path,
	}, nil
}

// bodyError classifies errors raised while reading the request body.
// Local filesystem failures are returned unchanged and end up as 500.
func bodyError(err error) error {
	var (
		maxErr  *http.MaxBytesError
		pathErr *fs.PathError
	)
	switch {
	case errors.As(err, &maxErr):
		return fmt.Errorf("%w: limit is %s", ErrBodyTooLarge, humanize.IBytes(uint64(maxErr.Limit)))
	case errors.As(err, &pathErr):
		return err
	default:
		return fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	var (
		convErr  *convert.ConversionError
		storeErr *storage.StoreError
	)
	switch {
	case IsValidation(err):
		log.WithError(err).Warn("rejected upload")
		response.BadRequest(w, err.Error())
	case errors.As(err, &convErr):
		log.WithError(err).Warn("conversion failed")
		response.BadRequest(w, err.Error())
	case errors.As(err, &storeErr):
		log.WithError(err).Error("storage failed")
		response.BadRequest(w, err.Error())
	default:
		log.WithError(err).Error("upload failed")
		response.InternalError(w)
	}
}

package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/samtoma/Headhunter-sub000/internal/api/response"
	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/internal/upload"
)

const (
	maxUploadBytes  = 256 << 20
	maxUploadMemory = 32 << 20
)

// Uploads is the upload session.
type Uploads interface {
	Snapshot() upload.Snapshot
	Start(ctx context.Context, files []backend.UploadFile, jobID int64) (upload.Snapshot, error)
	Dismiss(ctx context.Context, confirm upload.Confirmer) error
}

// NewStartUploadHandler returns POST /api/v1/uploads. The multipart form carries
// files[] and an optional job_id. Files are buffered in memory because the upload
// outlives this request; progress is followed via GET /uploads/current or the
// event stream.
func NewStartUploadHandler(u Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid multipart form", nil)
			return
		}
		defer r.MultipartForm.RemoveAll()

		var jobID int64
		if raw := r.FormValue("job_id"); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id < 0 {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "job_id must be a non-negative integer", nil)
				return
			}
			jobID = id
		}

		headers := r.MultipartForm.File[backend.UploadFilesField]
		if len(headers) == 0 {
			headers = r.MultipartForm.File["files"]
		}
		files, err := bufferFiles(headers)
		if err != nil {
			writeError(w, r, err)
			return
		}

		snap, err := u.Start(r.Context(), files, jobID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		response.Accepted(w, snap)
	}
}

func bufferFiles(headers []*multipart.FileHeader) ([]backend.UploadFile, error) {
	files := make([]backend.UploadFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		files = append(files, backend.UploadFile{
			Name:    fh.Filename,
			Size:    int64(len(data)),
			Content: bytes.NewReader(data),
		})
	}
	return files, nil
}

// NewUploadStatusHandler returns GET /api/v1/uploads/current.
func NewUploadStatusHandler(u Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, u.Snapshot())
	}
}

// NewDismissUploadHandler returns DELETE /api/v1/uploads/current[?confirm=true].
// Dismissing an upload in flight cancels it and needs the confirm flag.
func NewDismissUploadHandler(u Uploads) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		confirm := upload.ConfirmFunc(func(context.Context, string) bool { return confirmed(r) })
		if err := u.Dismiss(r.Context(), confirm); err != nil {
			writeError(w, r, err)
			return
		}
		response.JSON(w, u.Snapshot())
	}
}

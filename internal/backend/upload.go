package backend

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
)

// UploadFile is one résumé in a bulk upload. Size drives progress reporting.
type UploadFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// UploadRequest is the body of POST /cv/upload_bulk. JobID 0 uploads without assignment.
type UploadRequest struct {
	Files []UploadFile
	JobID int64
}

// UploadReceipt is the backend's acknowledgement that ingestion was accepted.
// Parsing continues server-side after this returns.
type UploadReceipt struct {
	Accepted int    `json:"accepted"`
	Message  string `json:"message,omitempty"`
}

// ProgressFunc receives the upload percentage (0-100). Calls are monotonic and
// never repeat a value.
type ProgressFunc func(percent int)

// UploadBulk streams the files as multipart form data and reports byte progress.
func (c *HTTPClient) UploadBulk(ctx context.Context, req UploadRequest, progress ProgressFunc) (*UploadReceipt, error) {
	tracker := newProgressTracker(totalSize(req.Files), progress)
	tracker.report(0)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, req, tracker))
	}()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/cv/upload_bulk", pr)
	if err != nil {
		pr.CloseWithError(err)
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.upload.Do(httpReq)
	if err != nil {
		pr.CloseWithError(err)
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	tracker.report(100)

	var receipt UploadReceipt
	if err := decodeResponse(resp, http.MethodPost, "/cv/upload_bulk", &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

// UploadFilesField is the multipart part name /cv/upload_bulk reads files from.
const UploadFilesField = "files[]"

func writeUploadForm(mw *multipart.Writer, req UploadRequest, tracker *progressTracker) error {
	if req.JobID != 0 {
		if err := mw.WriteField("job_id", strconv.FormatInt(req.JobID, 10)); err != nil {
			return err
		}
	}
	for _, f := range req.Files {
		part, err := mw.CreateFormFile(UploadFilesField, f.Name)
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, &countingReader{r: f.Content, tracker: tracker}); err != nil {
			return fmt.Errorf("reading %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}
	// Every byte is on the wire; the backend is parsing from here on.
	tracker.report(100)
	return nil
}

func totalSize(files []UploadFile) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

type progressTracker struct {
	mu     sync.Mutex
	total  int64
	sent   int64
	last   int
	notify ProgressFunc
}

func newProgressTracker(total int64, notify ProgressFunc) *progressTracker {
	return &progressTracker{total: total, notify: notify, last: -1}
}

func (t *progressTracker) add(n int) {
	t.mu.Lock()
	t.sent += int64(n)
	pct := 0
	if t.total > 0 {
		pct = int(t.sent * 100 / t.total)
	}
	if pct > 100 {
		pct = 100
	}
	t.mu.Unlock()
	t.report(pct)
}

func (t *progressTracker) report(pct int) {
	if t.notify == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if pct <= t.last {
		return
	}
	t.last = pct
	t.notify(pct)
}

type countingReader struct {
	r       io.Reader
	tracker *progressTracker
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.tracker.add(n)
	}
	return n, err
}

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Sentinel errors for backend failures.
var (
	// ErrNetwork means the request did not complete: connection failure or timeout.
	ErrNetwork = errors.New("backend unreachable")
	// ErrRejected means the backend answered with a non-2xx status.
	ErrRejected = errors.New("backend rejected request")
	// ErrNotFound is a 404 answer. It also matches ErrRejected.
	ErrNotFound = fmt.Errorf("%w: not found", ErrRejected)
)

// StatusError carries the status of a rejected request.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return ErrNotFound
	}
	return ErrRejected
}

// Client is the interface for the recruitment backend.
type Client interface {
	ListProfiles(ctx context.Context, req models.PageRequest) ([]models.Profile, error)
	PatchProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error)
	DeleteProfile(ctx context.Context, id int64) error

	PatchApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error)
	DeleteApplication(ctx context.Context, id int64) error

	ReprocessBulk(ctx context.Context, ids []int64) (*BatchResult, error)
	AssignBulk(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error)
	DeleteBulk(ctx context.Context, ids []int64) (*BatchResult, error)

	ListJobs(ctx context.Context) ([]models.Job, error)
	ListInterviews(ctx context.Context, applicationID int64) ([]models.Interview, error)
	Timeline(ctx context.Context, applicationID int64) ([]models.ActivityLogEntry, error)

	UploadBulk(ctx context.Context, req UploadRequest, progress ProgressFunc) (*UploadReceipt, error)

	Ready(ctx context.Context) error
}

// BatchResult is the aggregate answer of a batch command. Per-item outcomes are not reported.
type BatchResult struct {
	Processed int    `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// HTTPClient implements Client using the backend's JSON HTTP API.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	upload  *http.Client
}

// NewHTTPClient creates a new backend HTTP client. Uploads use their own, longer timeout.
func NewHTTPClient(baseURL, token string, timeout, uploadTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		upload:  &http.Client{Timeout: uploadTimeout},
	}
}

func (c *HTTPClient) ListProfiles(ctx context.Context, req models.PageRequest) ([]models.Profile, error) {
	q := req.Query
	params := url.Values{
		"cursor": {strconv.Itoa(req.Cursor)},
		"sort":   {string(q.Sort)},
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Department != "" {
		params.Set("department", q.Department)
	}
	if q.JobID != 0 {
		params.Set("job", strconv.FormatInt(q.JobID, 10))
	}

	var profiles []models.Profile
	if err := c.do(ctx, http.MethodGet, "/profiles?"+params.Encode(), nil, &profiles); err != nil {
		return nil, err
	}
	if profiles == nil {
		return []models.Profile{}, nil
	}
	return profiles, nil
}

func (c *HTTPClient) PatchProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error) {
	var p models.Profile
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/profiles/%d", id), patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *HTTPClient) DeleteProfile(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/cv/%d", id), nil, nil)
}

func (c *HTTPClient) PatchApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	var app models.Application
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/applications/%d", id), patch, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func (c *HTTPClient) DeleteApplication(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/applications/%d", id), nil, nil)
}

func (c *HTTPClient) ReprocessBulk(ctx context.Context, ids []int64) (*BatchResult, error) {
	var res BatchResult
	if err := c.do(ctx, http.MethodPost, "/cv/reprocess_bulk", ids, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) AssignBulk(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error) {
	body := struct {
		JobID int64   `json:"job_id"`
		CVIDs []int64 `json:"cv_ids"`
	}{JobID: jobID, CVIDs: ids}

	var apps []models.Application
	if err := c.do(ctx, http.MethodPost, "/jobs/bulk_assign", body, &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (c *HTTPClient) DeleteBulk(ctx context.Context, ids []int64) (*BatchResult, error) {
	body := struct {
		CVIDs []int64 `json:"cv_ids"`
	}{CVIDs: ids}

	var res BatchResult
	if err := c.do(ctx, http.MethodPost, "/cv/delete_bulk", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) ListJobs(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	if err := c.do(ctx, http.MethodGet, "/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *HTTPClient) ListInterviews(ctx context.Context, applicationID int64) ([]models.Interview, error) {
	var interviews []models.Interview
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/interviews/application/%d", applicationID), nil, &interviews); err != nil {
		return nil, err
	}
	return interviews, nil
}

func (c *HTTPClient) Timeline(ctx context.Context, applicationID int64) ([]models.ActivityLogEntry, error) {
	var entries []models.ActivityLogEntry
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/activity/application/%d/timeline", applicationID), nil, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: backend not ready (status %d)", ErrNetwork, resp.StatusCode)
	}
	return nil
}

// do sends one JSON request and decodes the response into out when out is non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	return decodeResponse(resp, method, path, out)
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeResponse(resp *http.Response, method, path string, out any) error {
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:  method,
			Path:    trimQuery(path),
			Code:    resp.StatusCode,
			Message: readDetail(resp.Body),
		}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", trimQuery(path), err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} message, if any.
func readDetail(r io.Reader) string {
	var body struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&body); err != nil {
		return ""
	}
	if s, ok := body.Detail.(string); ok {
		return s
	}
	return ""
}

func trimQuery(path string) string {
	p, _, _ := strings.Cut(path, "?")
	return p
}

// classifyError maps transport-level errors to ErrNetwork.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: request timed out: %v", ErrNetwork, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: request timed out: %v", ErrNetwork, err)
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

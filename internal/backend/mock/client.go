package mock

import (
	"context"
	"sync"

	"github.com/samtoma/Headhunter-sub000/internal/backend"
	"github.com/samtoma/Headhunter-sub000/pkg/models"
)

// Client satisfies backend.Client for testing. Unset funcs return zero values.
// Every call is recorded by method name.
type Client struct {
	ListProfilesFunc      func(ctx context.Context, req models.PageRequest) ([]models.Profile, error)
	PatchProfileFunc      func(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error)
	DeleteProfileFunc     func(ctx context.Context, id int64) error
	PatchApplicationFunc  func(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error)
	DeleteApplicationFunc func(ctx context.Context, id int64) error
	ReprocessBulkFunc     func(ctx context.Context, ids []int64) (*backend.BatchResult, error)
	AssignBulkFunc        func(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error)
	DeleteBulkFunc        func(ctx context.Context, ids []int64) (*backend.BatchResult, error)
	ListJobsFunc          func(ctx context.Context) ([]models.Job, error)
	ListInterviewsFunc    func(ctx context.Context, applicationID int64) ([]models.Interview, error)
	TimelineFunc          func(ctx context.Context, applicationID int64) ([]models.ActivityLogEntry, error)
	UploadBulkFunc        func(ctx context.Context, req backend.UploadRequest, progress backend.ProgressFunc) (*backend.UploadReceipt, error)
	ReadyFunc             func(ctx context.Context) error

	mu    sync.Mutex
	calls map[string]int
}

// NewClient returns an empty mock client.
func NewClient() *Client {
	return &Client{calls: make(map[string]int)}
}

// Calls returns how many times method was invoked.
func (m *Client) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Client) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

func (m *Client) ListProfiles(ctx context.Context, req models.PageRequest) ([]models.Profile, error) {
	m.record("ListProfiles")
	if m.ListProfilesFunc != nil {
		return m.ListProfilesFunc(ctx, req)
	}
	return []models.Profile{}, nil
}

func (m *Client) PatchProfile(ctx context.Context, id int64, patch models.ProfilePatch) (*models.Profile, error) {
	m.record("PatchProfile")
	if m.PatchProfileFunc != nil {
		return m.PatchProfileFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *Client) DeleteProfile(ctx context.Context, id int64) error {
	m.record("DeleteProfile")
	if m.DeleteProfileFunc != nil {
		return m.DeleteProfileFunc(ctx, id)
	}
	return nil
}

func (m *Client) PatchApplication(ctx context.Context, id int64, patch models.ApplicationPatch) (*models.Application, error) {
	m.record("PatchApplication")
	if m.PatchApplicationFunc != nil {
		return m.PatchApplicationFunc(ctx, id, patch)
	}
	return nil, nil
}

func (m *Client) DeleteApplication(ctx context.Context, id int64) error {
	m.record("DeleteApplication")
	if m.DeleteApplicationFunc != nil {
		return m.DeleteApplicationFunc(ctx, id)
	}
	return nil
}

func (m *Client) ReprocessBulk(ctx context.Context, ids []int64) (*backend.BatchResult, error) {
	m.record("ReprocessBulk")
	if m.ReprocessBulkFunc != nil {
		return m.ReprocessBulkFunc(ctx, ids)
	}
	return &backend.BatchResult{Processed: len(ids)}, nil
}

func (m *Client) AssignBulk(ctx context.Context, jobID int64, ids []int64) ([]models.Application, error) {
	m.record("AssignBulk")
	if m.AssignBulkFunc != nil {
		return m.AssignBulkFunc(ctx, jobID, ids)
	}
	return nil, nil
}

func (m *Client) DeleteBulk(ctx context.Context, ids []int64) (*backend.BatchResult, error) {
	m.record("DeleteBulk")
	if m.DeleteBulkFunc != nil {
		return m.DeleteBulkFunc(ctx, ids)
	}
	return &backend.BatchResult{Processed: len(ids)}, nil
}

func (m *Client) ListJobs(ctx context.Context) ([]models.Job, error) {
	m.record("ListJobs")
	if m.ListJobsFunc != nil {
		return m.ListJobsFunc(ctx)
	}
	return nil, nil
}

func (m *Client) ListInterviews(ctx context.Context, applicationID int64) ([]models.Interview, error) {
	m.record("ListInterviews")
	if m.ListInterviewsFunc != nil {
		return m.ListInterviewsFunc(ctx, applicationID)
	}
	return nil, nil
}

func (m *Client) Timeline(ctx context.Context, applicationID int64) ([]models.ActivityLogEntry, error) {
	m.record("Timeline")
	if m.TimelineFunc != nil {
		return m.TimelineFunc(ctx, applicationID)
	}
	return nil, nil
}

func (m *Client) UploadBulk(ctx context.Context, req backend.UploadRequest, progress backend.ProgressFunc) (*backend.UploadReceipt, error) {
	m.record("UploadBulk")
	if m.UploadBulkFunc != nil {
		return m.UploadBulkFunc(ctx, req, progress)
	}
	return &backend.UploadReceipt{Accepted: len(req.Files)}, nil
}

func (m *Client) Ready(ctx context.Context) error {
	m.record("Ready")
	if m.ReadyFunc != nil {
		return m.ReadyFunc(ctx)
	}
	return nil
}

// Compile-time check that Client implements backend.Client.
var _ backend.Client = (*Client)(nil)

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/services"
	"github.com/yungbote/transcoderd/internal/types"
)

func testLogger(tb testing.TB) *logger.Logger {
	tb.Helper()
	log, err := logger.New("dev")
	if err != nil {
		tb.Fatalf("logger.New: %v", err)
	}
	return log
}

type fakeJobService struct {
	jobs      map[string]*types.Job
	getErr    error
	list      []*types.Job
	listErr   error
	updated   map[string]services.UpdateJobInput
	updateJob *types.Job
	updateErr error
}

func newFakeJobService() *fakeJobService {
	return &fakeJobService{
		jobs:    map[string]*types.Job{},
		updated: map[string]services.UpdateJobInput{},
	}
}

func (f *fakeJobService) Get(ctx context.Context, jobID string) (*types.Job, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return job, nil
}

func (f *fakeJobService) List(ctx context.Context, offset, limit int) ([]*types.Job, error) {
	return f.list, f.listErr
}

func (f *fakeJobService) Update(ctx context.Context, jobID string, in services.UpdateJobInput) (*types.Job, error) {
	f.updated[jobID] = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updateJob != nil {
		return f.updateJob, nil
	}
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return job, nil
}

type fakePresetService struct {
	created   []services.CreatePresetInput
	createErr error
	presets   map[uuid.UUID]*types.Preset
	list      []*types.Preset
	listErr   error
	filter    repos.PresetFilter
	updated   map[uuid.UUID]services.UpdatePresetInput
	updateErr error
	deleted   []uuid.UUID
	deleteErr error
}

func newFakePresetService() *fakePresetService {
	return &fakePresetService{
		presets: map[uuid.UUID]*types.Preset{},
		updated: map[uuid.UUID]services.UpdatePresetInput{},
	}
}

func (f *fakePresetService) Create(ctx context.Context, in services.CreatePresetInput) (*types.Preset, error) {
	f.created = append(f.created, in)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &types.Preset{PresetID: uuid.New(), Name: in.Name, Pipeline: in.Pipeline}, nil
}

func (f *fakePresetService) Get(ctx context.Context, id uuid.UUID) (*types.Preset, error) {
	preset, ok := f.presets[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return preset, nil
}

func (f *fakePresetService) List(ctx context.Context, filter repos.PresetFilter, offset, limit int) ([]*types.Preset, error) {
	f.filter = filter
	return f.list, f.listErr
}

func (f *fakePresetService) Update(ctx context.Context, id uuid.UUID, in services.UpdatePresetInput) (*types.Preset, error) {
	f.updated[id] = in
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	preset, ok := f.presets[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	return preset, nil
}

func (f *fakePresetService) Delete(ctx context.Context, id uuid.UUID) (*types.Preset, error) {
	f.deleted = append(f.deleted, id)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	preset, ok := f.presets[id]
	if !ok {
		return nil, repos.ErrNotFound
	}
	delete(f.presets, id)
	return preset, nil
}

type fakePlaylistService struct {
	list    []*types.Playlist
	listErr error
	name    *string
}

func (f *fakePlaylistService) List(ctx context.Context, name *string, offset, limit int) ([]*types.Playlist, error) {
	f.name = name
	return f.list, f.listErr
}

type fakeDispatchService struct {
	submitted   []services.SubmitJobInput
	submitJob   *types.Job
	submitErr   error
	playlistIn  []services.CreatePlaylistInput
	receipt     *services.PlaylistReceipt
	playlistErr error
}

func (f *fakeDispatchService) Submit(ctx context.Context, in services.SubmitJobInput) (*types.Job, error) {
	f.submitted = append(f.submitted, in)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	if f.submitJob != nil {
		return f.submitJob, nil
	}
	return &types.Job{ID: uuid.New(), JobID: in.JobID, State: types.JobStateQueued}, nil
}

func (f *fakeDispatchService) CreatePlaylist(ctx context.Context, in services.CreatePlaylistInput) (*services.PlaylistReceipt, error) {
	f.playlistIn = append(f.playlistIn, in)
	if f.playlistErr != nil {
		return nil, f.playlistErr
	}
	if f.receipt != nil {
		return f.receipt, nil
	}
	return &services.PlaylistReceipt{PlaylistID: uuid.New(), InputS3Path: in.InputS3Path}, nil
}

func performJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, rec, &body)
	return body.Detail
}

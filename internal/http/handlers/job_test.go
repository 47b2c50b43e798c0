package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/services"
	"github.com/yungbote/transcoderd/internal/types"
)

func jobRouter(jobs *fakeJobService, dispatch *fakeDispatchService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewJobHandler(jobs, dispatch)
	r := gin.New()
	r.POST("/submit_job", h.SubmitJob)
	r.GET("/jobs", h.ListJobs)
	r.GET("/jobs/:job_id", h.GetJob)
	r.PUT("/jobs/:job_id", h.UpdateJob)
	return r
}

func TestSubmitJob(t *testing.T) {
	dispatch := &fakeDispatchService{}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"pipeline":       "filesrc ! fakesink",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, rec, &body)
	if body.JobID != "job-1" {
		t.Fatalf("job_id = %q, want job-1", body.JobID)
	}
	if len(dispatch.submitted) != 1 {
		t.Fatalf("submitted %d jobs, want 1", len(dispatch.submitted))
	}
	in := dispatch.submitted[0]
	if in.Pipeline == nil || *in.Pipeline != "filesrc ! fakesink" {
		t.Fatalf("pipeline not forwarded: %+v", in)
	}
	if in.PresetID != nil {
		t.Fatalf("unexpected preset id: %v", in.PresetID)
	}
}

func TestSubmitJobMissingFields(t *testing.T) {
	dispatch := &fakeDispatchService{}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{"job_id": "job-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if len(dispatch.submitted) != 0 {
		t.Fatalf("submission should not reach the service")
	}
}

func TestSubmitJobPresetID(t *testing.T) {
	presetID := uuid.New()
	dispatch := &fakeDispatchService{}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"preset_id":      presetID.String(),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	in := dispatch.submitted[0]
	if in.PresetID == nil || *in.PresetID != presetID {
		t.Fatalf("preset id not forwarded: %+v", in)
	}
}

func TestSubmitJobBadPresetID(t *testing.T) {
	dispatch := &fakeDispatchService{}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"preset_id":      "not-a-uuid",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "Preset not found" {
		t.Fatalf("detail = %q", got)
	}
}

func TestSubmitJobEmptyPresetIDTreatedAsAbsent(t *testing.T) {
	dispatch := &fakeDispatchService{submitErr: services.ErrPipelineRequired}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"preset_id":      "",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	if got := detailOf(t, rec); got != "Either preset_id or pipeline must be provided" {
		t.Fatalf("detail = %q", got)
	}
	if in := dispatch.submitted[0]; in.PresetID != nil {
		t.Fatalf("empty preset_id should be dropped, got %v", in.PresetID)
	}
}

func TestSubmitJobUnknownPreset(t *testing.T) {
	dispatch := &fakeDispatchService{submitErr: services.ErrPresetNotFound}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"preset_id":      uuid.New().String(),
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "Preset not found" {
		t.Fatalf("detail = %q", got)
	}
}

func TestSubmitJobDuplicate(t *testing.T) {
	dispatch := &fakeDispatchService{submitErr: repos.ErrDuplicate}
	r := jobRouter(newFakeJobService(), dispatch)

	rec := performJSON(t, r, http.MethodPost, "/submit_job", gin.H{
		"job_id":         "job-1",
		"input_s3_path":  "in.mp4",
		"output_s3_path": "out.mp4",
		"pipeline":       "filesrc ! fakesink",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var body struct {
		Detail []struct {
			Msg  string `json:"msg"`
			Type string `json:"type"`
		} `json:"detail"`
	}
	decodeBody(t, rec, &body)
	if len(body.Detail) != 1 || body.Detail[0].Type != "IntegrityError" {
		t.Fatalf("unexpected integrity error shape: %s", rec.Body.String())
	}
}

func TestListJobs(t *testing.T) {
	jobs := newFakeJobService()
	jobs.list = []*types.Job{
		{ID: uuid.New(), JobID: "job-1", State: types.JobStateQueued},
		{ID: uuid.New(), JobID: "job-2", State: types.JobStateCompleted},
	}
	r := jobRouter(jobs, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/jobs?skip=0&limit=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body []struct {
		JobID string `json:"job_id"`
	}
	decodeBody(t, rec, &body)
	if len(body) != 2 || body[0].JobID != "job-1" {
		t.Fatalf("unexpected list body: %s", rec.Body.String())
	}
}

func TestListJobsEmpty(t *testing.T) {
	r := jobRouter(newFakeJobService(), &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/jobs", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "No jobs found" {
		t.Fatalf("detail = %q", got)
	}
}

func TestListJobsPageValidation(t *testing.T) {
	cases := []struct {
		name  string
		query string
	}{
		{"negative skip", "?skip=-1"},
		{"zero limit", "?limit=0"},
		{"oversized limit", "?limit=101"},
		{"garbage skip", "?skip=abc"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			jobs := newFakeJobService()
			jobs.list = []*types.Job{{JobID: "job-1"}}
			r := jobRouter(jobs, &fakeDispatchService{})

			rec := performJSON(t, r, http.MethodGet, "/jobs"+tc.query, nil)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", rec.Code)
			}
		})
	}
}

func TestGetJob(t *testing.T) {
	jobs := newFakeJobService()
	jobs.jobs["job-1"] = &types.Job{ID: uuid.New(), JobID: "job-1", State: types.JobStateQueued}
	r := jobRouter(jobs, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/jobs/job-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	rec = performJSON(t, r, http.MethodGet, "/jobs/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "Job not found" {
		t.Fatalf("detail = %q", got)
	}
}

func TestUpdateJob(t *testing.T) {
	jobs := newFakeJobService()
	jobs.jobs["job-1"] = &types.Job{ID: uuid.New(), JobID: "job-1", State: types.JobStateCancelled}
	r := jobRouter(jobs, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodPut, "/jobs/job-1", gin.H{"state": types.JobStateCancelled})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	in, ok := jobs.updated["job-1"]
	if !ok || in.State == nil || *in.State != types.JobStateCancelled {
		t.Fatalf("state not forwarded: %+v", in)
	}
}

func TestUpdateJobIllegalTransition(t *testing.T) {
	jobs := newFakeJobService()
	jobs.updateErr = repos.ErrIllegalTransition
	r := jobRouter(jobs, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodPut, "/jobs/job-1", gin.H{"state": types.JobStateQueued})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestUpdateJobBadPresetID(t *testing.T) {
	r := jobRouter(newFakeJobService(), &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodPut, "/jobs/job-1", gin.H{"preset_id": "nope"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if got := detailOf(t, rec); got != "preset_id must be a valid UUID" {
		t.Fatalf("detail = %q", got)
	}
}

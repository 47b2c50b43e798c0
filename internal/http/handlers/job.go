package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/http/response"
	"github.com/yungbote/transcoderd/internal/services"
)

// SubmitJobIn is the submission body: the caller supplies either a raw
// pipeline or a preset to copy one from.
type SubmitJobIn struct {
	JobID        string  `json:"job_id" binding:"required"`
	InputS3Path  string  `json:"input_s3_path" binding:"required"`
	OutputS3Path string  `json:"output_s3_path" binding:"required"`
	Pipeline     *string `json:"pipeline"`
	PresetID     *string `json:"preset_id"`
}

// UpdateJobIn is a partial update; absent fields are untouched.
type UpdateJobIn struct {
	InputS3Path  *string `json:"input_s3_path"`
	OutputS3Path *string `json:"output_s3_path"`
	Pipeline     *string `json:"pipeline"`
	PresetID     *string `json:"preset_id"`
	State        *string `json:"state"`
	Error        *string `json:"error"`
	ErrorType    *string `json:"error_type"`
}

type JobHandler struct {
	jobs     services.JobService
	dispatch services.DispatchService
}

func NewJobHandler(jobs services.JobService, dispatch services.DispatchService) *JobHandler {
	return &JobHandler{jobs: jobs, dispatch: dispatch}
}

// POST /submit_job
func (h *JobHandler) SubmitJob(c *gin.Context) {
	var in SubmitJobIn
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input := services.SubmitJobInput{
		JobID:        in.JobID,
		InputS3Path:  in.InputS3Path,
		OutputS3Path: in.OutputS3Path,
		Pipeline:     in.Pipeline,
	}
	if in.PresetID != nil && *in.PresetID != "" {
		id, err := uuid.Parse(*in.PresetID)
		if err != nil {
			// An id that cannot name any preset gets the same answer as a
			// missing one.
			response.Detail(c, http.StatusNotFound, "Preset not found")
			return
		}
		input.PresetID = &id
	}
	job, err := h.dispatch.Submit(c.Request.Context(), input)
	if err != nil {
		response.ServiceError(c, err, "Job not found")
		return
	}
	response.OK(c, gin.H{"job_id": job.JobID})
}

// GET /jobs
func (h *JobHandler) ListJobs(c *gin.Context) {
	skip, limit, ok := response.Page(c)
	if !ok {
		return
	}
	jobs, err := h.jobs.List(c.Request.Context(), skip, limit)
	if err != nil {
		response.ServiceError(c, err, "Job not found")
		return
	}
	if len(jobs) == 0 {
		response.Detail(c, http.StatusNotFound, "No jobs found")
		return
	}
	response.OK(c, jobs)
}

// GET /jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := h.jobs.Get(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		response.ServiceError(c, err, "Job not found")
		return
	}
	response.OK(c, job)
}

// PUT /jobs/:job_id
func (h *JobHandler) UpdateJob(c *gin.Context) {
	var in UpdateJobIn
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	input := services.UpdateJobInput{
		InputS3Path:  in.InputS3Path,
		OutputS3Path: in.OutputS3Path,
		Pipeline:     in.Pipeline,
		State:        in.State,
		Error:        in.Error,
		ErrorType:    in.ErrorType,
	}
	if in.PresetID != nil && *in.PresetID != "" {
		id, err := uuid.Parse(*in.PresetID)
		if err != nil {
			response.Detail(c, http.StatusUnprocessableEntity, "preset_id must be a valid UUID")
			return
		}
		input.PresetID = &id
	}
	job, err := h.jobs.Update(c.Request.Context(), c.Param("job_id"), input)
	if err != nil {
		response.ServiceError(c, err, "Job not found")
		return
	}
	response.OK(c, job)
}

package messages

// JobSubmissionMessage is pushed to the work queue when a job is dispatched.
// TranscodeOptions carries the GStreamer pipeline template with the
// {{input_file}}, {{output_file}} and {{progress}} placeholders unexpanded.
type JobSubmissionMessage struct {
	JobID            string `json:"job_id"`
	InputS3Path      string `json:"input_s3_path"`
	OutputS3Path     string `json:"output_s3_path"`
	TranscodeOptions string `json:"transcode_options"`
}

// JobProgressMessage is published by a worker while a transcode is running.
// Timestamp is unix seconds; Progress is a percentage in [0, 100].
type JobProgressMessage struct {
	Timestamp float64 `json:"timestamp"`
	WorkerID  string  `json:"worker_id"`
	JobID     string  `json:"job_id"`
	Progress  float64 `json:"progress"`
}

// JobResultMessage is published exactly once per finished attempt. The
// pointer fields are null for outcomes that do not carry them, such as a
// stall verdict synthesized on the API side.
type JobResultMessage struct {
	JobID        string   `json:"job_id"`
	Status       string   `json:"status"`
	Timestamp    *float64 `json:"timestamp"`
	WorkerID     *string  `json:"worker_id"`
	OutputS3Path *string  `json:"output_s3_path"`
	Error        *string  `json:"error"`
	ErrorType    *string  `json:"error_type"`
}

package messages

// ErrorKind is the error_type vocabulary carried by JobResultMessage.
// Consumers treat unrecognized values as KindUnknown.
type ErrorKind string

const (
	KindS3Download      ErrorKind = "s3_download"
	KindS3Upload        ErrorKind = "s3_upload"
	KindPipelineParse   ErrorKind = "pipeline_parse"
	KindPipelinePlay    ErrorKind = "pipeline_play"
	KindMidTranscode    ErrorKind = "mid_transcode"
	KindPipelineTimeout ErrorKind = "pipeline_timeout"
	KindUnknown         ErrorKind = "unknown"
)

func (k ErrorKind) String() string { return string(k) }

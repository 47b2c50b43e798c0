package services

import "errors"

var (
	// ErrPipelineRequired rejects a submission carrying neither a preset id
	// nor an inline pipeline template.
	ErrPipelineRequired = errors.New("either preset_id or pipeline must be provided")

	// ErrPresetNotFound rejects a submission or playlist naming a preset
	// that does not exist.
	ErrPresetNotFound = errors.New("preset not found")
)

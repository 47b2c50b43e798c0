package pipeline

import (
	"context"
	"errors"
	"strings"

	"github.com/yungbote/transcoderd/internal/messages"
)

// progressInstrumentation replaces the {{progress}} placeholder so pipelines
// report completion percentage without spamming per-buffer output.
const progressInstrumentation = "progressreport update-freq=10 silent=true"

// Engine runs a fully expanded pipeline description to completion. onProgress
// is invoked for every progress report the pipeline emits, with a percentage
// in [0, 100].
type Engine interface {
	Run(ctx context.Context, description string, onProgress func(percent float64)) error
}

// Expand substitutes the {{input_file}}, {{output_file}} and {{progress}}
// placeholders in a stored transcode options template.
func Expand(options, inputFile, outputFile string) string {
	expanded := strings.ReplaceAll(options, "{{output_file}}", outputFile)
	expanded = strings.ReplaceAll(expanded, "{{input_file}}", inputFile)
	return strings.ReplaceAll(expanded, "{{progress}}", progressInstrumentation)
}

// TranscodeError is a classified transcode failure. Kind is the wire
// vocabulary recorded on the job and reported to subscribers.
type TranscodeError struct {
	Kind messages.ErrorKind
	Err  error
}

func (e *TranscodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *TranscodeError) Unwrap() error { return e.Err }

func NewTranscodeError(kind messages.ErrorKind, err error) *TranscodeError {
	return &TranscodeError{Kind: kind, Err: err}
}

// Classify extracts the error kind from an engine failure. Anything that is
// not a TranscodeError counts as unknown.
func Classify(err error) messages.ErrorKind {
	var te *TranscodeError
	if errors.As(err, &te) {
		return te.Kind
	}
	return messages.KindUnknown
}

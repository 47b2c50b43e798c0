package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/logger"
)

const gstLaunchBinary = "gst-launch-1.0"

// percentDoubleRe pulls the percent-double field out of a bus message line
// printed by gst-launch-1.0 -m for the progressreport element.
var percentDoubleRe = regexp.MustCompile(`percent-double=\(double\)([0-9.]+(?:[eE][+-]?[0-9]+)?)`)

// GstLaunch runs pipelines through a gst-launch-1.0 subprocess. Bus messages
// are printed with -m and scanned for progress reports, and -e asks the
// process to flush an EOS through the pipeline when it is interrupted so
// muxers close their output cleanly.
type GstLaunch struct {
	log    *logger.Logger
	binary string
}

func NewGstLaunch(log *logger.Logger) (*GstLaunch, error) {
	path, err := exec.LookPath(gstLaunchBinary)
	if err != nil {
		return nil, fmt.Errorf("%s not found in PATH: %w", gstLaunchBinary, err)
	}
	return &GstLaunch{
		log:    log.With("component", "GstLaunch"),
		binary: path,
	}, nil
}

func (g *GstLaunch) Run(ctx context.Context, description string, onProgress func(percent float64)) error {
	args := append([]string{"-e", "-m"}, strings.Fields(description)...)
	cmd := exec.CommandContext(ctx, g.binary, args...)

	// Interrupt instead of kill on cancellation so -e can drain the pipeline,
	// with a hard stop if the process ignores it.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 10 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return NewTranscodeError(messages.KindUnknown, fmt.Errorf("Failed to open stdout pipe: %w", err))
	}

	g.log.Info("Starting transcoding", "pipeline", description)
	if err := cmd.Start(); err != nil {
		return NewTranscodeError(messages.KindUnknown, fmt.Errorf("Failed to start %s: %w", gstLaunchBinary, err))
	}

	reachedPlaying := false
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "Setting pipeline to PLAYING") {
			reachedPlaying = true
			continue
		}
		if pct, ok := progressPercent(line); ok {
			onProgress(pct)
		}
	}

	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr == nil {
		return nil
	}
	return g.classifyFailure(stderr.String(), reachedPlaying, waitErr)
}

// classifyFailure maps a non-zero exit to the wire error vocabulary using
// what the launch printed: a construction error means the description never
// parsed, an error before the pipeline reached PLAYING means it could not
// start, and anything later failed mid transcode.
func (g *GstLaunch) classifyFailure(stderr string, reachedPlaying bool, waitErr error) error {
	cause := waitErr
	if detail := firstErrorLine(stderr); detail != "" {
		cause = errors.New(detail)
	}
	kind := messages.KindMidTranscode
	switch {
	case strings.Contains(stderr, "pipeline could not be constructed"):
		kind = messages.KindPipelineParse
	case !reachedPlaying:
		kind = messages.KindPipelinePlay
	}
	g.log.Error("Pipeline failed", "kind", kind, "error", cause)
	return NewTranscodeError(kind, cause)
}

func progressPercent(line string) (float64, bool) {
	if !strings.Contains(line, "(element)") {
		return 0, false
	}
	m := percentDoubleRe.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return pct, true
}

func firstErrorLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
	}
	return strings.TrimSpace(strings.SplitN(stderr, "\n", 2)[0])
}

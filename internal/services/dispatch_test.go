package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/broker"
	"github.com/yungbote/transcoderd/internal/messages"
	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/repos/testutil"
	"github.com/yungbote/transcoderd/internal/types"
)

type publishedMessage struct {
	exchange string
	key      string
	payload  any
}

type fakePublisher struct {
	mu        sync.Mutex
	published []publishedMessage
	failWith  error
	onPublish func(exchange, key string, v any)
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, key string, v any) error {
	if f.failWith != nil {
		return f.failWith
	}
	if f.onPublish != nil {
		f.onPublish(exchange, key, v)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishedMessage{exchange: exchange, key: key, payload: v})
	return nil
}

func (f *fakePublisher) messages() []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishedMessage, len(f.published))
	copy(out, f.published)
	return out
}

type dispatchHarness struct {
	db        *gorm.DB
	jobs      repos.JobRepo
	presets   repos.PresetRepo
	playlists repos.PlaylistRepo
	publisher *fakePublisher
	svc       DispatchService
}

func newDispatchHarness(t *testing.T) *dispatchHarness {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	h := &dispatchHarness{
		db:        db,
		jobs:      repos.NewJobRepo(db, log),
		presets:   repos.NewPresetRepo(db, log),
		playlists: repos.NewPlaylistRepo(db, log),
		publisher: &fakePublisher{},
	}
	h.svc = NewDispatchService(db, log, h.jobs, h.presets, h.playlists, h.publisher)
	return h
}

func (h *dispatchHarness) seedPreset(t *testing.T, name, pipeline string) *types.Preset {
	t.Helper()
	preset, err := h.presets.Create(dbctx.Background(), &types.Preset{
		PresetID:      uuid.New(),
		Name:          name,
		InputType:     "mp4",
		OutputType:    "mp4",
		Resolution:    "1920x1080",
		VideoEncoding: "x265",
		VideoBitrate:  "1536",
		AudioEncoding: "aac",
		AudioBitrate:  "128",
		Pipeline:      pipeline,
	})
	if err != nil {
		t.Fatalf("seed preset: %v", err)
	}
	return preset
}

func strPtr(s string) *string { return &s }

func TestSubmitWithInlinePipeline(t *testing.T) {
	h := newDispatchHarness(t)

	// The worker drops unknown job ids, so the row must be visible before
	// the message is published.
	h.publisher.onPublish = func(exchange, key string, v any) {
		msg, ok := v.(messages.JobSubmissionMessage)
		if !ok {
			t.Fatalf("published payload is %T, want JobSubmissionMessage", v)
		}
		if _, err := h.jobs.GetByJobID(dbctx.Background(), msg.JobID); err != nil {
			t.Fatalf("job not persisted before publish: %v", err)
		}
	}

	job, err := h.svc.Submit(context.Background(), SubmitJobInput{
		JobID:        "job-1",
		InputS3Path:  "in.mp4",
		OutputS3Path: "out.mp4",
		Pipeline:     strPtr("filesrc ! fakesink"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.State != types.JobStateQueued {
		t.Fatalf("state = %q, want queued", job.State)
	}

	published := h.publisher.messages()
	if len(published) != 1 {
		t.Fatalf("published %d messages, want 1", len(published))
	}
	if published[0].exchange != "" || published[0].key != broker.JobsQueue {
		t.Fatalf("published to %q/%q, want default exchange/%s", published[0].exchange, published[0].key, broker.JobsQueue)
	}
	msg := published[0].payload.(messages.JobSubmissionMessage)
	if msg.JobID != "job-1" || msg.TranscodeOptions != "filesrc ! fakesink" {
		t.Fatalf("unexpected submission message: %+v", msg)
	}
}

func TestSubmitWithPreset(t *testing.T) {
	h := newDispatchHarness(t)
	preset := h.seedPreset(t, "1080p", "preset pipeline {{progress}}")

	job, err := h.svc.Submit(context.Background(), SubmitJobInput{
		JobID:        "job-1",
		InputS3Path:  "in.mp4",
		OutputS3Path: "out.mp4",
		PresetID:     &preset.PresetID,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Pipeline != "preset pipeline {{progress}}" {
		t.Fatalf("pipeline not adopted from preset: %q", job.Pipeline)
	}
	if job.PresetID == nil || *job.PresetID != preset.PresetID {
		t.Fatalf("preset id not recorded")
	}

	msg := h.publisher.messages()[0].payload.(messages.JobSubmissionMessage)
	if msg.TranscodeOptions != "preset pipeline {{progress}}" {
		t.Fatalf("submission carries %q, want the preset pipeline", msg.TranscodeOptions)
	}
}

func TestSubmitUnknownPreset(t *testing.T) {
	h := newDispatchHarness(t)
	missing := uuid.New()

	_, err := h.svc.Submit(context.Background(), SubmitJobInput{
		JobID:        "job-1",
		InputS3Path:  "in.mp4",
		OutputS3Path: "out.mp4",
		PresetID:     &missing,
	})
	if !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("Submit error = %v, want ErrPresetNotFound", err)
	}
	if _, err := h.jobs.GetByJobID(dbctx.Background(), "job-1"); !errors.Is(err, repos.ErrNotFound) {
		t.Fatalf("job row created despite rejected submission")
	}
	if len(h.publisher.messages()) != 0 {
		t.Fatalf("rejected submission reached the queue")
	}
}

func TestSubmitRequiresPipelineOrPreset(t *testing.T) {
	h := newDispatchHarness(t)

	_, err := h.svc.Submit(context.Background(), SubmitJobInput{
		JobID:        "job-1",
		InputS3Path:  "in.mp4",
		OutputS3Path: "out.mp4",
	})
	if !errors.Is(err, ErrPipelineRequired) {
		t.Fatalf("Submit error = %v, want ErrPipelineRequired", err)
	}
	if len(h.publisher.messages()) != 0 {
		t.Fatalf("invalid submission reached the queue")
	}
}

func TestSubmitDuplicateJobID(t *testing.T) {
	h := newDispatchHarness(t)

	in := SubmitJobInput{
		JobID:        "job-1",
		InputS3Path:  "in.mp4",
		OutputS3Path: "out.mp4",
		Pipeline:     strPtr("p"),
	}
	if _, err := h.svc.Submit(context.Background(), in); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := h.svc.Submit(context.Background(), in)
	if !errors.Is(err, repos.ErrDuplicate) {
		t.Fatalf("second Submit error = %v, want ErrDuplicate", err)
	}
	if got := len(h.publisher.messages()); got != 1 {
		t.Fatalf("published %d messages, want 1", got)
	}
}

func TestCreatePlaylistFanOut(t *testing.T) {
	h := newDispatchHarness(t)
	a := h.seedPreset(t, "preset-a", "pipeline-a")
	b := h.seedPreset(t, "preset-b", "pipeline-b")
	c := h.seedPreset(t, "preset-c", "pipeline-c")

	receipt, err := h.svc.CreatePlaylist(context.Background(), CreatePlaylistInput{
		Name:        "P1",
		InputS3Path: "in.mp4",
		Presets:     []uuid.UUID{a.PresetID, b.PresetID, c.PresetID},
	})
	if err != nil {
		t.Fatalf("CreatePlaylist: %v", err)
	}

	wantJobs := []string{"P1-0", "P1-1", "P1-2"}
	if len(receipt.Jobs) != len(wantJobs) {
		t.Fatalf("receipt jobs = %v", receipt.Jobs)
	}
	for i, want := range wantJobs {
		if receipt.Jobs[i] != want {
			t.Fatalf("receipt.Jobs[%d] = %q, want %q", i, receipt.Jobs[i], want)
		}
	}
	if receipt.InputS3Path != "in.mp4" {
		t.Fatalf("receipt input path = %q", receipt.InputS3Path)
	}

	pipelines := map[string]string{"P1-0": "pipeline-a", "P1-1": "pipeline-b", "P1-2": "pipeline-c"}
	presetIDs := map[string]uuid.UUID{"P1-0": a.PresetID, "P1-1": b.PresetID, "P1-2": c.PresetID}
	for jobID, wantPipeline := range pipelines {
		job, err := h.jobs.GetByJobID(dbctx.Background(), jobID)
		if err != nil {
			t.Fatalf("job %s not persisted: %v", jobID, err)
		}
		if job.Pipeline != wantPipeline {
			t.Fatalf("job %s pipeline = %q, want %q", jobID, job.Pipeline, wantPipeline)
		}
		wantOutput := fmt.Sprintf("%s/%s/%s.mp4", receipt.PlaylistID, presetIDs[jobID], jobID)
		if job.OutputS3Path != wantOutput {
			t.Fatalf("job %s output = %q, want %q", jobID, job.OutputS3Path, wantOutput)
		}
		if job.State != types.JobStateQueued {
			t.Fatalf("job %s state = %q, want queued", jobID, job.State)
		}
	}

	published := h.publisher.messages()
	if len(published) != 3 {
		t.Fatalf("published %d messages, want 3", len(published))
	}
	for _, p := range published {
		if p.key != broker.JobsQueue {
			t.Fatalf("playlist job published to %q", p.key)
		}
		msg := p.payload.(messages.JobSubmissionMessage)
		if !strings.HasPrefix(msg.JobID, "P1-") {
			t.Fatalf("unexpected job id on the wire: %q", msg.JobID)
		}
	}

	playlists, err := h.playlists.List(dbctx.Background(), nil, 0, 10)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(playlists) != 1 || len(playlists[0].Jobs) != 3 {
		t.Fatalf("playlist not persisted with its jobs")
	}
}

func TestCreatePlaylistUnknownPresetRollsBack(t *testing.T) {
	h := newDispatchHarness(t)
	a := h.seedPreset(t, "preset-a", "pipeline-a")

	_, err := h.svc.CreatePlaylist(context.Background(), CreatePlaylistInput{
		Name:        "P1",
		InputS3Path: "in.mp4",
		Presets:     []uuid.UUID{a.PresetID, uuid.New()},
	})
	if !errors.Is(err, ErrPresetNotFound) {
		t.Fatalf("CreatePlaylist error = %v, want ErrPresetNotFound", err)
	}

	if _, err := h.jobs.GetByJobID(dbctx.Background(), "P1-0"); !errors.Is(err, repos.ErrNotFound) {
		t.Fatalf("partial job row survived the rollback")
	}
	playlists, err := h.playlists.List(dbctx.Background(), nil, 0, 10)
	if err != nil {
		t.Fatalf("list playlists: %v", err)
	}
	if len(playlists) != 0 {
		t.Fatalf("playlist row survived the rollback")
	}
	if len(h.publisher.messages()) != 0 {
		t.Fatalf("rolled-back playlist reached the queue")
	}
}

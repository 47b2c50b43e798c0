package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/services"
	"github.com/yungbote/transcoderd/internal/types"
)

func playlistRouter(playlists *fakePlaylistService, dispatch *fakeDispatchService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewPlaylistHandler(playlists, dispatch)
	r := gin.New()
	r.GET("/playlists", h.ListPlaylists)
	r.POST("/playlists", h.CreatePlaylist)
	return r
}

func TestListPlaylistsShallow(t *testing.T) {
	playlist := &types.Playlist{
		ID:   uuid.New(),
		Name: "launch trailers",
		Jobs: []*types.Job{
			{ID: uuid.New(), JobID: "job-1"},
			{ID: uuid.New(), JobID: "job-2"},
		},
	}
	playlists := &fakePlaylistService{list: []*types.Playlist{playlist}}
	r := playlistRouter(playlists, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/playlists", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body []struct {
		PlaylistID string   `json:"playlist_id"`
		Name       string   `json:"name"`
		Jobs       []string `json:"jobs"`
	}
	decodeBody(t, rec, &body)
	if len(body) != 1 {
		t.Fatalf("got %d playlists, want 1", len(body))
	}
	if body[0].PlaylistID != playlist.ID.String() {
		t.Fatalf("playlist_id = %q, want surrogate id %q", body[0].PlaylistID, playlist.ID.String())
	}
	// The shallow view lists jobs by surrogate id, not external job_id.
	if len(body[0].Jobs) != 2 || body[0].Jobs[0] != playlist.Jobs[0].ID.String() {
		t.Fatalf("unexpected shallow jobs: %v", body[0].Jobs)
	}
}

func TestListPlaylistsDeep(t *testing.T) {
	playlist := &types.Playlist{
		ID:   uuid.New(),
		Name: "deep",
		Jobs: []*types.Job{{ID: uuid.New(), JobID: "job-1", State: types.JobStateQueued}},
	}
	playlists := &fakePlaylistService{list: []*types.Playlist{playlist}}
	r := playlistRouter(playlists, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/playlists?deep=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body []struct {
		Jobs []struct {
			JobID string `json:"job_id"`
			State string `json:"state"`
		} `json:"jobs"`
	}
	decodeBody(t, rec, &body)
	if len(body) != 1 || len(body[0].Jobs) != 1 || body[0].Jobs[0].JobID != "job-1" {
		t.Fatalf("unexpected deep body: %s", rec.Body.String())
	}
}

func TestListPlaylistsNameFilter(t *testing.T) {
	playlists := &fakePlaylistService{list: []*types.Playlist{{ID: uuid.New(), Name: "x"}}}
	r := playlistRouter(playlists, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/playlists?name=x", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if playlists.name == nil || *playlists.name != "x" {
		t.Fatalf("name filter not forwarded: %v", playlists.name)
	}
}

func TestListPlaylistsEmpty(t *testing.T) {
	r := playlistRouter(&fakePlaylistService{}, &fakeDispatchService{})

	rec := performJSON(t, r, http.MethodGet, "/playlists", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "No playlists found" {
		t.Fatalf("detail = %q", got)
	}
}

func TestCreatePlaylist(t *testing.T) {
	presetA, presetB := uuid.New(), uuid.New()
	dispatch := &fakeDispatchService{
		receipt: &services.PlaylistReceipt{
			PlaylistID:  uuid.New(),
			InputS3Path: "in.mp4",
			Jobs:        []string{"job-1", "job-2"},
		},
	}
	r := playlistRouter(&fakePlaylistService{}, dispatch)

	rec := performJSON(t, r, http.MethodPost, "/playlists", gin.H{
		"name":          "launch trailers",
		"input_s3_path": "in.mp4",
		"presets":       []string{presetA.String(), presetB.String()},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		PlaylistID  string   `json:"playlist_id"`
		InputS3Path string   `json:"input_s3_path"`
		Jobs        []string `json:"jobs"`
	}
	decodeBody(t, rec, &body)
	if body.InputS3Path != "in.mp4" || len(body.Jobs) != 2 {
		t.Fatalf("unexpected receipt: %s", rec.Body.String())
	}
	if len(dispatch.playlistIn) != 1 {
		t.Fatalf("dispatch called %d times, want 1", len(dispatch.playlistIn))
	}
	in := dispatch.playlistIn[0]
	if len(in.Presets) != 2 || in.Presets[0] != presetA || in.Presets[1] != presetB {
		t.Fatalf("preset order not preserved: %v", in.Presets)
	}
}

func TestCreatePlaylistBadPresetID(t *testing.T) {
	dispatch := &fakeDispatchService{}
	r := playlistRouter(&fakePlaylistService{}, dispatch)

	rec := performJSON(t, r, http.MethodPost, "/playlists", gin.H{
		"name":          "x",
		"input_s3_path": "in.mp4",
		"presets":       []string{"not-a-uuid"},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "Preset not found" {
		t.Fatalf("detail = %q", got)
	}
	if len(dispatch.playlistIn) != 0 {
		t.Fatalf("creation should not reach the service")
	}
}

func TestCreatePlaylistUnknownPreset(t *testing.T) {
	dispatch := &fakeDispatchService{playlistErr: services.ErrPresetNotFound}
	r := playlistRouter(&fakePlaylistService{}, dispatch)

	rec := performJSON(t, r, http.MethodPost, "/playlists", gin.H{
		"name":          "x",
		"input_s3_path": "in.mp4",
		"presets":       []string{uuid.New().String()},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := detailOf(t, rec); got != "Preset not found" {
		t.Fatalf("detail = %q", got)
	}
}

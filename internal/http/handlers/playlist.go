package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/http/response"
	"github.com/yungbote/transcoderd/internal/services"
	"github.com/yungbote/transcoderd/internal/types"
)

type CreatePlaylistIn struct {
	Name        string   `json:"name" binding:"required"`
	InputS3Path string   `json:"input_s3_path" binding:"required"`
	Presets     []string `json:"presets" binding:"required"`
}

// PlaylistShallowOut lists a playlist's jobs by surrogate id only.
type PlaylistShallowOut struct {
	PlaylistID string    `json:"playlist_id"`
	Name       string    `json:"name"`
	Jobs       []string  `json:"jobs"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type PlaylistHandler struct {
	playlists services.PlaylistService
	dispatch  services.DispatchService
}

func NewPlaylistHandler(playlists services.PlaylistService, dispatch services.DispatchService) *PlaylistHandler {
	return &PlaylistHandler{playlists: playlists, dispatch: dispatch}
}

// GET /playlists
func (h *PlaylistHandler) ListPlaylists(c *gin.Context) {
	skip, limit, ok := response.Page(c)
	if !ok {
		return
	}
	var name *string
	if v := c.Query("name"); v != "" {
		name = &v
	}
	playlists, err := h.playlists.List(c.Request.Context(), name, skip, limit)
	if err != nil {
		response.ServiceError(c, err, "Playlist not found")
		return
	}
	if len(playlists) == 0 {
		response.Detail(c, http.StatusNotFound, "No playlists found")
		return
	}
	if deep, _ := strconv.ParseBool(c.DefaultQuery("deep", "false")); deep {
		response.OK(c, playlists)
		return
	}
	response.OK(c, shallowPlaylists(playlists))
}

// POST /playlists
func (h *PlaylistHandler) CreatePlaylist(c *gin.Context) {
	var in CreatePlaylistIn
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	presets := make([]uuid.UUID, 0, len(in.Presets))
	for _, raw := range in.Presets {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Detail(c, http.StatusNotFound, "Preset not found")
			return
		}
		presets = append(presets, id)
	}
	receipt, err := h.dispatch.CreatePlaylist(c.Request.Context(), services.CreatePlaylistInput{
		Name:        in.Name,
		InputS3Path: in.InputS3Path,
		Presets:     presets,
	})
	if err != nil {
		response.ServiceError(c, err, "Playlist not found")
		return
	}
	response.OK(c, receipt)
}

func shallowPlaylists(playlists []*types.Playlist) []PlaylistShallowOut {
	out := make([]PlaylistShallowOut, 0, len(playlists))
	for _, playlist := range playlists {
		jobs := make([]string, 0, len(playlist.Jobs))
		for _, job := range playlist.Jobs {
			jobs = append(jobs, job.ID.String())
		}
		out = append(out, PlaylistShallowOut{
			PlaylistID: playlist.ID.String(),
			Name:       playlist.Name,
			Jobs:       jobs,
			CreatedAt:  playlist.CreatedAt,
			UpdatedAt:  playlist.UpdatedAt,
		})
	}
	return out
}

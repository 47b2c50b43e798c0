package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/transcoderd/internal/http/response"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/services"
)

type CreatePresetIn struct {
	Name          string `json:"name" binding:"required"`
	InputType     string `json:"input_type" binding:"required"`
	OutputType    string `json:"output_type" binding:"required"`
	Resolution    string `json:"resolution" binding:"required"`
	VideoEncoding string `json:"video_encoding" binding:"required"`
	VideoBitrate  string `json:"video_bitrate" binding:"required"`
	AudioEncoding string `json:"audio_encoding" binding:"required"`
	AudioBitrate  string `json:"audio_bitrate" binding:"required"`
	Pipeline      string `json:"pipeline" binding:"required"`
}

type UpdatePresetIn struct {
	Name          *string `json:"name"`
	InputType     *string `json:"input_type"`
	OutputType    *string `json:"output_type"`
	Resolution    *string `json:"resolution"`
	VideoEncoding *string `json:"video_encoding"`
	VideoBitrate  *string `json:"video_bitrate"`
	AudioEncoding *string `json:"audio_encoding"`
	AudioBitrate  *string `json:"audio_bitrate"`
	Pipeline      *string `json:"pipeline"`
}

type PresetHandler struct {
	presets services.PresetService
}

func NewPresetHandler(presets services.PresetService) *PresetHandler {
	return &PresetHandler{presets: presets}
}

// presetID parses the path parameter; an unparseable id gets the same
// answer as a missing preset.
func presetID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("preset_id"))
	if err != nil {
		response.Detail(c, http.StatusNotFound, "Preset not found")
		return uuid.Nil, false
	}
	return id, true
}

// POST /presets
func (h *PresetHandler) CreatePreset(c *gin.Context) {
	var in CreatePresetIn
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	preset, err := h.presets.Create(c.Request.Context(), services.CreatePresetInput{
		Name:          in.Name,
		InputType:     in.InputType,
		OutputType:    in.OutputType,
		Resolution:    in.Resolution,
		VideoEncoding: in.VideoEncoding,
		VideoBitrate:  in.VideoBitrate,
		AudioEncoding: in.AudioEncoding,
		AudioBitrate:  in.AudioBitrate,
		Pipeline:      in.Pipeline,
	})
	if err != nil {
		response.ServiceError(c, err, "Preset not found")
		return
	}
	response.OK(c, preset)
}

// GET /presets
func (h *PresetHandler) ListPresets(c *gin.Context) {
	skip, limit, ok := response.Page(c)
	if !ok {
		return
	}
	var filter repos.PresetFilter
	if v := c.Query("input_type"); v != "" {
		filter.InputType = &v
	}
	if v := c.Query("output_type"); v != "" {
		filter.OutputType = &v
	}
	presets, err := h.presets.List(c.Request.Context(), filter, skip, limit)
	if err != nil {
		response.ServiceError(c, err, "Preset not found")
		return
	}
	if len(presets) == 0 {
		response.Detail(c, http.StatusNotFound, "No presets found")
		return
	}
	response.OK(c, presets)
}

// GET /presets/:preset_id
func (h *PresetHandler) GetPreset(c *gin.Context) {
	id, ok := presetID(c)
	if !ok {
		return
	}
	preset, err := h.presets.Get(c.Request.Context(), id)
	if err != nil {
		response.ServiceError(c, err, "Preset not found")
		return
	}
	response.OK(c, preset)
}

// PUT /presets/:preset_id
func (h *PresetHandler) UpdatePreset(c *gin.Context) {
	id, ok := presetID(c)
	if !ok {
		return
	}
	var in UpdatePresetIn
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Detail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}
	preset, err := h.presets.Update(c.Request.Context(), id, services.UpdatePresetInput{
		Name:          in.Name,
		InputType:     in.InputType,
		OutputType:    in.OutputType,
		Resolution:    in.Resolution,
		VideoEncoding: in.VideoEncoding,
		VideoBitrate:  in.VideoBitrate,
		AudioEncoding: in.AudioEncoding,
		AudioBitrate:  in.AudioBitrate,
		Pipeline:      in.Pipeline,
	})
	if err != nil {
		response.ServiceError(c, err, "Preset not found")
		return
	}
	response.OK(c, preset)
}

// DELETE /presets/:preset_id
func (h *PresetHandler) DeletePreset(c *gin.Context) {
	id, ok := presetID(c)
	if !ok {
		return
	}
	preset, err := h.presets.Delete(c.Request.Context(), id)
	if err != nil {
		response.ServiceError(c, err, "Preset not found")
		return
	}
	response.OK(c, preset)
}

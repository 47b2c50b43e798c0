package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

type CreatePresetInput struct {
	Name          string
	InputType     string
	OutputType    string
	Resolution    string
	VideoEncoding string
	VideoBitrate  string
	AudioEncoding string
	AudioBitrate  string
	Pipeline      string
}

// UpdatePresetInput carries the mutable preset fields; nil means untouched.
type UpdatePresetInput struct {
	Name          *string
	InputType     *string
	OutputType    *string
	Resolution    *string
	VideoEncoding *string
	VideoBitrate  *string
	AudioEncoding *string
	AudioBitrate  *string
	Pipeline      *string
}

type PresetService interface {
	Create(ctx context.Context, in CreatePresetInput) (*types.Preset, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Preset, error)
	List(ctx context.Context, filter repos.PresetFilter, offset, limit int) ([]*types.Preset, error)
	Update(ctx context.Context, id uuid.UUID, in UpdatePresetInput) (*types.Preset, error)
	Delete(ctx context.Context, id uuid.UUID) (*types.Preset, error)
}

type presetService struct {
	db      *gorm.DB
	log     *logger.Logger
	presets repos.PresetRepo
}

func NewPresetService(db *gorm.DB, baseLog *logger.Logger, presets repos.PresetRepo) PresetService {
	return &presetService{
		db:      db,
		log:     baseLog.With("service", "PresetService"),
		presets: presets,
	}
}

func (s *presetService) Create(ctx context.Context, in CreatePresetInput) (*types.Preset, error) {
	preset := &types.Preset{
		PresetID:      uuid.New(),
		Name:          in.Name,
		InputType:     in.InputType,
		OutputType:    in.OutputType,
		Resolution:    in.Resolution,
		VideoEncoding: in.VideoEncoding,
		VideoBitrate:  in.VideoBitrate,
		AudioEncoding: in.AudioEncoding,
		AudioBitrate:  in.AudioBitrate,
		Pipeline:      in.Pipeline,
	}
	created, err := s.presets.Create(dbctx.Context{Ctx: ctx}, preset)
	if err != nil {
		return nil, err
	}
	s.log.Info("Preset created", "presetID", created.PresetID, "name", created.Name)
	return created, nil
}

func (s *presetService) Get(ctx context.Context, id uuid.UUID) (*types.Preset, error) {
	return s.presets.GetByID(dbctx.Context{Ctx: ctx}, id)
}

func (s *presetService) List(ctx context.Context, filter repos.PresetFilter, offset, limit int) ([]*types.Preset, error) {
	return s.presets.List(dbctx.Context{Ctx: ctx}, filter, offset, limit)
}

func (s *presetService) Update(ctx context.Context, id uuid.UUID, in UpdatePresetInput) (*types.Preset, error) {
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.InputType != nil {
		updates["input_type"] = *in.InputType
	}
	if in.OutputType != nil {
		updates["output_type"] = *in.OutputType
	}
	if in.Resolution != nil {
		updates["resolution"] = *in.Resolution
	}
	if in.VideoEncoding != nil {
		updates["video_encoding"] = *in.VideoEncoding
	}
	if in.VideoBitrate != nil {
		updates["video_bitrate"] = *in.VideoBitrate
	}
	if in.AudioEncoding != nil {
		updates["audio_encoding"] = *in.AudioEncoding
	}
	if in.AudioBitrate != nil {
		updates["audio_bitrate"] = *in.AudioBitrate
	}
	if in.Pipeline != nil {
		updates["pipeline"] = *in.Pipeline
	}
	if len(updates) == 0 {
		return s.presets.GetByID(dbctx.Context{Ctx: ctx}, id)
	}
	return s.presets.UpdateFields(dbctx.Context{Ctx: ctx}, id, updates)
}

// Delete removes the preset and returns its final snapshot.
func (s *presetService) Delete(ctx context.Context, id uuid.UUID) (*types.Preset, error) {
	dbc := dbctx.Context{Ctx: ctx}
	preset, err := s.presets.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if err := s.presets.Delete(dbc, id); err != nil {
		return nil, err
	}
	s.log.Info("Preset deleted", "presetID", id)
	return preset, nil
}

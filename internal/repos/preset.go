package repos

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/types"
)

// PresetFilter narrows List by container types; nil fields match anything.
type PresetFilter struct {
	InputType  *string
	OutputType *string
}

type PresetRepo interface {
	Create(dbc dbctx.Context, preset *types.Preset) (*types.Preset, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Preset, error)
	GetByName(dbc dbctx.Context, name string) (*types.Preset, error)
	List(dbc dbctx.Context, filter PresetFilter, offset, limit int) ([]*types.Preset, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (*types.Preset, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type presetRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPresetRepo(db *gorm.DB, baseLog *logger.Logger) PresetRepo {
	return &presetRepo{
		db:  db,
		log: baseLog.With("repo", "PresetRepo"),
	}
}

func (r *presetRepo) Create(dbc dbctx.Context, preset *types.Preset) (*types.Preset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if preset == nil {
		return nil, fmt.Errorf("create preset: nil preset")
	}
	if preset.PresetID == uuid.Nil {
		preset.PresetID = uuid.New()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(preset).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("create preset %q: %w", preset.Name, ErrDuplicate)
		}
		return nil, err
	}
	return preset, nil
}

func (r *presetRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Preset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var preset types.Preset
	err := transaction.WithContext(dbc.Ctx).
		Where("preset_id = ?", id).
		First(&preset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

func (r *presetRepo) GetByName(dbc dbctx.Context, name string) (*types.Preset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var preset types.Preset
	err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		First(&preset).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("preset %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &preset, nil
}

func (r *presetRepo) List(dbc dbctx.Context, filter PresetFilter, offset, limit int) ([]*types.Preset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 100
	}
	q := transaction.WithContext(dbc.Ctx).Model(&types.Preset{})
	if filter.InputType != nil {
		q = q.Where("input_type = ?", *filter.InputType)
	}
	if filter.OutputType != nil {
		q = q.Where("output_type = ?", *filter.OutputType)
	}
	var out []*types.Preset
	if err := q.Order("name ASC").Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *presetRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) (*types.Preset, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return r.GetByID(dbc, id)
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.Preset{}).
		Where("preset_id = ?", id).
		Updates(updates)
	if res.Error != nil {
		if isDuplicate(res.Error) {
			return nil, fmt.Errorf("update preset %s: %w", id, ErrDuplicate)
		}
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	return r.GetByID(dbc, id)
}

func (r *presetRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("preset_id = ?", id).
		Delete(&types.Preset{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("preset %s: %w", id, ErrNotFound)
	}
	return nil
}

package repos

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/types"
)

type PlaylistRepo interface {
	Create(dbc dbctx.Context, playlist *types.Playlist) (*types.Playlist, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Playlist, error)
	List(dbc dbctx.Context, name *string, offset, limit int) ([]*types.Playlist, error)
}

type playlistRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlaylistRepo(db *gorm.DB, baseLog *logger.Logger) PlaylistRepo {
	return &playlistRepo{
		db:  db,
		log: baseLog.With("repo", "PlaylistRepo"),
	}
}

// Create persists the playlist together with its jobs and the join rows.
// Callers wanting all-or-nothing semantics pass a transaction in dbc.
func (r *playlistRepo) Create(dbc dbctx.Context, playlist *types.Playlist) (*types.Playlist, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if playlist == nil {
		return nil, fmt.Errorf("create playlist: nil playlist")
	}
	if playlist.ID == uuid.Nil {
		playlist.ID = uuid.New()
	}
	for _, job := range playlist.Jobs {
		if job.ID == uuid.Nil {
			job.ID = uuid.New()
		}
		if job.State == "" {
			job.State = types.JobStateQueued
		}
	}
	if err := transaction.WithContext(dbc.Ctx).Create(playlist).Error; err != nil {
		if isDuplicate(err) {
			return nil, fmt.Errorf("create playlist %q: %w", playlist.Name, ErrDuplicate)
		}
		return nil, err
	}
	return playlist, nil
}

func (r *playlistRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Playlist, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var playlist types.Playlist
	err := transaction.WithContext(dbc.Ctx).
		Preload("Jobs").
		Where("id = ?", id).
		First(&playlist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("playlist %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

// List always loads the job association; whether callers expose full jobs
// or just their ids is a response-shaping concern.
func (r *playlistRepo) List(dbc dbctx.Context, name *string, offset, limit int) ([]*types.Playlist, error) {
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
	q := transaction.WithContext(dbc.Ctx).
		Preload("Jobs").
		Preload("Jobs.Preset").
		Order("name ASC")
	if name != nil {
		q = q.Where("name = ?", *name)
	}
	var out []*types.Playlist
	if err := q.Offset(offset).Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

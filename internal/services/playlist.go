package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

type PlaylistService interface {
	List(ctx context.Context, name *string, offset, limit int) ([]*types.Playlist, error)
}

type playlistService struct {
	db        *gorm.DB
	log       *logger.Logger
	playlists repos.PlaylistRepo
}

func NewPlaylistService(db *gorm.DB, baseLog *logger.Logger, playlists repos.PlaylistRepo) PlaylistService {
	return &playlistService{
		db:        db,
		log:       baseLog.With("service", "PlaylistService"),
		playlists: playlists,
	}
}

func (s *playlistService) List(ctx context.Context, name *string, offset, limit int) ([]*types.Playlist, error) {
	return s.playlists.List(dbctx.Context{Ctx: ctx}, name, offset, limit)
}

package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
)

type Repos struct {
	Jobs      repos.JobRepo
	Presets   repos.PresetRepo
	Playlists repos.PlaylistRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Jobs:      repos.NewJobRepo(db, log),
		Presets:   repos.NewPresetRepo(db, log),
		Playlists: repos.NewPlaylistRepo(db, log),
	}
}

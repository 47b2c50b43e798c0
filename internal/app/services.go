package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/services"
)

type Services struct {
	Dispatch  services.DispatchService
	Jobs      services.JobService
	Presets   services.PresetService
	Playlists services.PlaylistService
}

func wireServices(db *gorm.DB, log *logger.Logger, r Repos, publisher services.Publisher) Services {
	log.Info("Wiring services...")
	return Services{
		Dispatch:  services.NewDispatchService(db, log, r.Jobs, r.Presets, r.Playlists, publisher),
		Jobs:      services.NewJobService(db, log, r.Jobs),
		Presets:   services.NewPresetService(db, log, r.Presets),
		Playlists: services.NewPlaylistService(db, log, r.Playlists),
	}
}

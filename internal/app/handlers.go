package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/transcoderd/internal/events"
	"github.com/yungbote/transcoderd/internal/http"
	httpH "github.com/yungbote/transcoderd/internal/http/handlers"
	"github.com/yungbote/transcoderd/internal/platform/blob"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/progress"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Job      *httpH.JobHandler
	Preset   *httpH.PresetHandler
	Playlist *httpH.PlaylistHandler
	Storage  *httpH.StorageHandler
	Progress *httpH.ProgressHandler
}

// wireHandlers builds the HTTP surface. A nil store leaves the storage
// handler out; the router skips routes whose handler is missing.
func wireHandlers(
	log *logger.Logger,
	services Services,
	store blob.Store,
	tracker *progress.Tracker,
	eventManager *events.Manager,
) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		Health:   httpH.NewHealthHandler(),
		Job:      httpH.NewJobHandler(services.Jobs, services.Dispatch),
		Preset:   httpH.NewPresetHandler(services.Presets),
		Playlist: httpH.NewPlaylistHandler(services.Playlists, services.Dispatch),
		Progress: httpH.NewProgressHandler(log, services.Jobs, tracker, eventManager),
	}
	if store != nil {
		h.Storage = httpH.NewStorageHandler(store)
	}
	return h
}

func wireRouter(log *logger.Logger, handlers Handlers) *gin.Engine {
	return http.NewRouter(http.RouterConfig{
		ServiceName:     "transcoderd-api",
		Log:             log,
		HealthHandler:   handlers.Health,
		JobHandler:      handlers.Job,
		PresetHandler:   handlers.Preset,
		PlaylistHandler: handlers.Playlist,
		StorageHandler:  handlers.Storage,
		ProgressHandler: handlers.Progress,
	})
}

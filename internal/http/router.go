package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/transcoderd/internal/http/handlers"
	httpMW "github.com/yungbote/transcoderd/internal/http/middleware"
	"github.com/yungbote/transcoderd/internal/platform/logger"
)

type RouterConfig struct {
	ServiceName string
	Log         *logger.Logger

	JobHandler      *httpH.JobHandler
	PresetHandler   *httpH.PresetHandler
	PlaylistHandler *httpH.PlaylistHandler
	StorageHandler  *httpH.StorageHandler
	ProgressHandler *httpH.ProgressHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "transcoderd"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	// Storage
	if cfg.StorageHandler != nil {
		r.POST("/upload", cfg.StorageHandler.Upload)
		r.GET("/download/:filename", cfg.StorageHandler.Download)
		r.GET("/signed_download/*filename", cfg.StorageHandler.SignedDownload)
	}

	// Jobs
	if cfg.JobHandler != nil {
		r.POST("/submit_job", cfg.JobHandler.SubmitJob)
		r.GET("/jobs", cfg.JobHandler.ListJobs)
		r.GET("/jobs/:job_id", cfg.JobHandler.GetJob)
		r.PUT("/jobs/:job_id", cfg.JobHandler.UpdateJob)
	}

	// Presets
	if cfg.PresetHandler != nil {
		r.POST("/presets", cfg.PresetHandler.CreatePreset)
		r.GET("/presets", cfg.PresetHandler.ListPresets)
		r.GET("/presets/:preset_id", cfg.PresetHandler.GetPreset)
		r.PUT("/presets/:preset_id", cfg.PresetHandler.UpdatePreset)
		r.DELETE("/presets/:preset_id", cfg.PresetHandler.DeletePreset)
	}

	// Playlists
	if cfg.PlaylistHandler != nil {
		r.GET("/playlists", cfg.PlaylistHandler.ListPlaylists)
		r.POST("/playlists", cfg.PlaylistHandler.CreatePlaylist)
	}

	// Progress (websocket)
	if cfg.ProgressHandler != nil {
		r.GET("/progress/:job_id", cfg.ProgressHandler.Progress)
	}

	return r
}

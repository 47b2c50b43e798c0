package app

import (
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/utils"
)

type Config struct {
	HTTPAddr    string
	Environment string

	// InstanceID is the short id this coordinator stamps on its log lines,
	// mirroring the worker-side ids on the progress stream.
	InstanceID string
}

func LoadConfig(log *logger.Logger) Config {
	return Config{
		HTTPAddr:    utils.GetEnv("HTTP_ADDR", ":8080", log),
		Environment: utils.GetEnv("APP_ENV", "development", log),
		InstanceID:  utils.InstanceID(),
	}
}

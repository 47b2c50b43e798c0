package seeds

import (
	"embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/transcoderd/internal/platform/dbctx"
	"github.com/yungbote/transcoderd/internal/platform/logger"
	"github.com/yungbote/transcoderd/internal/repos"
	"github.com/yungbote/transcoderd/internal/types"
)

//go:embed presets.yaml
var presetCatalogFS embed.FS

type yamlPresetCatalog struct {
	Presets []yamlPreset `yaml:"presets"`
}

type yamlPreset struct {
	Name          string `yaml:"name"`
	InputType     string `yaml:"input_type"`
	OutputType    string `yaml:"output_type"`
	Resolution    string `yaml:"resolution"`
	VideoEncoding string `yaml:"video_encoding"`
	VideoBitrate  string `yaml:"video_bitrate"`
	AudioEncoding string `yaml:"audio_encoding"`
	AudioBitrate  string `yaml:"audio_bitrate"`
	Pipeline      string `yaml:"pipeline"`
}

// Seeder installs the stock preset catalog. Existing rows are matched by
// name and left alone, so operator edits survive restarts.
type Seeder interface {
	SeedPresets(dbc dbctx.Context) error
}

type seeder struct {
	log     *logger.Logger
	presets repos.PresetRepo
}

func NewSeeder(baseLog *logger.Logger, presets repos.PresetRepo) Seeder {
	return &seeder{
		log:     baseLog.With("component", "Seeder"),
		presets: presets,
	}
}

func (s *seeder) SeedPresets(dbc dbctx.Context) error {
	catalog, err := loadPresetCatalog()
	if err != nil {
		return fmt.Errorf("Failed to load preset catalog: %w", err)
	}
	created := 0
	for _, entry := range catalog {
		_, err := s.presets.GetByName(dbc, entry.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, repos.ErrNotFound) {
			return fmt.Errorf("Failed to look up preset %q: %w", entry.Name, err)
		}
		preset := &types.Preset{
			PresetID:      uuid.New(),
			Name:          entry.Name,
			InputType:     entry.InputType,
			OutputType:    entry.OutputType,
			Resolution:    entry.Resolution,
			VideoEncoding: entry.VideoEncoding,
			VideoBitrate:  entry.VideoBitrate,
			AudioEncoding: entry.AudioEncoding,
			AudioBitrate:  entry.AudioBitrate,
			Pipeline:      entry.Pipeline,
		}
		if _, err := s.presets.Create(dbc, preset); err != nil {
			return fmt.Errorf("Failed to seed preset %q: %w", entry.Name, err)
		}
		created++
	}
	s.log.Info("Preset catalog seeded", "total", len(catalog), "created", created)
	return nil
}

func loadPresetCatalog() ([]yamlPreset, error) {
	data, err := presetCatalogFS.ReadFile("presets.yaml")
	if err != nil {
		return nil, err
	}
	var catalog yamlPresetCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, err
	}
	if len(catalog.Presets) == 0 {
		return nil, errors.New("preset catalog is empty")
	}
	for i, entry := range catalog.Presets {
		if entry.Name == "" || entry.InputType == "" || entry.OutputType == "" || entry.Pipeline == "" {
			return nil, fmt.Errorf("preset %d is missing a required field", i)
		}
	}
	return catalog.Presets, nil
}

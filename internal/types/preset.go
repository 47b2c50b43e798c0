package types

import (
	"time"

	"github.com/google/uuid"
)

type Preset struct {
	PresetID      uuid.UUID `gorm:"column:preset_id;type:uuid;primaryKey" json:"preset_id"`
	Name          string    `gorm:"column:name;type:varchar(250);uniqueIndex;not null" json:"name"`
	InputType     string    `gorm:"column:input_type;type:varchar(30);not null" json:"input_type"`
	OutputType    string    `gorm:"column:output_type;type:varchar(30);not null" json:"output_type"`
	Resolution    string    `gorm:"column:resolution;type:varchar(30)" json:"resolution"`
	VideoEncoding string    `gorm:"column:video_encoding;type:varchar(30)" json:"video_encoding"`
	VideoBitrate  string    `gorm:"column:video_bitrate;type:varchar(30)" json:"video_bitrate"`
	AudioEncoding string    `gorm:"column:audio_encoding;type:varchar(30)" json:"audio_encoding"`
	AudioBitrate  string    `gorm:"column:audio_bitrate;type:varchar(30)" json:"audio_bitrate"`
	Pipeline      string    `gorm:"column:pipeline;type:text;not null" json:"pipeline"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (Preset) TableName() string { return "presets" }

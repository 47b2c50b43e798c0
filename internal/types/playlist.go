package types

import (
	"time"

	"github.com/google/uuid"
)

// Playlist groups the jobs fanned out from a single submission, one per
// requested preset.
type Playlist struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"column:name;type:varchar(250);uniqueIndex;not null" json:"name"`
	Jobs      []*Job    `gorm:"many2many:playlist_jobs" json:"jobs,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Playlist) TableName() string { return "playlists" }

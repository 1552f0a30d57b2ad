package archive

import (
	"time"

	"github.com/DoyleJ11/live-poll-backend/internal/poll"
)

// PollRecord is one terminated poll. Rows are append-only.
type PollRecord struct {
	ID             string         `gorm:"primaryKey;type:varchar(36)"`
	Question       string         `gorm:"not null"`
	Status         string         `gorm:"not null;index"`
	TimeLimitSec   int            `gorm:"not null"`
	TotalResponses int            `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null"`
	EndedAt        time.Time      `gorm:"not null;index"`
	Options        []OptionRecord `gorm:"foreignKey:PollID;constraint:OnDelete:CASCADE"`
}

func (PollRecord) TableName() string { return "poll_archives" }

type OptionRecord struct {
	ID        uint   `gorm:"primaryKey"`
	PollID    string `gorm:"not null;index;type:varchar(36)"`
	Position  int    `gorm:"not null"`
	Text      string `gorm:"not null"`
	VoteCount int    `gorm:"not null"`
}

func (OptionRecord) TableName() string { return "poll_archive_options" }

func FromEntry(e poll.HistoryEntry) PollRecord {
	rec := PollRecord{
		ID:             e.ID,
		Question:       e.Question,
		Status:         string(e.Status),
		TimeLimitSec:   e.TimeLimitSec,
		TotalResponses: e.TotalResponses,
		CreatedAt:      e.CreatedAt,
		EndedAt:        e.EndedAt,
		Options:        make([]OptionRecord, len(e.Options)),
	}
	for i, o := range e.Options {
		rec.Options[i] = OptionRecord{PollID: e.ID, Position: o.Index, Text: o.Text, VoteCount: o.VoteCount}
	}
	return rec
}

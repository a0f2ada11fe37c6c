package model

import "time"

// TranslationSession is the GORM entity for a live-translation session.
type TranslationSession struct {
	ID        string     `gorm:"type:uuid;primaryKey"`
	Title     string     `gorm:"size:200;not null"`
	Language  string     `gorm:"size:16;not null;default:zh"`
	Status    string     `gorm:"size:16;not null;default:active;index"` // active, ended
	StartedAt time.Time  `gorm:"column:started_at;not null"`
	EndedAt   *time.Time `gorm:"column:ended_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

func (TranslationSession) TableName() string { return "translation_sessions" }

// TranslationEntry is the GORM entity for one translated line.
// Seq is assigned under the per-session append lock; (session_id, seq) is unique.
type TranslationEntry struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	SessionID string    `gorm:"type:uuid;not null;index:idx_entries_session_seq,unique"`
	Seq       int64     `gorm:"not null;index:idx_entries_session_seq,unique"`
	Text      string    `gorm:"type:text;not null"`
	Language  string    `gorm:"size:16;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (TranslationEntry) TableName() string { return "translation_entries" }

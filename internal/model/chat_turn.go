package model

import "time"

// ChatTurn is one question/answer exchange. Turns are never updated after insert.
type ChatTurn struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index:idx_turn_session_created,priority:1" json:"session_id"`
	Question  string    `gorm:"type:text;not null" json:"question"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Model     ModelName `gorm:"size:32;not null" json:"model"`
	CreatedAt time.Time `gorm:"index:idx_turn_session_created,priority:2" json:"created_at"`
}

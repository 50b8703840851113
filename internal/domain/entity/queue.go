package entity

import (
	"encoding/json"
	"time"

	"github.com/opentill/terminal/internal/domain/enum"
)

// OfflineQueueEntry is one pending mutating action awaiting upload. Entries
// are keyed by ref: a later action for the same ref supersedes the earlier
// one while keeping its original queue position, so replay order matches
// first submission order.
type OfflineQueueEntry struct {
	Seq       uint             `gorm:"primaryKey;autoIncrement" json:"seq"`
	Ref       string           `gorm:"uniqueIndex;size:64;not null" json:"ref"`
	Action    enum.QueueAction `gorm:"size:32;not null" json:"action"`
	Payload   string           `gorm:"type:text" json:"payload"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName returns the table name for the OfflineQueueEntry model
func (OfflineQueueEntry) TableName() string {
	return "offline_queue"
}

// DecodePayload unmarshals the stored payload into out.
func (e *OfflineQueueEntry) DecodePayload(out any) error {
	return json.Unmarshal([]byte(e.Payload), out)
}

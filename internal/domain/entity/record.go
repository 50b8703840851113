package entity

import (
	"encoding/json"
	"time"
)

// Record is one row of the local record store: a kind-namespaced key mapped
// to a JSON payload. The store is the device's single durable copy of every
// cached entity; all other components operate on decoded values and write
// results back through it.
type Record struct {
	Kind      string    `gorm:"primaryKey;size:32" json:"kind"`
	Key       string    `gorm:"primaryKey;size:64" json:"key"`
	Payload   string    `gorm:"type:text" json:"payload"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the Record model
func (Record) TableName() string {
	return "records"
}

// Decode unmarshals the record payload into out.
func (r *Record) Decode(out any) error {
	return json.Unmarshal([]byte(r.Payload), out)
}

package domain

import "time"

// Action outcomes stored in the journal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// ActionRecord is one journaled admin mutation issued through the console.
// Records carrying an idempotency key let a retried request be recognized
// as a replay of (kind, entity, key) instead of mutating twice.
type ActionRecord struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Kind           string    `json:"kind"            gorm:"type:varchar(32);not null;index:idx_action_entity,priority:1;uniqueIndex:ux_action_idem,priority:1"`
	EntityID       string    `json:"entityId"        gorm:"type:varchar(64);not null;index:idx_action_entity,priority:2;uniqueIndex:ux_action_idem,priority:2"`
	Action         string    `json:"action"          gorm:"type:varchar(16);not null"`
	Reason         string    `json:"reason,omitempty" gorm:"type:text"`
	Outcome        string    `json:"outcome"         gorm:"type:varchar(8);not null;check:outcome IN ('ok','failed')"`
	Error          string    `json:"error,omitempty" gorm:"type:text"`
	IdempotencyKey *string   `json:"idempotencyKey,omitempty" gorm:"type:varchar(200);uniqueIndex:ux_action_idem,priority:3"`
	CreatedAt      time.Time `json:"createdAt"       gorm:"type:DATETIME NOT NULL;index:idx_action_entity,priority:3"`
}

// TableName implements the GORM tabler interface.
func (ActionRecord) TableName() string { return "action_journal" }

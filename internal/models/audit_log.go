package models

import "gorm.io/datatypes"

// AuditLog is the append-only history of balance-affecting and
// status-changing operations.
type AuditLog struct {
	Base
	ActorID      string         `gorm:"not null;index" json:"actor_id"`
	ActorRole    Role           `json:"actor_role"`
	Action       string         `gorm:"not null;index" json:"action"`
	ResourceType string         `gorm:"not null" json:"resource_type"`
	ResourceID   string         `gorm:"index" json:"resource_id"`
	IPAddress    string         `json:"ip_address,omitempty"`
	Changes      datatypes.JSON `json:"changes,omitempty"`
}

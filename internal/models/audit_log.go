package models

// AuditLog records configuration changes and bulk ledger edits.
type AuditLog struct {
	Base
	Username     string `gorm:"size:64;not null;index" json:"username"`
	Action       string `gorm:"not null" json:"action"`
	ResourceType string `gorm:"not null" json:"resource_type"`
	ResourceID   string `json:"resource_id"`
	IPAddress    string `json:"ip_address"`
	Changes      string `json:"changes,omitempty"`
}

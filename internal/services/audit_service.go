package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"misa/internal/logger"
	"misa/internal/models"
)

// auditService records audit entries in the audit_logs table.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates an AuditServicer backed by db.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(username, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	entry := &models.AuditLog{
		Username:     username,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      marshalChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"username", username,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

// logAuditService writes audit events to the application log. It serves the
// file backend, which has no audit table.
type logAuditService struct{}

// NewLogAuditService creates an AuditServicer that only logs.
func NewLogAuditService() AuditServicer {
	return logAuditService{}
}

func (logAuditService) Log(username, action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	logger.Named("audit").Infow(action,
		"username", username,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"ip", ipAddress,
		"changes", marshalChanges(action, changes),
	)
}

func marshalChanges(action string, changes map[string]any) string {
	if changes == nil {
		return ""
	}
	data, err := json.Marshal(changes)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	return string(data)
}

package audit

import (
	"encoding/json"
	"fmt"

	"restopos-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	EstablishmentID uint
	UserID          *uint
	EntityType      string
	EntityID        uint
	Action          models.AuditAction
	Description     string
	Before          any
	After           any
}

// WriteLog: Çağıranın transaction'ı (tx) ile yazılır; işlem geri alınırsa log da geri alınır
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		EstablishmentID: opts.EstablishmentID,
		UserID:          opts.UserID,
		EntityType:      opts.EntityType,
		EntityID:        opts.EntityID,
		Action:          opts.Action,
		Description:     truncate(opts.Description, 255),
		BeforeData:      beforeStr,
		AfterData:       afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/blissmart/marketplace-backend/pkg/enums"
	"github.com/blissmart/marketplace-backend/pkg/types"
)

// Notification is an in-app message for one user, optionally pushed.
type Notification struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID                 `gorm:"column:user_id;type:uuid;not null;index:notifications_user_id_read_idx,priority:1"`
	Title     string                    `gorm:"column:title;not null"`
	Message   string                    `gorm:"column:message;not null"`
	Type      enums.NotificationType    `gorm:"column:type;type:varchar(32);not null"`
	Read      bool                      `gorm:"column:read;not null;default:false;index:notifications_user_id_read_idx,priority:2"`
	Channel   enums.NotificationChannel `gorm:"column:channel;type:varchar(16);not null;default:IN_APP"`
	ActionURL *string                   `gorm:"column:action_url"`
	Metadata  types.JSON                `gorm:"column:metadata"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}

package model

import "time"

// Notification 站内通知表 — 对应 notifications
type Notification struct {
	ID     int64   `gorm:"primaryKey"                 json:"id"`
	UserID int64   `gorm:"not null"                   json:"user_id"` // 创建者
	Title  string  `gorm:"type:varchar(255);not null" json:"title"`
	Body   *string `gorm:"type:text"                  json:"body,omitempty"`
	Link   *string `gorm:"type:varchar(500)"          json:"link,omitempty"`
	BaseModel

	// 关联
	Recipients []NotificationRecipient `gorm:"foreignKey:NotificationID" json:"recipients,omitempty"`
}

func (Notification) TableName() string { return "notifications" }

// NotificationRecipient 通知接收人 — 对应 notification_user
type NotificationRecipient struct {
	NotificationID int64      `gorm:"primaryKey;autoIncrement:false" json:"notification_id"`
	UserID         int64      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
}

func (NotificationRecipient) TableName() string { return "notification_user" }

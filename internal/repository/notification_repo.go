package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elearning/backend/internal/model"
)

// NotificationRepository 站内通知数据访问接口
type NotificationRepository interface {
	// Create 写入通知及其接收人
	Create(ctx context.Context, n *model.Notification, recipientIDs []int64) error
	ListForUser(ctx context.Context, userID int64, offset, limit int) ([]model.Notification, int64, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
}

type notificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo 创建 NotificationRepository 实例
func NewNotificationRepo(db *gorm.DB) NotificationRepository {
	return &notificationRepo{db: db}
}

func (r *notificationRepo) Create(ctx context.Context, n *model.Notification, recipientIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Recipients").Create(n).Error; err != nil {
			return err
		}
		if len(recipientIDs) == 0 {
			return nil
		}
		rows := make([]model.NotificationRecipient, 0, len(recipientIDs))
		for _, uid := range recipientIDs {
			rows = append(rows, model.NotificationRecipient{NotificationID: n.ID, UserID: uid})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
}

func (r *notificationRepo) ListForUser(ctx context.Context, userID int64, offset, limit int) ([]model.Notification, int64, error) {
	var list []model.Notification
	var total int64

	db := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Joins("JOIN notification_user nu ON nu.notification_id = notifications.id").
		Where("nu.user_id = ?", userID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Recipients", "user_id = ?", userID).
		Offset(offset).Limit(limit).
		Order("notifications.created_at DESC, notifications.id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, notificationID, userID int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.NotificationRecipient{}).
		Where("notification_id = ? AND user_id = ? AND read_at IS NULL", notificationID, userID).
		Update("read_at", gorm.Expr("NOW()"))
	return res.Error
}

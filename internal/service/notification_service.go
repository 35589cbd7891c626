package service

import (
	"context"

	"go.uber.org/zap"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/repository"
)

// NotificationService 站内通知收件箱
type NotificationService interface {
	List(ctx context.Context, userID int64, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error)
	MarkRead(ctx context.Context, notificationID, userID int64) error
}

type notificationService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(repo *repository.Repository, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, logger: logger}
}

func (s *notificationService) List(ctx context.Context, userID int64, req *dto.NotificationListRequest) ([]dto.NotificationResponse, int64, error) {
	list, total, err := s.repo.Notification.ListForUser(ctx, userID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询站内通知失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.NotificationResponse, 0, len(list))
	for _, n := range list {
		item := dto.NotificationResponse{
			ID:        n.ID,
			Title:     n.Title,
			Body:      n.Body,
			Link:      n.Link,
			CreatedAt: formatTime(n.CreatedAt),
		}
		for _, r := range n.Recipients {
			if r.UserID == userID {
				item.ReadAt = formatTimePtr(r.ReadAt)
			}
		}
		result = append(result, item)
	}
	return result, total, nil
}

func (s *notificationService) MarkRead(ctx context.Context, notificationID, userID int64) error {
	if err := s.repo.Notification.MarkRead(ctx, notificationID, userID); err != nil {
		s.logger.Error("标记通知已读失败", zap.Int64("notification_id", notificationID), zap.Error(err))
		return err
	}
	return nil
}

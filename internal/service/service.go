package service

import (
	"go.uber.org/zap"

	"elearning/backend/config"
	"elearning/backend/internal/repository"
	"elearning/backend/pkg/sms"
	"elearning/backend/pkg/storage"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Submission   SubmissionService
	Assignment   AssignmentService
	Discount     DiscountService
	Enrollment   EnrollmentService
	ClassSession ClassSessionService
	Attendance   AttendanceService
	Material     SessionMaterialService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	files storage.FileStore,
	smsSender sms.Sender,
	logger *zap.Logger,
) *Service {
	notifier := NewNotifier(repo, smsSender, cfg.Notify.FanoutConcurrency, logger)
	return &Service{
		Submission:   NewSubmissionService(repo, files, notifier, SystemClock, cfg.Assignment.AttemptLimit, logger),
		Assignment:   NewAssignmentService(repo, notifier, logger),
		Discount:     NewDiscountService(repo, notifier, SystemClock, logger),
		Enrollment:   NewEnrollmentService(repo, notifier, SystemClock, logger),
		ClassSession: NewClassSessionService(repo, notifier, logger),
		Attendance:   NewAttendanceService(repo, logger),
		Material:     NewSessionMaterialService(repo, files, notifier, logger),
		Notification: NewNotificationService(repo, logger),
		Export:       NewExportService(repo, logger),
	}
}

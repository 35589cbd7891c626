package handler

import (
	"elearning/backend/internal/service"
	"elearning/backend/pkg/storage"
)

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Submission   *SubmissionHandler
	Assignment   *AssignmentHandler
	Discount     *DiscountHandler
	Enrollment   *EnrollmentHandler
	ClassSession *ClassSessionHandler
	Material     *SessionMaterialHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service, files storage.FileStore) *Handler {
	return &Handler{
		Submission:   NewSubmissionHandler(svc.Submission, files),
		Assignment:   NewAssignmentHandler(svc.Assignment),
		Discount:     NewDiscountHandler(svc.Discount),
		Enrollment:   NewEnrollmentHandler(svc.Enrollment),
		ClassSession: NewClassSessionHandler(svc.ClassSession, svc.Attendance),
		Material:     NewSessionMaterialHandler(svc.Material, files),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}

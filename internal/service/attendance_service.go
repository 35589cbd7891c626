package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
)

var ErrInvalidAttendanceStatus = errors.New("考勤状态无效")

// AttendanceService 考勤业务接口
type AttendanceService interface {
	// UpsertBulk 批量登记考勤；任一学生未有效报名时整体拒绝并列出全部无效 ID
	UpsertBulk(ctx context.Context, sessionID int64, items []dto.AttendanceItem, actor Actor) error
	ListBySession(ctx context.Context, sessionID int64, actor Actor) ([]dto.AttendanceResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, logger: logger}
}

// ────────────────────── UpsertBulk ──────────────────────

func (s *attendanceService) UpsertBulk(ctx context.Context, sessionID int64, items []dto.AttendanceItem, actor Actor) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sess, c, err := loadSessionCourse(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		studentIDs := make([]int64, 0, len(items))
		for _, it := range items {
			if !model.IsValidAttendanceStatus(it.Status) {
				return pkgerrors.NewFieldError("status", ErrInvalidAttendanceStatus, "未知的考勤状态 %q", it.Status)
			}
			studentIDs = append(studentIDs, it.StudentID)
		}
		allowed, err := tx.Enrollment.FilterEligibleStudentIDs(ctx, c.ID, studentIDs)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		if invalid := diffIDs(studentIDs, allowed); len(invalid) > 0 {
			return pkgerrors.NewFieldError("attendances", ErrInvalidStudents, "以下学生未在该课程中有效报名: %v", invalid)
		}

		// 同一学生出现多次时以最后一条为准
		index := make(map[int64]int, len(items))
		rows := make([]model.Attendance, 0, len(items))
		for _, it := range items {
			row := model.Attendance{SessionID: sess.ID, StudentID: it.StudentID, Status: it.Status, Note: it.Note}
			if i, ok := index[it.StudentID]; ok {
				rows[i] = row
				continue
			}
			index[it.StudentID] = len(rows)
			rows = append(rows, row)
		}
		return tx.Attendance.Upsert(ctx, rows)
	})
	if err != nil && !isExpectedError(err) {
		s.logger.Error("登记考勤失败", zap.Int64("session_id", sessionID), zap.Error(err))
	}
	return err
}

// ────────────────────── ListBySession ──────────────────────

func (s *attendanceService) ListBySession(ctx context.Context, sessionID int64, actor Actor) ([]dto.AttendanceResponse, error) {
	_, c, err := loadSessionCourse(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, c) {
		return nil, ErrNoPermission
	}

	rows, err := s.repo.Attendance.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询考勤失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	result := make([]dto.AttendanceResponse, 0, len(rows))
	for _, r := range rows {
		result = append(result, dto.AttendanceResponse{StudentID: r.StudentID, Status: r.Status, Note: r.Note})
	}
	return result, nil
}

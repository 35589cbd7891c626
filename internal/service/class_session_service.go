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

// ── 课次模块业务错误 ──

var (
	ErrInvalidSessionStatus = errors.New("课次状态无效")
)

// ClassSessionService 课次业务接口
type ClassSessionService interface {
	// UpdateStatus 修改课次状态并通知任课教师与课程学生
	UpdateStatus(ctx context.Context, id int64, status string, actor Actor) (*dto.ClassSessionResponse, error)
}

type classSessionService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewClassSessionService 创建 ClassSessionService 实例
func NewClassSessionService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) ClassSessionService {
	return &classSessionService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *classSessionService) UpdateStatus(ctx context.Context, id int64, status string, actor Actor) (*dto.ClassSessionResponse, error) {
	if !model.IsValidSessionStatus(status) {
		return nil, pkgerrors.NewFieldError("status", ErrInvalidSessionStatus, "未知的课次状态 %q", status)
	}

	var (
		session  *model.ClassSession
		course   *model.Course
		students []int64
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sess, c, err := loadSessionCourse(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		if err := tx.ClassSession.UpdateStatus(ctx, sess.ID, status); err != nil {
			return fmt.Errorf("更新课次状态失败: %w", err)
		}
		sess.Status = status

		ids, err := tx.Enrollment.ListEligibleStudentIDs(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		session, course, students = sess, c, ids
		return nil
	})
	if err != nil {
		if !isExpectedError(err) {
			s.logger.Error("更新课次状态失败", zap.Int64("session_id", id), zap.Error(err))
		}
		return nil, err
	}

	if course.TeacherID != nil {
		s.notifier.NotifyUser(ctx, *course.TeacherID, actor.ID,
			noticeSessionStatusChanged(session.Title, course.Title, session.Status, session.ID, false))
	}
	s.notifier.NotifyUsers(ctx, students, actor.ID,
		noticeSessionStatusChanged(session.Title, course.Title, session.Status, session.ID, true))

	return classSessionResponseOf(session), nil
}

package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
)

// ── 作业模块业务错误 ──

var (
	ErrAssignmentHasSubmissions = errors.New("作业已有提交记录，无法删除")
	ErrInvalidAssignmentType    = errors.New("作业类型无效")
)

// AssignmentService 作业业务接口
type AssignmentService interface {
	Create(ctx context.Context, req *dto.CreateAssignmentRequest, actor Actor) (*dto.AssignmentDetailResponse, error)
	GetDetail(ctx context.Context, id int64, actor Actor) (*dto.AssignmentDetailResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest, actor Actor) (*dto.AssignmentDetailResponse, error)
	Delete(ctx context.Context, id int64, actor Actor) error
	// UpsertPersonalizations 按学生批量写入个性化设置；任一学生未有效报名时整体拒绝并列出全部无效 ID
	UpsertPersonalizations(ctx context.Context, id int64, items []dto.PersonalizationItem, actor Actor) error
	// EffectiveAssignmentForStudent 学生实际看到的作业（合并个性化）
	EffectiveAssignmentForStudent(ctx context.Context, id, studentID int64) (*EffectiveAssignment, error)
}

type assignmentService struct {
	repo     *repository.Repository
	notifier Notifier
	logger   *zap.Logger
}

// NewAssignmentService 创建 AssignmentService 实例
func NewAssignmentService(repo *repository.Repository, notifier Notifier, logger *zap.Logger) AssignmentService {
	return &assignmentService{repo: repo, notifier: notifier, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *assignmentService) Create(ctx context.Context, req *dto.CreateAssignmentRequest, actor Actor) (*dto.AssignmentDetailResponse, error) {
	if !model.IsValidAssignmentType(req.Type) {
		return nil, pkgerrors.NewFieldError("type", ErrInvalidAssignmentType, "未知的作业类型 %q", req.Type)
	}

	a := &model.Assignment{
		SessionID:     req.SessionID,
		Title:         req.Title,
		Description:   req.Description,
		Type:          req.Type,
		CorrectAnswer: req.CorrectAnswer,
		Options:       datatypes.JSON(jsonColumn(req.Options)),
		Score:         req.Score,
		Deadline:      req.Deadline,
		AllowLate:     req.AllowLate,
		Status:        req.Status,
	}
	if a.Score <= 0 {
		a.Score = 1
	}
	if a.Status == "" {
		a.Status = model.AssignmentStatusDraft
	}

	var (
		session   *model.ClassSession
		recipient []int64
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sess, course, err := loadSessionCourse(ctx, tx, req.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return pkgerrors.NewFieldError("session_id", ErrSessionNotFound, "课次 %d 不存在", req.SessionID)
			}
			return err
		}
		if !canManageCourse(actor, course) {
			return ErrNoPermission
		}

		if err := tx.Assignment.Create(ctx, a); err != nil {
			return fmt.Errorf("创建作业失败: %w", err)
		}

		if a.IsPublished() {
			ids, err := tx.Enrollment.ListEligibleStudentIDs(ctx, course.ID)
			if err != nil {
				return fmt.Errorf("查询课程学生失败: %w", err)
			}
			recipient = ids
		}
		session = sess
		return nil
	})
	if err != nil {
		s.logIfUnexpected("创建作业失败", req.SessionID, err)
		return nil, err
	}

	if len(recipient) > 0 {
		s.notifier.NotifyUsers(ctx, recipient, actor.ID, noticeAssignmentPublished(a.Title, session.Title, session.ID))
	}
	return s.toDetailResponse(a, nil), nil
}

// ────────────────────── GetDetail ──────────────────────

func (s *assignmentService) GetDetail(ctx context.Context, id int64, actor Actor) (*dto.AssignmentDetailResponse, error) {
	a, _, course, err := loadAssignmentChain(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, course) {
		return nil, ErrNoPermission
	}

	ps, err := s.repo.Personalization.ListByAssignment(ctx, id)
	if err != nil {
		s.logger.Error("查询作业个性化失败", zap.Int64("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return s.toDetailResponse(a, ps), nil
}

// ────────────────────── Update ──────────────────────

func (s *assignmentService) Update(ctx context.Context, id int64, req *dto.UpdateAssignmentRequest, actor Actor) (*dto.AssignmentDetailResponse, error) {
	var (
		updated   *model.Assignment
		session   *model.ClassSession
		recipient []int64
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, sess, course, err := loadAssignmentChain(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, course) {
			return ErrNoPermission
		}
		wasPublished := a.IsPublished()

		if req.Title != nil {
			a.Title = *req.Title
		}
		if req.Description != nil {
			a.Description = req.Description
		}
		if req.Type != nil {
			if !model.IsValidAssignmentType(*req.Type) {
				return pkgerrors.NewFieldError("type", ErrInvalidAssignmentType, "未知的作业类型 %q", *req.Type)
			}
			a.Type = *req.Type
		}
		if req.CorrectAnswer != nil {
			a.CorrectAnswer = req.CorrectAnswer
		}
		if req.Options != nil {
			a.Options = datatypes.JSON(jsonColumn(req.Options))
		}
		if req.Score != nil {
			a.Score = *req.Score
		}
		if req.Deadline != nil {
			a.Deadline = *req.Deadline
		}
		if req.AllowLate != nil {
			a.AllowLate = *req.AllowLate
		}
		if req.Status != nil {
			a.Status = *req.Status
		}

		if err := tx.Assignment.Update(ctx, a); err != nil {
			return fmt.Errorf("更新作业失败: %w", err)
		}

		// 仅在转为 published 时通知
		if !wasPublished && a.IsPublished() {
			ids, err := tx.Enrollment.ListEligibleStudentIDs(ctx, course.ID)
			if err != nil {
				return fmt.Errorf("查询课程学生失败: %w", err)
			}
			recipient = ids
		}
		updated, session = a, sess
		return nil
	})
	if err != nil {
		s.logIfUnexpected("更新作业失败", id, err)
		return nil, err
	}

	if len(recipient) > 0 {
		s.notifier.NotifyUsers(ctx, recipient, actor.ID, noticeAssignmentPublished(updated.Title, session.Title, session.ID))
	}

	ps, err := s.repo.Personalization.ListByAssignment(ctx, id)
	if err != nil {
		s.logger.Error("查询作业个性化失败", zap.Int64("assignment_id", id), zap.Error(err))
		return nil, err
	}
	return s.toDetailResponse(updated, ps), nil
}

// ────────────────────── Delete ──────────────────────

func (s *assignmentService) Delete(ctx context.Context, id int64, actor Actor) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		_, _, course, err := loadAssignmentChain(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, course) {
			return ErrNoPermission
		}

		count, err := tx.Submission.CountByAssignment(ctx, id)
		if err != nil {
			return fmt.Errorf("统计作业提交失败: %w", err)
		}
		if count > 0 {
			return pkgerrors.NewFieldError("assignment", ErrAssignmentHasSubmissions, "作业已有 %d 条提交", count)
		}

		if err := tx.Personalization.DeleteByAssignment(ctx, id); err != nil {
			return fmt.Errorf("删除作业个性化失败: %w", err)
		}
		return tx.Assignment.Delete(ctx, id)
	})
	if err != nil {
		s.logIfUnexpected("删除作业失败", id, err)
	}
	return err
}

// ────────────────────── UpsertPersonalizations ──────────────────────

func (s *assignmentService) UpsertPersonalizations(ctx context.Context, id int64, items []dto.PersonalizationItem, actor Actor) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		a, _, course, err := loadAssignmentChain(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, course) {
			return ErrNoPermission
		}

		studentIDs := make([]int64, 0, len(items))
		for _, it := range items {
			studentIDs = append(studentIDs, it.StudentID)
		}
		allowed, err := tx.Enrollment.FilterEligibleStudentIDs(ctx, course.ID, studentIDs)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		if invalid := diffIDs(studentIDs, allowed); len(invalid) > 0 {
			return pkgerrors.NewFieldError("personalizations", ErrInvalidStudents, "以下学生未在该课程中有效报名: %v", invalid)
		}

		// 同一学生出现多次时以最后一条为准
		byStudent := make(map[int64]int, len(items))
		rows := make([]model.AssignmentPersonalization, 0, len(items))
		for _, it := range items {
			if it.CustomType != nil && !model.IsValidAssignmentType(*it.CustomType) {
				return pkgerrors.NewFieldError("custom_type", ErrInvalidAssignmentType, "未知的作业类型 %q", *it.CustomType)
			}
			row := model.AssignmentPersonalization{
				AssignmentID:        a.ID,
				StudentID:           it.StudentID,
				CustomTitle:         it.CustomTitle,
				CustomDescription:   it.CustomDescription,
				CustomType:          it.CustomType,
				CustomOptions:       datatypes.JSON(jsonColumn(it.CustomOptions)),
				CustomCorrectAnswer: it.CustomCorrectAnswer,
				CustomDeadline:      it.CustomDeadline,
				CustomScore:         it.CustomScore,
				CreatedBy:           actor.ID,
			}
			if idx, ok := byStudent[it.StudentID]; ok {
				rows[idx] = row
				continue
			}
			byStudent[it.StudentID] = len(rows)
			rows = append(rows, row)
		}

		if err := tx.Personalization.Upsert(ctx, rows); err != nil {
			return fmt.Errorf("写入作业个性化失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logIfUnexpected("设置作业个性化失败", id, err)
	}
	return err
}

// ────────────────────── EffectiveAssignmentForStudent ──────────────────────

func (s *assignmentService) EffectiveAssignmentForStudent(ctx context.Context, id, studentID int64) (*EffectiveAssignment, error) {
	a, _, course, err := loadAssignmentChain(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	// 学生看不到草稿
	if a.Status == model.AssignmentStatusDraft {
		return nil, ErrAssignmentNotFound
	}

	allowed, err := s.repo.Enrollment.FilterEligibleStudentIDs(ctx, course.ID, []int64{studentID})
	if err != nil {
		s.logger.Error("查询报名失败", zap.Int64("course_id", course.ID), zap.Error(err))
		return nil, err
	}
	if len(allowed) == 0 {
		return nil, ErrNotEnrolled
	}

	p, err := findPersonalization(ctx, s.repo, a.ID, studentID)
	if err != nil {
		s.logger.Error("查询作业个性化失败", zap.Int64("assignment_id", id), zap.Error(err))
		return nil, err
	}
	eff := EffectiveAssignmentFor(a, p)
	return &eff, nil
}

// ── 辅助方法 ──

func (s *assignmentService) toDetailResponse(a *model.Assignment, ps []model.AssignmentPersonalization) *dto.AssignmentDetailResponse {
	resp := &dto.AssignmentDetailResponse{
		AssignmentResponse: AssignmentResponseOf(a),
		CorrectAnswer:      a.CorrectAnswer,
		Personalizations:   make([]dto.PersonalizationResponse, 0, len(ps)),
	}
	for i := range ps {
		resp.Personalizations = append(resp.Personalizations, personalizationResponseOf(&ps[i]))
	}
	return resp
}

// logIfUnexpected 业务错误不记日志，基础设施错误与数据完整性错误记 Error
func (s *assignmentService) logIfUnexpected(msg string, id int64, err error) {
	if isExpectedError(err) {
		return
	}
	s.logger.Error(msg, zap.Int64("id", id), zap.Error(err))
}

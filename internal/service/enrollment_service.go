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

// ── 报名模块业务错误 ──

var (
	ErrRegistrationClosed     = errors.New("课程报名已截止")
	ErrCourseFull             = errors.New("课程名额已满")
	ErrAlreadyEnrolled        = errors.New("学生已报名该课程")
	ErrConfirmRequiresPayment = errors.New("未付款的报名不能确认")
	ErrNotStudent             = errors.New("目标用户不是学生")
)

// EnrollmentService 报名业务接口
type EnrollmentService interface {
	// ManualEnroll 管理员/教师直接为学生报名，记录为 confirmed + paid
	ManualEnroll(ctx context.Context, req *dto.ManualEnrollRequest, actor Actor) (*dto.EnrollmentResponse, error)
	// SelfEnroll 学生自助报名，记录为 pending + unpaid，可同时使用折扣码
	SelfEnroll(ctx context.Context, req *dto.SelfEnrollRequest, studentID int64) (*dto.EnrollmentResponse, error)
	VerifyOrUpdate(ctx context.Context, id int64, req *dto.UpdateEnrollmentRequest, actor Actor) (*dto.EnrollmentResponse, error)
	Cancel(ctx context.Context, id int64, actor Actor) (*dto.EnrollmentResponse, error)
}

type enrollmentService struct {
	repo     *repository.Repository
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, notifier Notifier, clock Clock, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, notifier: notifier, clock: clock, logger: logger}
}

// ────────────────────── ManualEnroll ──────────────────────

func (s *enrollmentService) ManualEnroll(ctx context.Context, req *dto.ManualEnrollRequest, actor Actor) (*dto.EnrollmentResponse, error) {
	var (
		created *model.Enrollment
		course  *model.Course
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		c, err := s.openCourse(ctx, tx, req.CourseID)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}
		if err := s.checkStudent(ctx, tx, req.StudentID); err != nil {
			return err
		}
		if err := s.checkNotEnrolled(ctx, tx, req.StudentID, c.ID); err != nil {
			return err
		}

		e := &model.Enrollment{
			StudentID:     req.StudentID,
			CourseID:      c.ID,
			Status:        model.EnrollmentStatusConfirmed,
			PaymentStatus: model.PaymentStatusPaid,
			PaidAmount:    c.Price,
			EnrolledAt:    s.clock.Now(),
		}
		if req.PaidAmount != nil {
			e.PaidAmount = *req.PaidAmount
		}
		if err := tx.Enrollment.Create(ctx, e); err != nil {
			if repository.IsUniqueViolation(err) {
				return pkgerrors.NewFieldError("student_id", ErrAlreadyEnrolled, "学生 %d 已报名课程 %d", req.StudentID, c.ID)
			}
			return fmt.Errorf("创建报名失败: %w", err)
		}

		created, course = e, c
		return nil
	})
	if err != nil {
		s.logIfUnexpected("手动报名失败", req.CourseID, err)
		return nil, err
	}

	s.notifier.NotifyUser(ctx, created.StudentID, actor.ID, noticeEnrollmentConfirmed(course.Title, course.ID))
	return enrollmentResponseOf(created), nil
}

// ────────────────────── SelfEnroll ──────────────────────

func (s *enrollmentService) SelfEnroll(ctx context.Context, req *dto.SelfEnrollRequest, studentID int64) (*dto.EnrollmentResponse, error) {
	var (
		created  *model.Enrollment
		discount *model.DiscountCode
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		c, err := s.openCourse(ctx, tx, req.CourseID)
		if err != nil {
			return err
		}
		if err := s.checkNotEnrolled(ctx, tx, studentID, c.ID); err != nil {
			return err
		}

		e := &model.Enrollment{
			StudentID:     studentID,
			CourseID:      c.ID,
			Status:        model.EnrollmentStatusPending,
			PaymentStatus: model.PaymentStatusUnpaid,
			EnrolledAt:    s.clock.Now(),
		}
		if err := tx.Enrollment.Create(ctx, e); err != nil {
			if repository.IsUniqueViolation(err) {
				return pkgerrors.NewFieldError("course_id", ErrAlreadyEnrolled, "已报名课程 %d", c.ID)
			}
			return fmt.Errorf("创建报名失败: %w", err)
		}

		if req.DiscountCode != nil && model.NormalizeDiscountCode(*req.DiscountCode) != "" {
			d, err := applyDiscountInTx(ctx, tx, *req.DiscountCode, studentID, e.ID, s.clock.Now())
			if err != nil {
				return err
			}
			e.DiscountCodeID = &d.ID
			discount = d
		}

		created = e
		return nil
	})
	if err != nil {
		s.logIfUnexpected("自助报名失败", req.CourseID, err)
		return nil, err
	}

	if discount != nil {
		s.notifier.NotifyUser(ctx, studentID, studentID, noticeDiscountApplied(discount.Code, discount.Percentage, created.CourseID))
	}
	return enrollmentResponseOf(created), nil
}

// ────────────────────── VerifyOrUpdate ──────────────────────

func (s *enrollmentService) VerifyOrUpdate(ctx context.Context, id int64, req *dto.UpdateEnrollmentRequest, actor Actor) (*dto.EnrollmentResponse, error) {
	var (
		updated *model.Enrollment
		course  *model.Course
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, c, err := s.lockEnrollment(ctx, tx, id)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		newStatus := e.Status
		if req.Status != nil {
			newStatus = *req.Status
		}
		newPayment := e.PaymentStatus
		if req.PaymentStatus != nil {
			newPayment = *req.PaymentStatus
		}
		if newStatus == model.EnrollmentStatusConfirmed && newPayment != model.PaymentStatusPaid {
			return pkgerrors.NewFieldError("status", ErrConfirmRequiresPayment, "付款状态为 %s，不能确认报名", newPayment)
		}

		e.Status = newStatus
		e.PaymentStatus = newPayment
		if req.PaidAmount != nil {
			e.PaidAmount = *req.PaidAmount
		}
		if req.FinalScore != nil {
			e.FinalScore = req.FinalScore
		}
		if req.CertificateIssued != nil {
			e.CertificateIssued = *req.CertificateIssued
		}
		if err := tx.Enrollment.Update(ctx, e); err != nil {
			return fmt.Errorf("更新报名失败: %w", err)
		}

		updated, course = e, c
		return nil
	})
	if err != nil {
		s.logIfUnexpected("更新报名失败", id, err)
		return nil, err
	}

	if req.Status != nil || req.PaymentStatus != nil {
		s.notifier.NotifyUser(ctx, updated.StudentID, actor.ID, noticeEnrollmentUpdated(course.Title, course.ID))
	}
	return enrollmentResponseOf(updated), nil
}

// ────────────────────── Cancel ──────────────────────

func (s *enrollmentService) Cancel(ctx context.Context, id int64, actor Actor) (*dto.EnrollmentResponse, error) {
	var (
		cancelled *model.Enrollment
		course    *model.Course
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, c, err := s.lockEnrollment(ctx, tx, id)
		if err != nil {
			return err
		}
		// 学生只能取消自己尚未审核的报名
		ownPending := e.StudentID == actor.ID && e.Status == model.EnrollmentStatusPending
		if !canManageCourse(actor, c) && !ownPending {
			return ErrNoPermission
		}

		if e.Status != model.EnrollmentStatusCancelled {
			e.Status = model.EnrollmentStatusCancelled
			if err := tx.Enrollment.Update(ctx, e); err != nil {
				return fmt.Errorf("取消报名失败: %w", err)
			}
		}

		cancelled, course = e, c
		return nil
	})
	if err != nil {
		s.logIfUnexpected("取消报名失败", id, err)
		return nil, err
	}

	s.notifier.NotifyUser(ctx, cancelled.StudentID, actor.ID, noticeEnrollmentCancelled(course.Title, course.ID))
	return enrollmentResponseOf(cancelled), nil
}

// ── 辅助方法 ──

// openCourse 锁定课程行并检查报名是否开放、是否满员
func (s *enrollmentService) openCourse(ctx context.Context, tx *repository.Repository, courseID int64) (*model.Course, error) {
	c, err := tx.Course.GetByIDForUpdate(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, pkgerrors.NewFieldError("course_id", ErrCourseNotFound, "课程 %d 不存在", courseID)
		}
		return nil, fmt.Errorf("查询课程失败: %w", err)
	}
	if !c.IsRegistrationOpen(s.clock.Now()) {
		return nil, pkgerrors.NewFieldError("course_id", ErrRegistrationClosed, "课程「%s」报名已截止", c.Title)
	}

	active, err := tx.Enrollment.CountActive(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("统计课程报名人数失败: %w", err)
	}
	if c.IsFull(active) {
		return nil, pkgerrors.NewFieldError("course_id", ErrCourseFull, "课程「%s」最多 %d 人", c.Title, c.CapacityMax)
	}
	return c, nil
}

func (s *enrollmentService) checkStudent(ctx context.Context, tx *repository.Repository, studentID int64) error {
	u, err := tx.User.GetByID(ctx, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return pkgerrors.NewFieldError("student_id", ErrUserNotFound, "用户 %d 不存在", studentID)
		}
		return fmt.Errorf("查询用户失败: %w", err)
	}
	if u.Role != model.RoleStudent {
		return pkgerrors.NewFieldError("student_id", ErrNotStudent, "用户 %d 的角色为 %s", studentID, u.Role)
	}
	return nil
}

func (s *enrollmentService) checkNotEnrolled(ctx context.Context, tx *repository.Repository, studentID, courseID int64) error {
	_, err := tx.Enrollment.GetByStudentAndCourse(ctx, studentID, courseID)
	if err == nil {
		return pkgerrors.NewFieldError("student_id", ErrAlreadyEnrolled, "学生 %d 已报名课程 %d", studentID, courseID)
	}
	if !repository.IsNotFound(err) {
		return fmt.Errorf("查询报名失败: %w", err)
	}
	return nil
}

func (s *enrollmentService) lockEnrollment(ctx context.Context, tx *repository.Repository, id int64) (*model.Enrollment, *model.Course, error) {
	e, err := tx.Enrollment.GetByIDForUpdate(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrEnrollmentNotFound
		}
		return nil, nil, fmt.Errorf("查询报名失败: %w", err)
	}
	c, err := tx.Course.GetByID(ctx, e.CourseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, pkgerrors.Fatal(ErrBrokenReference, "报名 %d 关联的课程 %d 不存在", e.ID, e.CourseID)
		}
		return nil, nil, fmt.Errorf("查询课程失败: %w", err)
	}
	return e, c, nil
}

func (s *enrollmentService) logIfUnexpected(msg string, id int64, err error) {
	if isExpectedError(err) {
		return
	}
	s.logger.Error(msg, zap.Int64("id", id), zap.Error(err))
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
)

// ── 折扣码模块业务错误 ──

var (
	ErrDiscountNotFound   = errors.New("折扣码不存在")
	ErrDiscountExpired    = errors.New("折扣码已过期")
	ErrDiscountInactive   = errors.New("折扣码未启用")
	ErrDiscountRestricted = errors.New("折扣码仅限指定用户使用")
	ErrDiscountExhausted  = errors.New("折扣码使用次数已用完")
	ErrDiscountCodeExists = errors.New("折扣码已存在")
	ErrDiscountInUse      = errors.New("折扣码已被报名使用，无法删除")
	ErrEnrollmentNotFound = errors.New("报名记录不存在")
)

// DiscountService 折扣码业务接口
type DiscountService interface {
	// ApplyToEnrollment 在事务内锁定折扣码行、重新校验并挂到报名上
	// actorID 为空时通知创建者即 userID
	ApplyToEnrollment(ctx context.Context, code string, userID, enrollmentID int64, actorID *int64) (*model.DiscountCode, error)
	ClearFromEnrollment(ctx context.Context, enrollmentID int64) error
	Validate(ctx context.Context, code string, userID int64) (*dto.DiscountValidationResponse, error)

	Create(ctx context.Context, req *dto.CreateDiscountCodeRequest) (*dto.DiscountCodeResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.DiscountCodeResponse, error)
	List(ctx context.Context, req *dto.DiscountCodeListRequest) ([]dto.DiscountCodeResponse, int64, error)
	Update(ctx context.Context, id int64, req *dto.UpdateDiscountCodeRequest) (*dto.DiscountCodeResponse, error)
	Delete(ctx context.Context, id int64) error
}

type discountService struct {
	repo     *repository.Repository
	notifier Notifier
	clock    Clock
	logger   *zap.Logger
}

// NewDiscountService 创建 DiscountService 实例
func NewDiscountService(repo *repository.Repository, notifier Notifier, clock Clock, logger *zap.Logger) DiscountService {
	return &discountService{repo: repo, notifier: notifier, clock: clock, logger: logger}
}

// ValidateForUser 判断折扣码对 userID 是否可用
// 检查顺序：过期（优先于未启用）→ 未启用 → 限定用户 → 次数用尽
func ValidateForUser(d *model.DiscountCode, userID, usedCount int64, now time.Time) error {
	if d.CanBeUsedBy(userID, usedCount, now) {
		return nil
	}
	if !d.IsAvailable(now) {
		if d.IsExpired(now) {
			return pkgerrors.NewFieldError("code", ErrDiscountExpired, "折扣码 %s 已于 %s 过期", d.Code, d.ExpiresAt.Format("2006-01-02 15:04"))
		}
		return pkgerrors.NewFieldError("code", ErrDiscountInactive, "折扣码 %s 未启用", d.Code)
	}
	if d.IsRestricted() && *d.UserID != userID {
		return pkgerrors.NewFieldError("code", ErrDiscountRestricted, "折扣码 %s 不适用于当前用户", d.Code)
	}
	return pkgerrors.NewFieldError("code", ErrDiscountExhausted, "折扣码 %s 最多使用 %d 次", d.Code, *d.MaxUses)
}

// ═══════════════════════════════════════════════════════════
// ApplyToEnrollment — 应用折扣码
// ═══════════════════════════════════════════════════════════

func (s *discountService) ApplyToEnrollment(ctx context.Context, code string, userID, enrollmentID int64, actorID *int64) (*model.DiscountCode, error) {
	var (
		applied    *model.DiscountCode
		enrollment *model.Enrollment
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, err := tx.Enrollment.GetByIDForUpdate(ctx, enrollmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("查询报名失败: %w", err)
		}
		if e.StudentID != userID {
			return ErrNoPermission
		}

		d, err := applyDiscountInTx(ctx, tx, code, userID, e.ID, s.clock.Now())
		if err != nil {
			return err
		}
		applied, enrollment = d, e
		return nil
	})
	if err != nil {
		if pkgerrors.IsFatal(err) {
			s.logger.Error("应用折扣码失败: 表结构不匹配", zap.Int64("enrollment_id", enrollmentID), zap.Error(err))
		}
		return nil, err
	}

	creator := userID
	if actorID != nil {
		creator = *actorID
	}
	s.notifier.NotifyUser(ctx, userID, creator, noticeDiscountApplied(applied.Code, applied.Percentage, enrollment.CourseID))
	return applied, nil
}

// applyDiscountInTx 锁定折扣码行，在锁内重新校验后写入 enrollments.discount_code_id
func applyDiscountInTx(ctx context.Context, tx *repository.Repository, code string, userID, enrollmentID int64, now time.Time) (*model.DiscountCode, error) {
	normalized := model.NormalizeDiscountCode(code)

	d, err := tx.DiscountCode.GetByCodeForUpdate(ctx, normalized)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, pkgerrors.NewFieldError("code", ErrDiscountNotFound, "折扣码 %s 不存在", normalized)
		}
		return nil, fmt.Errorf("查询折扣码失败: %w", err)
	}

	used, err := tx.Enrollment.CountByDiscountCode(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("统计折扣码使用次数失败: %w", err)
	}
	if err := ValidateForUser(d, userID, used, now); err != nil {
		return nil, err
	}

	if err := tx.Enrollment.SetDiscountCode(ctx, enrollmentID, &d.ID); err != nil {
		switch {
		case repository.IsUndefinedColumn(err):
			return nil, pkgerrors.Fatal(ErrSchemaMismatch, "enrollments 表缺少 discount_code_id 列")
		case repository.IsNotFound(err):
			return nil, ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("写入报名折扣码失败: %w", err)
	}
	return d, nil
}

// ═══════════════════════════════════════════════════════════
// ClearFromEnrollment — 清除报名上的折扣码（不发通知）
// ═══════════════════════════════════════════════════════════

func (s *discountService) ClearFromEnrollment(ctx context.Context, enrollmentID int64) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		e, err := tx.Enrollment.GetByIDForUpdate(ctx, enrollmentID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrEnrollmentNotFound
			}
			return fmt.Errorf("查询报名失败: %w", err)
		}
		if !e.HasDiscount() {
			return nil
		}
		if err := tx.Enrollment.SetDiscountCode(ctx, e.ID, nil); err != nil {
			if repository.IsUndefinedColumn(err) {
				return pkgerrors.Fatal(ErrSchemaMismatch, "enrollments 表缺少 discount_code_id 列")
			}
			return fmt.Errorf("清除报名折扣码失败: %w", err)
		}
		return nil
	})
}

// ═══════════════════════════════════════════════════════════
// Validate — 只读校验
// ═══════════════════════════════════════════════════════════

func (s *discountService) Validate(ctx context.Context, code string, userID int64) (*dto.DiscountValidationResponse, error) {
	normalized := model.NormalizeDiscountCode(code)
	d, err := s.repo.DiscountCode.GetByCode(ctx, normalized)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, pkgerrors.NewFieldError("code", ErrDiscountNotFound, "折扣码 %s 不存在", normalized)
		}
		s.logger.Error("查询折扣码失败", zap.String("code", normalized), zap.Error(err))
		return nil, err
	}

	used, err := s.repo.Enrollment.CountByDiscountCode(ctx, d.ID)
	if err != nil {
		s.logger.Error("统计折扣码使用次数失败", zap.Int64("discount_code_id", d.ID), zap.Error(err))
		return nil, err
	}
	if err := ValidateForUser(d, userID, used, s.clock.Now()); err != nil {
		return nil, err
	}

	return &dto.DiscountValidationResponse{
		ID:            d.ID,
		Code:          d.Code,
		Percentage:    d.Percentage,
		MaxUses:       d.MaxUses,
		RemainingUses: d.RemainingUses(used),
		ExpiresAt:     formatTimePtr(d.ExpiresAt),
		Active:        d.Active,
		Restricted:    d.IsRestricted(),
	}, nil
}

// ────────────────────── Create ──────────────────────

func (s *discountService) Create(ctx context.Context, req *dto.CreateDiscountCodeRequest) (*dto.DiscountCodeResponse, error) {
	d := &model.DiscountCode{
		Code:       model.NormalizeDiscountCode(req.Code),
		Percentage: req.Percentage,
		MaxUses:    req.MaxUses,
		UserID:     req.UserID,
		Active:     true,
		ExpiresAt:  req.ExpiresAt,
	}
	if req.Active != nil {
		d.Active = *req.Active
	}

	if err := s.checkCodeFree(ctx, d.Code, 0); err != nil {
		return nil, err
	}
	if err := s.checkUser(ctx, d.UserID); err != nil {
		return nil, err
	}

	if err := s.repo.DiscountCode.Create(ctx, d); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDiscountCodeExists
		}
		s.logger.Error("创建折扣码失败", zap.String("code", d.Code), zap.Error(err))
		return nil, err
	}

	return s.toDiscountCodeResponse(d, 0), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *discountService) GetByID(ctx context.Context, id int64) (*dto.DiscountCodeResponse, error) {
	d, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}
	used, err := s.repo.Enrollment.CountByDiscountCode(ctx, d.ID)
	if err != nil {
		s.logger.Error("统计折扣码使用次数失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.toDiscountCodeResponse(d, used), nil
}

// ────────────────────── List ──────────────────────

func (s *discountService) List(ctx context.Context, req *dto.DiscountCodeListRequest) ([]dto.DiscountCodeResponse, int64, error) {
	filter := repository.DiscountCodeFilter{
		Code:   model.NormalizeDiscountCode(req.Code),
		Active: req.Active,
		UserID: req.UserID,
	}

	codes, total, err := s.repo.DiscountCode.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出折扣码失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.DiscountCodeResponse, 0, len(codes))
	for i := range codes {
		used, err := s.repo.Enrollment.CountByDiscountCode(ctx, codes[i].ID)
		if err != nil {
			s.logger.Error("统计折扣码使用次数失败", zap.Int64("id", codes[i].ID), zap.Error(err))
			return nil, 0, err
		}
		result = append(result, *s.toDiscountCodeResponse(&codes[i], used))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *discountService) Update(ctx context.Context, id int64, req *dto.UpdateDiscountCodeRequest) (*dto.DiscountCodeResponse, error) {
	d, err := s.getByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		code := model.NormalizeDiscountCode(*req.Code)
		if code != d.Code {
			if err := s.checkCodeFree(ctx, code, d.ID); err != nil {
				return nil, err
			}
			d.Code = code
		}
	}
	if req.Percentage != nil {
		d.Percentage = *req.Percentage
	}
	if req.MaxUses != nil {
		d.MaxUses = req.MaxUses
	}
	if req.ClearMaxUses {
		d.MaxUses = nil
	}
	if req.UserID != nil {
		if err := s.checkUser(ctx, req.UserID); err != nil {
			return nil, err
		}
		d.UserID = req.UserID
	}
	if req.ClearUserID {
		d.UserID = nil
	}
	if req.Active != nil {
		d.Active = *req.Active
	}
	if req.ExpiresAt != nil {
		d.ExpiresAt = req.ExpiresAt
	}
	if req.ClearExpiresAt {
		d.ExpiresAt = nil
	}

	if err := s.repo.DiscountCode.Update(ctx, d); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDiscountCodeExists
		}
		s.logger.Error("更新折扣码失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}

	used, err := s.repo.Enrollment.CountByDiscountCode(ctx, d.ID)
	if err != nil {
		s.logger.Error("统计折扣码使用次数失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return s.toDiscountCodeResponse(d, used), nil
}

// ────────────────────── Delete ──────────────────────

func (s *discountService) Delete(ctx context.Context, id int64) error {
	return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.DiscountCode.GetByID(ctx, id); err != nil {
			if repository.IsNotFound(err) {
				return ErrDiscountNotFound
			}
			return fmt.Errorf("查询折扣码失败: %w", err)
		}

		used, err := tx.Enrollment.CountByDiscountCode(ctx, id)
		if err != nil {
			return fmt.Errorf("统计折扣码使用次数失败: %w", err)
		}
		if used > 0 {
			return pkgerrors.NewFieldError("code", ErrDiscountInUse, "已有 %d 条报名使用该折扣码", used)
		}

		return tx.DiscountCode.Delete(ctx, id)
	})
}

// ── 辅助方法 ──

func (s *discountService) getByID(ctx context.Context, id int64) (*model.DiscountCode, error) {
	d, err := s.repo.DiscountCode.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrDiscountNotFound
		}
		s.logger.Error("查询折扣码失败", zap.Int64("id", id), zap.Error(err))
		return nil, err
	}
	return d, nil
}

// checkCodeFree 检查折扣码是否已被其他记录占用
func (s *discountService) checkCodeFree(ctx context.Context, code string, selfID int64) error {
	existing, err := s.repo.DiscountCode.GetByCode(ctx, code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		s.logger.Error("查询折扣码失败", zap.String("code", code), zap.Error(err))
		return err
	}
	if existing.ID != selfID {
		return pkgerrors.NewFieldError("code", ErrDiscountCodeExists, "折扣码 %s 已存在", code)
	}
	return nil
}

func (s *discountService) checkUser(ctx context.Context, userID *int64) error {
	if userID == nil {
		return nil
	}
	if _, err := s.repo.User.GetByID(ctx, *userID); err != nil {
		if repository.IsNotFound(err) {
			return pkgerrors.NewFieldError("user_id", ErrUserNotFound, "用户 %d 不存在", *userID)
		}
		s.logger.Error("查询用户失败", zap.Int64("user_id", *userID), zap.Error(err))
		return err
	}
	return nil
}

func (s *discountService) toDiscountCodeResponse(d *model.DiscountCode, used int64) *dto.DiscountCodeResponse {
	return &dto.DiscountCodeResponse{
		ID:            d.ID,
		Code:          d.Code,
		Percentage:    d.Percentage,
		MaxUses:       d.MaxUses,
		UserID:        d.UserID,
		Active:        d.Active,
		ExpiresAt:     formatTimePtr(d.ExpiresAt),
		UsedCount:     used,
		RemainingUses: d.RemainingUses(used),
		CreatedAt:     formatTime(d.CreatedAt),
		UpdatedAt:     formatTime(d.UpdatedAt),
	}
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elearning/backend/internal/model"
)

// EnrollmentRepository 报名数据访问接口
type EnrollmentRepository interface {
	Create(ctx context.Context, e *model.Enrollment) error
	GetByID(ctx context.Context, id int64) (*model.Enrollment, error)
	// GetByIDForUpdate 对报名行加 FOR UPDATE 锁，须在事务中调用
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error)
	// GetEligibleForUpdate 锁定学生在课程中 confirmed/completed 的报名行
	GetEligibleForUpdate(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error)
	Update(ctx context.Context, e *model.Enrollment) error
	SetDiscountCode(ctx context.Context, enrollmentID int64, discountCodeID *int64) error

	ListEligibleStudentIDs(ctx context.Context, courseID int64) ([]int64, error)
	// FilterEligibleStudentIDs 返回 studentIDs 中报名有效的子集
	FilterEligibleStudentIDs(ctx context.Context, courseID int64, studentIDs []int64) ([]int64, error)
	CountActive(ctx context.Context, courseID int64) (int64, error)
	CountByDiscountCode(ctx context.Context, discountCodeID int64) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, e *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	var e model.Enrollment
	if err := r.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&e, id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByStudentAndCourse(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetEligibleForUpdate(ctx context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("student_id = ? AND course_id = ? AND status IN ?", studentID, courseID, model.EligibleEnrollmentStatuses).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) Update(ctx context.Context, e *model.Enrollment) error {
	return r.db.WithContext(ctx).
		Model(e).
		Select("status", "payment_status", "paid_amount", "final_score", "certificate_issued", "updated_at").
		Updates(e).Error
}

func (r *enrollmentRepo) SetDiscountCode(ctx context.Context, enrollmentID int64, discountCodeID *int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id = ?", enrollmentID).
		Updates(map[string]interface{}{
			"discount_code_id": discountCodeID,
			"updated_at":       gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *enrollmentRepo) ListEligibleStudentIDs(ctx context.Context, courseID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND status IN ?", courseID, model.EligibleEnrollmentStatuses).
		Order("student_id").
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *enrollmentRepo) FilterEligibleStudentIDs(ctx context.Context, courseID int64, studentIDs []int64) ([]int64, error) {
	var ids []int64
	if len(studentIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND status IN ? AND student_id IN ?", courseID, model.EligibleEnrollmentStatuses, studentIDs).
		Pluck("student_id", &ids).Error
	return ids, err
}

func (r *enrollmentRepo) CountActive(ctx context.Context, courseID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_id = ? AND status NOT IN ?", courseID, model.InactiveEnrollmentStatuses).
		Count(&n).Error
	return n, err
}

func (r *enrollmentRepo) CountByDiscountCode(ctx context.Context, discountCodeID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("discount_code_id = ?", discountCodeID).
		Count(&n).Error
	return n, err
}

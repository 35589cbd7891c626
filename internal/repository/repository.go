package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxRunner 在事务中执行 fn，fn 返回 nil 时提交，否则回滚
type TxRunner func(ctx context.Context, fn func(txRepo *Repository) error) error

// Repository 所有 Repository 的聚合入口
type Repository struct {
	User            UserRepository
	Course          CourseRepository
	Enrollment      EnrollmentRepository
	ClassSession    ClassSessionRepository
	Assignment      AssignmentRepository
	Personalization PersonalizationRepository
	Submission      SubmissionRepository
	DiscountCode    DiscountCodeRepository
	Notification    NotificationRepository
	Attendance      AttendanceRepository
	Material        SessionMaterialRepository

	// TxRunner 为 nil 时 Transaction 直接在当前 Repository 上执行 fn
	// （事务内的 Repository 与单元测试的内存实现都是这种情况）
	TxRunner TxRunner
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	r := newRepositories(db)
	r.TxRunner = func(ctx context.Context, fn func(txRepo *Repository) error) error {
		return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(WithTx(tx))
		})
	}
	return r
}

// WithTx 返回绑定到事务 tx 的 Repository
func WithTx(tx *gorm.DB) *Repository {
	return newRepositories(tx)
}

func newRepositories(db *gorm.DB) *Repository {
	return &Repository{
		User:            NewUserRepo(db),
		Course:          NewCourseRepo(db),
		Enrollment:      NewEnrollmentRepo(db),
		ClassSession:    NewClassSessionRepo(db),
		Assignment:      NewAssignmentRepo(db),
		Personalization: NewPersonalizationRepo(db),
		Submission:      NewSubmissionRepo(db),
		DiscountCode:    NewDiscountCodeRepo(db),
		Notification:    NewNotificationRepo(db),
		Attendance:      NewAttendanceRepo(db),
		Material:        NewSessionMaterialRepo(db),
	}
}

// Transaction 在一个事务中执行 fn
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.TxRunner == nil {
		return fn(r)
	}
	return r.TxRunner(ctx, fn)
}

package repository

import (
	"context"

	"gorm.io/gorm"

	"elearning/backend/internal/model"
)

// SubmissionRepository 作业提交数据访问接口
type SubmissionRepository interface {
	Create(ctx context.Context, s *model.Submission) error
	GetByID(ctx context.Context, id int64) (*model.Submission, error)
	Update(ctx context.Context, s *model.Submission) error
	Delete(ctx context.Context, id int64) error
	// MaxAttempt 学生在该作业上的最大 attempt_number，无提交时为 0
	MaxAttempt(ctx context.Context, assignmentID, studentID int64) (int, error)
	// ListByAssignment 按 submitted_at 倒序，预加载学生
	ListByAssignment(ctx context.Context, assignmentID int64) ([]model.Submission, error)
	CountByAssignment(ctx context.Context, assignmentID int64) (int64, error)
}

type submissionRepo struct {
	db *gorm.DB
}

// NewSubmissionRepo 创建 SubmissionRepository 实例
func NewSubmissionRepo(db *gorm.DB) SubmissionRepository {
	return &submissionRepo{db: db}
}

func (r *submissionRepo) Create(ctx context.Context, s *model.Submission) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *submissionRepo) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	var s model.Submission
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) Update(ctx context.Context, s *model.Submission) error {
	return r.db.WithContext(ctx).
		Model(s).
		Select("status", "graded_at", "graded_by", "auto_graded", "score_obtained", "feedback_text", "updated_at").
		Updates(s).Error
}

func (r *submissionRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Submission{}, id).Error
}

func (r *submissionRepo) MaxAttempt(ctx context.Context, assignmentID, studentID int64) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	return max, err
}

func (r *submissionRepo) ListByAssignment(ctx context.Context, assignmentID int64) ([]model.Submission, error) {
	var list []model.Submission
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("assignment_id = ?", assignmentID).
		Order("submitted_at DESC NULLS LAST, id DESC").
		Find(&list).Error
	return list, err
}

func (r *submissionRepo) CountByAssignment(ctx context.Context, assignmentID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Submission{}).
		Where("assignment_id = ?", assignmentID).
		Count(&n).Error
	return n, err
}

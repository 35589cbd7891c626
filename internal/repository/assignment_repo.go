package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elearning/backend/internal/model"
)

// AssignmentRepository 作业数据访问接口
type AssignmentRepository interface {
	Create(ctx context.Context, a *model.Assignment) error
	GetByID(ctx context.Context, id int64) (*model.Assignment, error)
	ListBySession(ctx context.Context, sessionID int64) ([]model.Assignment, error)
	Update(ctx context.Context, a *model.Assignment) error
	Delete(ctx context.Context, id int64) error
}

type assignmentRepo struct {
	db *gorm.DB
}

// NewAssignmentRepo 创建 AssignmentRepository 实例
func NewAssignmentRepo(db *gorm.DB) AssignmentRepository {
	return &assignmentRepo{db: db}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, id int64) (*model.Assignment, error) {
	var a model.Assignment
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.Assignment, error) {
	var list []model.Assignment
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id").
		Find(&list).Error
	return list, err
}

func (r *assignmentRepo) Update(ctx context.Context, a *model.Assignment) error {
	return r.db.WithContext(ctx).
		Model(a).
		Select("title", "description", "type", "correct_answer", "options", "score", "deadline", "allow_late", "status", "updated_at").
		Updates(a).Error
}

func (r *assignmentRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.Assignment{}, id).Error
}

// PersonalizationRepository 作业个性化数据访问接口
type PersonalizationRepository interface {
	Get(ctx context.Context, assignmentID, studentID int64) (*model.AssignmentPersonalization, error)
	ListByAssignment(ctx context.Context, assignmentID int64) ([]model.AssignmentPersonalization, error)
	// Upsert 以 (assignment_id, student_id) 为键插入或覆盖
	Upsert(ctx context.Context, rows []model.AssignmentPersonalization) error
	DeleteByAssignment(ctx context.Context, assignmentID int64) error
}

type personalizationRepo struct {
	db *gorm.DB
}

// NewPersonalizationRepo 创建 PersonalizationRepository 实例
func NewPersonalizationRepo(db *gorm.DB) PersonalizationRepository {
	return &personalizationRepo{db: db}
}

func (r *personalizationRepo) Get(ctx context.Context, assignmentID, studentID int64) (*model.AssignmentPersonalization, error) {
	var p model.AssignmentPersonalization
	err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *personalizationRepo) ListByAssignment(ctx context.Context, assignmentID int64) ([]model.AssignmentPersonalization, error) {
	var list []model.AssignmentPersonalization
	err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("student_id").
		Find(&list).Error
	return list, err
}

func (r *personalizationRepo) Upsert(ctx context.Context, rows []model.AssignmentPersonalization) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"custom_title", "custom_description", "custom_type", "custom_options",
				"custom_correct_answer", "custom_deadline", "custom_score", "created_by", "updated_at",
			}),
		}).
		Create(&rows).Error
}

func (r *personalizationRepo) DeleteByAssignment(ctx context.Context, assignmentID int64) error {
	return r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Delete(&model.AssignmentPersonalization{}).Error
}

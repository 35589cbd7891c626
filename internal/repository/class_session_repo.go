package repository

import (
	"context"

	"gorm.io/gorm"

	"elearning/backend/internal/model"
)

// ClassSessionRepository 课次数据访问接口
type ClassSessionRepository interface {
	Create(ctx context.Context, s *model.ClassSession) error
	GetByID(ctx context.Context, id int64) (*model.ClassSession, error)
	ListByCourse(ctx context.Context, courseID int64) ([]model.ClassSession, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	SetHasMaterials(ctx context.Context, id int64, has bool) error
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) Create(ctx context.Context, s *model.ClassSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *classSessionRepo) GetByID(ctx context.Context, id int64) (*model.ClassSession, error) {
	var s model.ClassSession
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *classSessionRepo) ListByCourse(ctx context.Context, courseID int64) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("session_number").
		Find(&sessions).Error
	return sessions, err
}

func (r *classSessionRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	res := r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *classSessionRepo) SetHasMaterials(ctx context.Context, id int64, has bool) error {
	return r.db.WithContext(ctx).
		Model(&model.ClassSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"has_materials": has,
			"updated_at":    gorm.Expr("NOW()"),
		}).Error
}

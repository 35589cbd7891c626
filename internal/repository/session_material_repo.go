package repository

import (
	"context"

	"gorm.io/gorm"

	"elearning/backend/internal/model"
)

// SessionMaterialRepository 课次资料数据访问接口
type SessionMaterialRepository interface {
	Create(ctx context.Context, m *model.SessionMaterial) error
	GetByID(ctx context.Context, id int64) (*model.SessionMaterial, error)
	Update(ctx context.Context, m *model.SessionMaterial) error
	Delete(ctx context.Context, id int64) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.SessionMaterial, error)
	CountBySession(ctx context.Context, sessionID int64) (int64, error)
}

type sessionMaterialRepo struct {
	db *gorm.DB
}

// NewSessionMaterialRepo 创建 SessionMaterialRepository 实例
func NewSessionMaterialRepo(db *gorm.DB) SessionMaterialRepository {
	return &sessionMaterialRepo{db: db}
}

func (r *sessionMaterialRepo) Create(ctx context.Context, m *model.SessionMaterial) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *sessionMaterialRepo) GetByID(ctx context.Context, id int64) (*model.SessionMaterial, error) {
	var m model.SessionMaterial
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *sessionMaterialRepo) Update(ctx context.Context, m *model.SessionMaterial) error {
	res := r.db.WithContext(ctx).
		Model(&model.SessionMaterial{}).
		Where("id = ?", m.ID).
		Updates(map[string]interface{}{
			"file_path":   m.FilePath,
			"file_type":   m.FileType,
			"title":       m.Title,
			"description": m.Description,
			"visibility":  m.Visibility,
			"updated_at":  gorm.Expr("NOW()"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionMaterialRepo) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.SessionMaterial{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *sessionMaterialRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.SessionMaterial, error) {
	var list []model.SessionMaterial
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *sessionMaterialRepo) CountBySession(ctx context.Context, sessionID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.SessionMaterial{}).
		Where("session_id = ?", sessionID).
		Count(&n).Error
	return n, err
}

package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elearning/backend/internal/model"
)

// DiscountCodeFilter 折扣码列表筛选条件
type DiscountCodeFilter struct {
	Code   string // 前缀匹配（已规范化）
	Active *bool
	UserID *int64
}

// DiscountCodeRepository 折扣码数据访问接口
type DiscountCodeRepository interface {
	Create(ctx context.Context, d *model.DiscountCode) error
	GetByID(ctx context.Context, id int64) (*model.DiscountCode, error)
	GetByCode(ctx context.Context, code string) (*model.DiscountCode, error)
	// GetByCodeForUpdate 对折扣码行加 FOR UPDATE 锁，须在事务中调用
	GetByCodeForUpdate(ctx context.Context, code string) (*model.DiscountCode, error)
	List(ctx context.Context, filter DiscountCodeFilter, offset, limit int) ([]model.DiscountCode, int64, error)
	Update(ctx context.Context, d *model.DiscountCode) error
	Delete(ctx context.Context, id int64) error
}

type discountCodeRepo struct {
	db *gorm.DB
}

// NewDiscountCodeRepo 创建 DiscountCodeRepository 实例
func NewDiscountCodeRepo(db *gorm.DB) DiscountCodeRepository {
	return &discountCodeRepo{db: db}
}

func (r *discountCodeRepo) Create(ctx context.Context, d *model.DiscountCode) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *discountCodeRepo) GetByID(ctx context.Context, id int64) (*model.DiscountCode, error) {
	var d model.DiscountCode
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discountCodeRepo) GetByCode(ctx context.Context, code string) (*model.DiscountCode, error) {
	var d model.DiscountCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discountCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*model.DiscountCode, error) {
	var d model.DiscountCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&d).Error
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *discountCodeRepo) List(ctx context.Context, filter DiscountCodeFilter, offset, limit int) ([]model.DiscountCode, int64, error) {
	var list []model.DiscountCode
	var total int64

	db := r.db.WithContext(ctx).Model(&model.DiscountCode{})
	if filter.Code != "" {
		db = db.Where("code LIKE ?", filter.Code+"%")
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.UserID != nil {
		db = db.Where("user_id = ?", *filter.UserID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(offset).Limit(limit).
		Order("created_at DESC, id DESC").
		Find(&list).Error; err != nil {
		return nil, 0, err
	}

	return list, total, nil
}

func (r *discountCodeRepo) Update(ctx context.Context, d *model.DiscountCode) error {
	return r.db.WithContext(ctx).
		Model(d).
		Select("code", "percentage", "max_uses", "user_id", "active", "expires_at", "updated_at").
		Updates(d).Error
}

func (r *discountCodeRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&model.DiscountCode{}, id).Error
}

package model

import (
	"strings"
	"time"
)

// DiscountCode 折扣码表 — 对应 discount_codes
// 已使用次数 = 引用该折扣码的报名数，由调用方统计后传入
type DiscountCode struct {
	ID         int64      `gorm:"primaryKey"                        json:"id"`
	Code       string     `gorm:"type:varchar(255);not null;unique" json:"code"`
	Percentage int        `gorm:"not null"                          json:"percentage"`
	MaxUses    *int       `json:"max_uses,omitempty"`
	UserID     *int64     `json:"user_id,omitempty"`
	Active     bool       `gorm:"not null"                          json:"active"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	BaseModel

	// 关联
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (DiscountCode) TableName() string { return "discount_codes" }

// NormalizeDiscountCode 去除首尾空白并转为大写
func NormalizeDiscountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (d *DiscountCode) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// IsAvailable 已启用且未过期
func (d *DiscountCode) IsAvailable(now time.Time) bool {
	return d.Active && !d.IsExpired(now)
}

// IsRestricted 是否限定了使用者
func (d *DiscountCode) IsRestricted() bool { return d.UserID != nil }

func (d *DiscountCode) HasUnlimitedUses() bool { return d.MaxUses == nil }

// RemainingUses 剩余次数，无限次时返回 nil
func (d *DiscountCode) RemainingUses(used int64) *int64 {
	if d.MaxUses == nil {
		return nil
	}
	remaining := int64(*d.MaxUses) - used
	if remaining < 0 {
		remaining = 0
	}
	return &remaining
}

// IsExhausted used 达到 max_uses
func (d *DiscountCode) IsExhausted(used int64) bool {
	return d.MaxUses != nil && used >= int64(*d.MaxUses)
}

// CanBeUsedBy 综合判断 userID 当前能否使用该折扣码
func (d *DiscountCode) CanBeUsedBy(userID int64, used int64, now time.Time) bool {
	if !d.IsAvailable(now) {
		return false
	}
	if d.IsRestricted() && *d.UserID != userID {
		return false
	}
	return !d.IsExhausted(used)
}

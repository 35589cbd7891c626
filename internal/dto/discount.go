package dto

import "time"

// ── 折扣码模块 DTO ──

// CreateDiscountCodeRequest 创建折扣码请求
type CreateDiscountCodeRequest struct {
	Code       string     `json:"code"       binding:"required,max=255,discount_code"`
	Percentage int        `json:"percentage" binding:"required,min=1,max=100"`
	MaxUses    *int       `json:"max_uses"   binding:"omitempty,min=1"`
	UserID     *int64     `json:"user_id"    binding:"omitempty,min=1"`
	Active     *bool      `json:"active"`
	ExpiresAt  *time.Time `json:"expires_at"`
}

// UpdateDiscountCodeRequest 更新折扣码请求
// Clear* 为 true 时将对应字段置空（不限次数 / 不限用户 / 永不过期）
type UpdateDiscountCodeRequest struct {
	Code           *string    `json:"code"       binding:"omitempty,max=255,discount_code"`
	Percentage     *int       `json:"percentage" binding:"omitempty,min=1,max=100"`
	MaxUses        *int       `json:"max_uses"   binding:"omitempty,min=1"`
	UserID         *int64     `json:"user_id"    binding:"omitempty,min=1"`
	Active         *bool      `json:"active"`
	ExpiresAt      *time.Time `json:"expires_at"`
	ClearMaxUses   bool       `json:"clear_max_uses"`
	ClearUserID    bool       `json:"clear_user_id"`
	ClearExpiresAt bool       `json:"clear_expires_at"`
}

// DiscountCodeListRequest 折扣码列表查询参数
type DiscountCodeListRequest struct {
	PaginationRequest
	Code   string `form:"code"    binding:"omitempty,max=255"`
	Active *bool  `form:"active"`
	UserID *int64 `form:"user_id" binding:"omitempty,min=1"`
}

// ValidateDiscountCodeRequest 校验折扣码请求
type ValidateDiscountCodeRequest struct {
	Code string `json:"code" form:"code" binding:"required,max=255"`
}

// ApplyDiscountCodeRequest 为报名应用折扣码
type ApplyDiscountCodeRequest struct {
	Code string `json:"code" binding:"required,max=255"`
}

// DiscountCodeResponse 折扣码信息响应
type DiscountCodeResponse struct {
	ID            int64   `json:"id"`
	Code          string  `json:"code"`
	Percentage    int     `json:"percentage"`
	MaxUses       *int    `json:"max_uses"`
	UserID        *int64  `json:"user_id"`
	Active        bool    `json:"active"`
	ExpiresAt     *string `json:"expires_at"`
	UsedCount     int64   `json:"used_count"`
	RemainingUses *int64  `json:"remaining_uses"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// DiscountValidationResponse 折扣码可用性校验结果
type DiscountValidationResponse struct {
	ID            int64   `json:"id"`
	Code          string  `json:"code"`
	Percentage    int     `json:"percentage"`
	MaxUses       *int    `json:"max_uses"`
	RemainingUses *int64  `json:"remaining_uses"`
	ExpiresAt     *string `json:"expires_at"`
	Active        bool    `json:"active"`
	Restricted    bool    `json:"restricted"`
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
)

// DiscountHandler 折扣码模块 HTTP 处理器
type DiscountHandler struct {
	discountSvc service.DiscountService
}

// NewDiscountHandler 创建 DiscountHandler
func NewDiscountHandler(discountSvc service.DiscountService) *DiscountHandler {
	return &DiscountHandler{discountSvc: discountSvc}
}

// ListDiscountCodes 折扣码列表（管理员）
// GET /api/v1/discount-codes
func (h *DiscountHandler) ListDiscountCodes(c *gin.Context) {
	var req dto.DiscountCodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.discountSvc.List(c.Request.Context(), &req)
	if err != nil {
		handleCommonError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetDiscountCode 折扣码详情
// GET /api/v1/discount-codes/:id
func (h *DiscountHandler) GetDiscountCode(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	d, err := h.discountSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, d)
}

// CreateDiscountCode 创建折扣码
// POST /api/v1/discount-codes
func (h *DiscountHandler) CreateDiscountCode(c *gin.Context) {
	var req dto.CreateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	d, err := h.discountSvc.Create(c.Request.Context(), &req)
	if err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.Created(c, d)
}

// UpdateDiscountCode 更新折扣码
// PUT /api/v1/discount-codes/:id
func (h *DiscountHandler) UpdateDiscountCode(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	d, err := h.discountSvc.Update(c.Request.Context(), id, &req)
	if err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, d)
}

// DeleteDiscountCode 删除折扣码
// DELETE /api/v1/discount-codes/:id
func (h *DiscountHandler) DeleteDiscountCode(c *gin.Context) {
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.discountSvc.Delete(c.Request.Context(), id); err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, nil)
}

// ValidateDiscountCode 校验当前用户能否使用折扣码
// POST /api/v1/discount-codes/validate
func (h *DiscountHandler) ValidateDiscountCode(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.ValidateDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	res, err := h.discountSvc.Validate(c.Request.Context(), req.Code, userID)
	if err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, res)
}

// ApplyToEnrollment 学生为自己的报名应用折扣码
// POST /api/v1/enrollments/:id/discount
func (h *DiscountHandler) ApplyToEnrollment(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	enrollmentID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ApplyDiscountCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	d, err := h.discountSvc.ApplyToEnrollment(c.Request.Context(), req.Code, userID, enrollmentID, nil)
	if err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, gin.H{
		"enrollment_id":    enrollmentID,
		"discount_code_id": d.ID,
		"code":             d.Code,
		"percentage":       d.Percentage,
	})
}

// ClearFromEnrollment 清除报名上的折扣码（管理员/教师）
// DELETE /api/v1/enrollments/:id/discount
func (h *DiscountHandler) ClearFromEnrollment(c *gin.Context) {
	enrollmentID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.discountSvc.ClearFromEnrollment(c.Request.Context(), enrollmentID); err != nil {
		h.handleDiscountError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *DiscountHandler) handleDiscountError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDiscountNotFound):
		if isFieldError(err) {
			unprocessable(c, 23001, err)
			return
		}
		response.NotFound(c, 23001, "折扣码不存在")
	case errors.Is(err, service.ErrDiscountExpired):
		unprocessable(c, 23002, err)
	case errors.Is(err, service.ErrDiscountInactive):
		unprocessable(c, 23003, err)
	case errors.Is(err, service.ErrDiscountRestricted):
		unprocessable(c, 23004, err)
	case errors.Is(err, service.ErrDiscountExhausted):
		unprocessable(c, 23005, err)
	case errors.Is(err, service.ErrDiscountCodeExists):
		response.Conflict(c, 23006, "折扣码已存在")
	case errors.Is(err, service.ErrDiscountInUse):
		response.Conflict(c, 23007, "折扣码已被报名使用，无法删除")
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 23008, "报名记录不存在")
	case errors.Is(err, service.ErrUserNotFound):
		unprocessable(c, 23009, err)
	default:
		handleCommonError(c, err)
	}
}

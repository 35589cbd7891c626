package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
)

// EnrollmentHandler 报名模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollmentSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollmentSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollmentSvc: enrollmentSvc}
}

// ManualEnroll 管理员/教师为学生报名
// POST /api/v1/enrollments
func (h *EnrollmentHandler) ManualEnroll(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.ManualEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	e, err := h.enrollmentSvc.ManualEnroll(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, e)
}

// SelfEnroll 学生自助报名
// POST /api/v1/enrollments/self
func (h *EnrollmentHandler) SelfEnroll(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var req dto.SelfEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	e, err := h.enrollmentSvc.SelfEnroll(c.Request.Context(), &req, studentID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, e)
}

// UpdateEnrollment 审核报名 / 更新付款与成绩
// PUT /api/v1/enrollments/:id
func (h *EnrollmentHandler) UpdateEnrollment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	e, err := h.enrollmentSvc.VerifyOrUpdate(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, e)
}

// CancelEnrollment 取消报名
// POST /api/v1/enrollments/:id/cancel
func (h *EnrollmentHandler) CancelEnrollment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	e, err := h.enrollmentSvc.Cancel(c.Request.Context(), id, actor)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, e)
}

func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 24001, "报名记录不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		unprocessable(c, 24002, err)
	case errors.Is(err, service.ErrUserNotFound):
		unprocessable(c, 24003, err)
	case errors.Is(err, service.ErrNotStudent):
		unprocessable(c, 24004, err)
	case errors.Is(err, service.ErrAlreadyEnrolled):
		response.Conflict(c, 24005, "学生已报名该课程")
	case errors.Is(err, service.ErrRegistrationClosed):
		unprocessable(c, 24006, err)
	case errors.Is(err, service.ErrCourseFull):
		unprocessable(c, 24007, err)
	case errors.Is(err, service.ErrConfirmRequiresPayment):
		unprocessable(c, 24008, err)
	case errors.Is(err, service.ErrDiscountNotFound),
		errors.Is(err, service.ErrDiscountExpired),
		errors.Is(err, service.ErrDiscountInactive),
		errors.Is(err, service.ErrDiscountRestricted),
		errors.Is(err, service.ErrDiscountExhausted):
		unprocessable(c, 24009, err)
	default:
		handleCommonError(c, err)
	}
}

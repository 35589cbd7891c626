package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
)

// ClassSessionHandler 课次与考勤 HTTP 处理器
type ClassSessionHandler struct {
	sessionSvc    service.ClassSessionService
	attendanceSvc service.AttendanceService
}

// NewClassSessionHandler 创建 ClassSessionHandler
func NewClassSessionHandler(sessionSvc service.ClassSessionService, attendanceSvc service.AttendanceService) *ClassSessionHandler {
	return &ClassSessionHandler{sessionSvc: sessionSvc, attendanceSvc: attendanceSvc}
}

// UpdateStatus 修改课次状态
// PUT /api/v1/class-sessions/:id/status
func (h *ClassSessionHandler) UpdateStatus(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	s, err := h.sessionSvc.UpdateStatus(c.Request.Context(), id, req.Status, actor)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, s)
}

// UpsertAttendance 批量登记考勤
// PUT /api/v1/class-sessions/:id/attendance
func (h *ClassSessionHandler) UpsertAttendance(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.attendanceSvc.UpsertBulk(c.Request.Context(), id, req.Items, actor); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListAttendance 课次考勤列表
// GET /api/v1/class-sessions/:id/attendance
func (h *ClassSessionHandler) ListAttendance(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.attendanceSvc.ListBySession(c.Request.Context(), id, actor)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": list})
}

func (h *ClassSessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 25001, "课次不存在")
	case errors.Is(err, service.ErrInvalidSessionStatus):
		unprocessable(c, 25002, err)
	case errors.Is(err, service.ErrInvalidAttendanceStatus):
		unprocessable(c, 26001, err)
	case errors.Is(err, service.ErrInvalidStudents):
		unprocessable(c, 26002, err)
	default:
		handleCommonError(c, err)
	}
}

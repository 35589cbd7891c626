package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
)

// AssignmentHandler 作业模块 HTTP 处理器
type AssignmentHandler struct {
	assignmentSvc service.AssignmentService
}

// NewAssignmentHandler 创建 AssignmentHandler
func NewAssignmentHandler(assignmentSvc service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentSvc: assignmentSvc}
}

// CreateAssignment 创建作业
// POST /api/v1/assignments
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}

	var req dto.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.assignmentSvc.Create(c.Request.Context(), &req, actor)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.Created(c, a)
}

// GetAssignment 教师查看作业详情
// GET /api/v1/assignments/:id
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	a, err := h.assignmentSvc.GetDetail(c.Request.Context(), id, actor)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// UpdateAssignment 更新作业
// PUT /api/v1/assignments/:id
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	a, err := h.assignmentSvc.Update(c.Request.Context(), id, &req, actor)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, a)
}

// DeleteAssignment 删除作业
// DELETE /api/v1/assignments/:id
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.assignmentSvc.Delete(c.Request.Context(), id, actor); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// UpsertPersonalizations 批量设置学生个性化
// PUT /api/v1/assignments/:id/personalizations
func (h *AssignmentHandler) UpsertPersonalizations(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpsertPersonalizationsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if err := h.assignmentSvc.UpsertPersonalizations(c.Request.Context(), id, req.Items, actor); err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// GetEffective 学生查看自己的有效作业（合并个性化后，不含标准答案）
// GET /api/v1/assignments/:id/effective
func (h *AssignmentHandler) GetEffective(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	eff, err := h.assignmentSvc.EffectiveAssignmentForStudent(c.Request.Context(), id, studentID)
	if err != nil {
		h.handleAssignmentError(c, err)
		return
	}

	response.OK(c, eff)
}

func (h *AssignmentHandler) handleAssignmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 22001, "作业不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		unprocessable(c, 22002, err)
	case errors.Is(err, service.ErrInvalidAssignmentType):
		unprocessable(c, 22003, err)
	case errors.Is(err, service.ErrAssignmentHasSubmissions):
		response.Conflict(c, 22004, "作业已有提交记录，无法删除")
	case errors.Is(err, service.ErrInvalidStudents):
		unprocessable(c, 22005, err)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Forbidden(c, 22006, "未在该课程中有效报名")
	default:
		handleCommonError(c, err)
	}
}

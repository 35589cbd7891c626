package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
	"elearning/backend/pkg/storage"
)

// SessionMaterialHandler 课次资料 HTTP 处理器
type SessionMaterialHandler struct {
	materialSvc service.SessionMaterialService
	files       storage.FileStore
}

// NewSessionMaterialHandler 创建 SessionMaterialHandler
func NewSessionMaterialHandler(materialSvc service.SessionMaterialService, files storage.FileStore) *SessionMaterialHandler {
	return &SessionMaterialHandler{materialSvc: materialSvc, files: files}
}

// Create 上传课次资料
// POST /api/v1/class-sessions/:id/materials （multipart/form-data）
func (h *SessionMaterialHandler) Create(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	sessionID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		response.BadRequest(c, 10001, "请使用 multipart/form-data 上传资料")
		return
	}
	var req dto.CreateSessionMaterialRequest
	if err := c.ShouldBind(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	in := &service.MaterialInput{
		Title:       req.Title,
		Description: req.Description,
		FileType:    &req.FileType,
		Visibility:  &req.Visibility,
	}
	closeFile, ok := h.attachFile(c, in)
	if !ok {
		return
	}
	defer closeFile()

	m, err := h.materialSvc.Create(c.Request.Context(), sessionID, in, actor)
	if err != nil {
		h.handleMaterialError(c, err)
		return
	}

	response.Created(c, h.toResponse(m))
}

// Update 修改课次资料，multipart 请求可同时替换附件
// PUT /api/v1/session-materials/:id
func (h *SessionMaterialHandler) Update(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateSessionMaterialRequest
	in := &service.MaterialInput{}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
		closeFile, ok := h.attachFile(c, in)
		if !ok {
			return
		}
		defer closeFile()
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	in.Title = req.Title
	in.Description = req.Description
	in.FileType = req.FileType
	in.Visibility = req.Visibility

	m, err := h.materialSvc.Update(c.Request.Context(), id, in, actor)
	if err != nil {
		h.handleMaterialError(c, err)
		return
	}

	response.OK(c, h.toResponse(m))
}

// Delete 删除课次资料
// DELETE /api/v1/session-materials/:id
func (h *SessionMaterialHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.materialSvc.Delete(c.Request.Context(), id, actor); err != nil {
		h.handleMaterialError(c, err)
		return
	}

	response.OK(c, nil)
}

// ListBySession 课次资料列表
// GET /api/v1/class-sessions/:id/materials
func (h *SessionMaterialHandler) ListBySession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	sessionID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	list, err := h.materialSvc.ListBySession(c.Request.Context(), sessionID, actor)
	if err != nil {
		h.handleMaterialError(c, err)
		return
	}

	result := make([]dto.SessionMaterialResponse, 0, len(list))
	for i := range list {
		result = append(result, h.toResponse(&list[i]))
	}
	response.OK(c, result)
}

// attachFile 读取表单字段 file；缺少文件时 in.File 保持为 nil
func (h *SessionMaterialHandler) attachFile(c *gin.Context, in *service.MaterialInput) (func(), bool) {
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
	case errors.Is(err, http.ErrMissingFile):
		return func() {}, true
	default:
		response.BadRequest(c, 27010, "无法读取上传文件")
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, 27010, "无法读取上传文件")
		return nil, false
	}
	in.File = &storage.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
	return func() { f.Close() }, true
}

func (h *SessionMaterialHandler) toResponse(m *model.SessionMaterial) dto.SessionMaterialResponse {
	return service.SessionMaterialResponseOf(m, h.files.URL(m.FilePath))
}

func (h *SessionMaterialHandler) handleMaterialError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMaterialNotFound):
		response.NotFound(c, 27001, "课次资料不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 27002, "课次不存在")
	case errors.Is(err, service.ErrMaterialFileRequired):
		unprocessable(c, 27003, err)
	case errors.Is(err, service.ErrInvalidMaterialType):
		unprocessable(c, 27004, err)
	case errors.Is(err, service.ErrInvalidVisibility):
		unprocessable(c, 27005, err)
	default:
		handleCommonError(c, err)
	}
}

package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportGradebook 导出课次成绩单
// GET /api/v1/export/class-sessions/:id/gradebook
func (h *ExportHandler) ExportGradebook(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.SessionGradebook(c.Request.Context(), id, actor)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

// ExportCalendar 导出课程日历（iCalendar）
// GET /api/v1/export/courses/:id/calendar
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	data, filename, err := h.exportSvc.CourseCalendar(c.Request.Context(), id, actor)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	attachment(c, filename)
	c.Data(http.StatusOK, contentTypeICS, data)
}

func attachment(c *gin.Context, filename string) {
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 28001, "课次不存在")
	case errors.Is(err, service.ErrCourseNotFound):
		response.NotFound(c, 28002, "课程不存在")
	case errors.Is(err, service.ErrExportNoSubmissions):
		response.NotFound(c, 28003, "该课次暂无提交记录")
	case errors.Is(err, service.ErrExportNoSessions):
		response.NotFound(c, 28004, "该课程暂无课次")
	default:
		handleCommonError(c, err)
	}
}

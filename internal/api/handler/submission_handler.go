package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	"elearning/backend/internal/service"
	"elearning/backend/pkg/response"
	"elearning/backend/pkg/storage"
)

// SubmissionHandler 作业提交模块 HTTP 处理器
type SubmissionHandler struct {
	submissionSvc service.SubmissionService
	files         storage.FileStore
}

// NewSubmissionHandler 创建 SubmissionHandler
func NewSubmissionHandler(submissionSvc service.SubmissionService, files storage.FileStore) *SubmissionHandler {
	return &SubmissionHandler{submissionSvc: submissionSvc, files: files}
}

// Submit 学生提交作业
// POST /api/v1/assignments/:id/submissions
// 支持 multipart/form-data（answer_text, answer_json, file）或 JSON
func (h *SubmissionHandler) Submit(c *gin.Context) {
	studentID, ok := MustGetUserID(c)
	if !ok {
		return
	}
	assignmentID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.SubmitAssignmentRequest
	in := &service.SubmitInput{}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&req); err != nil {
			response.BadRequest(c, 10001, "参数校验失败")
			return
		}
		if req.AnswerJSONForm != "" {
			req.AnswerJSON = json.RawMessage(req.AnswerJSONForm)
		}

		fh, err := c.FormFile("file")
		switch {
		case err == nil:
			f, err := fh.Open()
			if err != nil {
				response.BadRequest(c, 21010, "无法读取上传文件")
				return
			}
			defer f.Close()
			in.File = &storage.Upload{Filename: fh.Filename, Size: fh.Size, Content: f}
		case errors.Is(err, http.ErrMissingFile):
		default:
			response.BadRequest(c, 21010, "无法读取上传文件")
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	if len(req.AnswerJSON) > 0 {
		if !json.Valid(req.AnswerJSON) {
			response.BadRequest(c, 10001, "answer_json 不是合法的 JSON")
			return
		}
		in.AnswerJSON = datatypes.JSON(req.AnswerJSON)
	}
	in.AnswerText = req.AnswerText

	sub, err := h.submissionSvc.Submit(c.Request.Context(), assignmentID, studentID, in)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}

	response.Created(c, h.toResponse(sub))
}

// Grade 教师人工评分
// PUT /api/v1/submissions/:id/grade
func (h *SubmissionHandler) Grade(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.GradeSubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sub, err := h.submissionSvc.GradeManually(c.Request.Context(), id, actor, *req.ScoreObtained, req.FeedbackText)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}

	response.OK(c, h.toResponse(sub))
}

// ListBySession 课次下所有作业及其提交
// GET /api/v1/class-sessions/:id/submissions
func (h *SubmissionHandler) ListBySession(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	sessionID, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	groups, err := h.submissionSvc.ListSessionSubmissions(c.Request.Context(), sessionID, actor)
	if err != nil {
		h.handleSubmissionError(c, err)
		return
	}

	list := make([]dto.AssignmentSubmissionsResponse, 0, len(groups))
	for i := range groups {
		item := dto.AssignmentSubmissionsResponse{
			Assignment:  service.AssignmentResponseOf(&groups[i].Assignment),
			Submissions: make([]dto.SubmissionResponse, 0, len(groups[i].Submissions)),
		}
		for j := range groups[i].Submissions {
			item.Submissions = append(item.Submissions, h.toResponse(&groups[i].Submissions[j]))
		}
		list = append(list, item)
	}

	response.OK(c, gin.H{"list": list})
}

// Delete 删除提交记录（同时删除附件）
// DELETE /api/v1/submissions/:id
func (h *SubmissionHandler) Delete(c *gin.Context) {
	actor, ok := MustGetActor(c)
	if !ok {
		return
	}
	id, ok := MustGetIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.submissionSvc.Delete(c.Request.Context(), id, actor); err != nil {
		h.handleSubmissionError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *SubmissionHandler) toResponse(sub *model.Submission) dto.SubmissionResponse {
	url := ""
	if sub.FilePath != nil && *sub.FilePath != "" {
		url = h.files.URL(*sub.FilePath)
	}
	return service.SubmissionResponseOf(sub, url)
}

func (h *SubmissionHandler) handleSubmissionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAssignmentNotFound):
		response.NotFound(c, 21001, "作业不存在")
	case errors.Is(err, service.ErrSubmissionNotFound):
		response.NotFound(c, 21002, "提交记录不存在")
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 21003, "课次不存在")
	case errors.Is(err, service.ErrNotEnrolled):
		unprocessable(c, 21004, err)
	case errors.Is(err, service.ErrAttemptLimitExceeded):
		unprocessable(c, 21005, err)
	case errors.Is(err, service.ErrEmptyAnswer):
		unprocessable(c, 21006, err)
	case errors.Is(err, service.ErrDeadlinePassed):
		unprocessable(c, 21007, err)
	case errors.Is(err, service.ErrScoreExceedsMax):
		unprocessable(c, 21008, err)
	case errors.Is(err, service.ErrInvalidScore):
		unprocessable(c, 21009, err)
	default:
		handleCommonError(c, err)
	}
}

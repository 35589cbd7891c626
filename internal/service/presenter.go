package service

import (
	"encoding/json"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
)

// AssignmentResponseOf 作业的学生可见视图，不含标准答案
func AssignmentResponseOf(a *model.Assignment) dto.AssignmentResponse {
	return dto.AssignmentResponse{
		ID:          a.ID,
		SessionID:   a.SessionID,
		Title:       a.Title,
		Description: a.Description,
		Type:        a.Type,
		Options:     rawJSON(a.Options),
		Score:       a.Score,
		Deadline:    formatTime(a.Deadline),
		AllowLate:   a.AllowLate,
		Status:      a.Status,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

// SubmissionResponseOf 提交记录视图，fileURL 由存储层生成
func SubmissionResponseOf(sub *model.Submission, fileURL string) dto.SubmissionResponse {
	resp := dto.SubmissionResponse{
		ID:              sub.ID,
		AssignmentID:    sub.AssignmentID,
		StudentID:       sub.StudentID,
		AttemptNumber:   sub.AttemptNumber,
		Status:          sub.Status,
		SubmittedAt:     formatTimePtr(sub.SubmittedAt),
		GradedAt:        formatTimePtr(sub.GradedAt),
		GradedBy:        sub.GradedBy,
		AutoGraded:      sub.AutoGraded,
		ScoreObtained:   sub.ScoreObtained,
		MaxScore:        sub.MaxScoreCached,
		ScorePercentage: sub.ScorePercentage(),
		IsPassed:        sub.ScoreObtained != nil && sub.IsPassed(),
		IsLate:          sub.IsLate,
		AnswerText:      sub.AnswerText,
		AnswerJSON:      rawJSON(sub.AnswerJSON),
		FileURL:         fileURL,
		FeedbackText:    sub.FeedbackText,
	}
	if sub.Student != nil {
		resp.Student = &dto.UserBrief{ID: sub.Student.ID, Name: sub.Student.Name}
	}
	return resp
}

func personalizationResponseOf(p *model.AssignmentPersonalization) dto.PersonalizationResponse {
	return dto.PersonalizationResponse{
		StudentID:           p.StudentID,
		CustomTitle:         p.CustomTitle,
		CustomDescription:   p.CustomDescription,
		CustomType:          p.CustomType,
		CustomOptions:       rawJSON(p.CustomOptions),
		CustomCorrectAnswer: p.CustomCorrectAnswer,
		CustomDeadline:      formatTimePtr(p.CustomDeadline),
		CustomScore:         p.CustomScore,
	}
}

func enrollmentResponseOf(e *model.Enrollment) *dto.EnrollmentResponse {
	return &dto.EnrollmentResponse{
		ID:                e.ID,
		CourseID:          e.CourseID,
		StudentID:         e.StudentID,
		Status:            e.Status,
		PaymentStatus:     e.PaymentStatus,
		PaidAmount:        e.PaidAmount,
		FinalScore:        e.FinalScore,
		CertificateIssued: e.CertificateIssued,
		DiscountCodeID:    e.DiscountCodeID,
		EnrolledAt:        formatTime(e.EnrolledAt),
	}
}

func classSessionResponseOf(s *model.ClassSession) *dto.ClassSessionResponse {
	return &dto.ClassSessionResponse{
		ID:            s.ID,
		CourseID:      s.CourseID,
		Title:         s.Title,
		SessionNumber: s.SessionNumber,
		SessionDate:   s.SessionDate.Format("2006-01-02"),
		StartTime:     s.StartTime,
		EndTime:       s.EndTime,
		MeetingLink:   s.MeetingLink,
		Status:        s.Status,
	}
}

// rawJSON 空值与 JSON null 输出为省略
func rawJSON(b []byte) json.RawMessage {
	if isEmptyJSON(b) && string(b) != "{}" && string(b) != "[]" {
		return nil
	}
	return json.RawMessage(b)
}

// jsonColumn 请求体中的 JSON 转为列值，null 与空视为未设置
func jsonColumn(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return []byte(raw)
}

// SessionMaterialResponseOf 课次资料视图，fileURL 由存储层生成
func SessionMaterialResponseOf(m *model.SessionMaterial, fileURL string) dto.SessionMaterialResponse {
	return dto.SessionMaterialResponse{
		ID:          m.ID,
		SessionID:   m.SessionID,
		Title:       m.DisplayTitle(),
		Description: m.Description,
		FileType:    m.FileType,
		FileURL:     fileURL,
		Visibility:  m.Visibility,
		UploadedBy:  m.UploadedBy,
		CreatedAt:   formatTime(m.CreatedAt),
		UpdatedAt:   formatTime(m.UpdatedAt),
	}
}

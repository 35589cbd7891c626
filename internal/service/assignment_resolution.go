package service

import (
	"time"

	"gorm.io/datatypes"

	"elearning/backend/internal/model"
)

// EffectiveAssignment 合并个性化覆盖后学生实际看到的作业
type EffectiveAssignment struct {
	AssignmentID  int64          `json:"assignment_id"`
	Title         string         `json:"title"`
	Description   *string        `json:"description,omitempty"`
	Type          string         `json:"type"`
	CorrectAnswer *string        `json:"-"`
	Options       datatypes.JSON `json:"options,omitempty"`
	Deadline      time.Time      `json:"deadline"`
	Score         int            `json:"score"`
	AllowLate     bool           `json:"allow_late"`
	Personalized  bool           `json:"personalized"`
}

// MaxScore 提交的满分，至少为 1
func (e EffectiveAssignment) MaxScore() int {
	if e.Score <= 0 {
		return 1
	}
	return e.Score
}

// EffectiveAssignmentFor 逐字段取个性化值，未设置时沿用原作业
// allow_late 始终取原作业
func EffectiveAssignmentFor(a *model.Assignment, p *model.AssignmentPersonalization) EffectiveAssignment {
	eff := EffectiveAssignment{
		AssignmentID:  a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Type:          a.Type,
		CorrectAnswer: a.CorrectAnswer,
		Options:       a.Options,
		Deadline:      a.Deadline,
		Score:         a.Score,
		AllowLate:     a.AllowLate,
	}
	if p == nil {
		return eff
	}

	eff.Personalized = true
	if p.CustomTitle != nil {
		eff.Title = *p.CustomTitle
	}
	if p.CustomDescription != nil {
		eff.Description = p.CustomDescription
	}
	if p.CustomType != nil {
		eff.Type = *p.CustomType
	}
	if p.CustomCorrectAnswer != nil {
		eff.CorrectAnswer = p.CustomCorrectAnswer
	}
	if p.HasCustomOptions() {
		eff.Options = p.CustomOptions
	}
	if p.CustomDeadline != nil {
		eff.Deadline = *p.CustomDeadline
	}
	if p.CustomScore != nil {
		eff.Score = *p.CustomScore
	}
	return eff
}

package service

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"elearning/backend/internal/model"
)

// 标准答案中的分隔符：换行、||、英文逗号、分号、阿拉伯分号
var answerSeparators = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"||", "\n",
	",", "\n",
	";", "\n",
	"؛", "\n",
)

// 阿拉伯字形统一为波斯字形
var letterFolding = strings.NewReplacer(
	"ي", "ی",
	"ى", "ی",
	"ك", "ک",
)

// ParseCorrectAnswers 将标准答案拆分为可接受答案列表，去掉空项
func ParseCorrectAnswers(correct string) []string {
	parts := strings.Split(answerSeparators.Replace(correct), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NormalizeAnswer 答案比对前的规范化
func NormalizeAnswer(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	s = letterFolding.Replace(s)
	s = strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
	return cases.Lower(language.Und).String(s)
}

// MatchesAnyAnswer 学生答案规范化后非空且与任一标准答案相同
func MatchesAnyAnswer(student string, accepted []string) bool {
	sn := NormalizeAnswer(student)
	if sn == "" {
		return false
	}
	for _, a := range accepted {
		if an := NormalizeAnswer(a); an != "" && an == sn {
			return true
		}
	}
	return false
}

// ExtractStudentAnswer mcq 取 answer_json.selected，其余类型取 answer_text
func ExtractStudentAnswer(sub *model.Submission, assignmentType string) string {
	if assignmentType == model.AssignmentTypeMCQ && len(sub.AnswerJSON) > 0 {
		if selected, ok := selectedOption(sub.AnswerJSON); ok {
			return selected
		}
	}
	if sub.AnswerText == nil {
		return ""
	}
	return *sub.AnswerText
}

func selectedOption(raw []byte) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var obj map[string]json.RawMessage
	if err := dec.Decode(&obj); err != nil {
		return "", false
	}
	v, ok := obj["selected"]
	if !ok {
		return "", false
	}

	var val interface{}
	vd := json.NewDecoder(bytes.NewReader(v))
	vd.UseNumber()
	if err := vd.Decode(&val); err != nil {
		return "", false
	}

	switch x := val.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		if x {
			return "1", true
		}
		return "", true
	default:
		return string(v), true
	}
}

// MaybeAutoGrade 对可自动批改的提交就地评分，返回是否已评分
// translation/file 类型或标准答案为空时不做任何修改
func MaybeAutoGrade(sub *model.Submission, eff EffectiveAssignment, now time.Time) bool {
	if model.IsManualGradingType(eff.Type) {
		return false
	}
	if eff.CorrectAnswer == nil || strings.TrimSpace(*eff.CorrectAnswer) == "" {
		return false
	}

	score := 0
	if MatchesAnyAnswer(ExtractStudentAnswer(sub, eff.Type), ParseCorrectAnswers(*eff.CorrectAnswer)) {
		score = eff.MaxScore()
	}

	sub.AutoGraded = true
	sub.ScoreObtained = &score
	sub.GradedAt = &now
	sub.GradedBy = nil
	sub.Status = model.SubmissionStatusGraded
	return true
}

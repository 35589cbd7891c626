package service

import (
	"errors"
	"time"

	"elearning/backend/internal/model"
	pkgerrors "elearning/backend/pkg/errors"
)

// ── 通用业务错误 ──

var (
	ErrNoPermission    = errors.New("无权执行该操作")
	ErrUserNotFound    = errors.New("用户不存在")
	ErrCourseNotFound  = errors.New("课程不存在")
	ErrSessionNotFound = errors.New("课次不存在")

	// ErrInvalidStudents 批量操作中包含未在课程中有效报名的学生
	ErrInvalidStudents = errors.New("部分学生不属于该课程")

	// ErrBrokenReference 作业/课次/课程之间的关联缺失，属于数据完整性问题
	ErrBrokenReference = errors.New("关联数据缺失")
	// ErrSchemaMismatch 表结构与代码不一致（如缺少 discount_code_id 列）
	ErrSchemaMismatch = errors.New("数据库表结构不匹配")
)

// Clock 时间来源
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 使用系统时间
var SystemClock Clock = systemClock{}

// Actor 发起操作的用户
type Actor struct {
	ID   int64
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// canManageCourse 管理员，或该课程的任课教师
func canManageCourse(actor Actor, course *model.Course) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor.Role == model.RoleTeacher && course != nil && course.IsTaughtBy(actor.ID)
}

// diffIDs 返回 ids 中不在 allowed 内的元素（保持原顺序、去重）
func diffIDs(ids, allowed []int64) []int64 {
	ok := make(map[int64]struct{}, len(allowed))
	for _, id := range allowed {
		ok[id] = struct{}{}
	}
	seen := make(map[int64]struct{})
	var out []int64
	for _, id := range ids {
		if _, hit := ok[id]; hit {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func strPtr(s string) *string { return &s }

func formatTime(t time.Time) string { return t.Format(time.RFC3339) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// isExpectedError 业务层可预期的错误（校验失败、不存在、无权限）
func isExpectedError(err error) bool {
	if _, ok := pkgerrors.AsFieldError(err); ok {
		return true
	}
	switch {
	case errors.Is(err, ErrNoPermission),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrCourseNotFound),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrAssignmentNotFound),
		errors.Is(err, ErrSubmissionNotFound),
		errors.Is(err, ErrEnrollmentNotFound),
		errors.Is(err, ErrDiscountNotFound),
		errors.Is(err, ErrMaterialNotFound):
		return true
	}
	return false
}

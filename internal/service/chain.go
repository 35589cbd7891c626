package service

import (
	"context"
	"fmt"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
)

// loadAssignmentChain 依次加载 作业 → 课次 → 课程
// 作业不存在返回 ErrAssignmentNotFound；课次或课程缺失视为数据损坏
func loadAssignmentChain(ctx context.Context, repo *repository.Repository, assignmentID int64) (*model.Assignment, *model.ClassSession, *model.Course, error) {
	a, err := repo.Assignment.GetByID(ctx, assignmentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, nil, ErrAssignmentNotFound
		}
		return nil, nil, nil, fmt.Errorf("查询作业失败: %w", err)
	}

	session, course, err := loadSessionCourse(ctx, repo, a.SessionID)
	if err != nil {
		if err == ErrSessionNotFound {
			return nil, nil, nil, pkgerrors.Fatal(ErrBrokenReference, "作业 %d 关联的课次 %d 不存在", a.ID, a.SessionID)
		}
		return nil, nil, nil, err
	}
	return a, session, course, nil
}

// loadSessionCourse 加载课次及其课程，课程缺失视为数据损坏
func loadSessionCourse(ctx context.Context, repo *repository.Repository, sessionID int64) (*model.ClassSession, *model.Course, error) {
	session, err := repo.ClassSession.GetByID(ctx, sessionID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, fmt.Errorf("查询课次失败: %w", err)
	}

	course, err := repo.Course.GetByID(ctx, session.CourseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, pkgerrors.Fatal(ErrBrokenReference, "课次 %d 关联的课程 %d 不存在", session.ID, session.CourseID)
		}
		return nil, nil, fmt.Errorf("查询课程失败: %w", err)
	}
	return session, course, nil
}

// findPersonalization 查询个性化设置，不存在时返回 nil
func findPersonalization(ctx context.Context, repo *repository.Repository, assignmentID, studentID int64) (*model.AssignmentPersonalization, error) {
	p, err := repo.Personalization.Get(ctx, assignmentID, studentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询作业个性化失败: %w", err)
	}
	return p, nil
}

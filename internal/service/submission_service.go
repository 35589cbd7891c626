package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
	"elearning/backend/pkg/storage"
)

// ── 作业提交模块业务错误 ──

var (
	ErrAssignmentNotFound   = errors.New("作业不存在")
	ErrSubmissionNotFound   = errors.New("提交记录不存在")
	ErrNotEnrolled          = errors.New("未在该课程中有效报名")
	ErrAttemptLimitExceeded = errors.New("提交次数已达上限")
	ErrEmptyAnswer          = errors.New("答案为空")
	ErrDeadlinePassed       = errors.New("已超过提交截止时间")
	ErrScoreExceedsMax      = errors.New("分数超过满分")
	ErrInvalidScore         = errors.New("分数不能为负数")
)

// SubmitInput 学生提交内容，三者至少其一非空
type SubmitInput struct {
	AnswerText *string
	AnswerJSON datatypes.JSON
	File       *storage.Upload
}

// AssignmentSubmissions 一个作业及其全部提交（submitted_at 倒序）
type AssignmentSubmissions struct {
	Assignment  model.Assignment
	Submissions []model.Submission
}

// SubmissionService 作业提交与批改业务接口
type SubmissionService interface {
	Submit(ctx context.Context, assignmentID, studentID int64, in *SubmitInput) (*model.Submission, error)
	GradeManually(ctx context.Context, submissionID int64, grader Actor, score int, feedback *string) (*model.Submission, error)
	ListSessionSubmissions(ctx context.Context, sessionID int64, actor Actor) ([]AssignmentSubmissions, error)
	Delete(ctx context.Context, submissionID int64, actor Actor) error
}

type submissionService struct {
	repo         *repository.Repository
	files        storage.FileStore
	notifier     Notifier
	clock        Clock
	attemptLimit int
	logger       *zap.Logger
}

// NewSubmissionService 创建 SubmissionService 实例
func NewSubmissionService(
	repo *repository.Repository,
	files storage.FileStore,
	notifier Notifier,
	clock Clock,
	attemptLimit int,
	logger *zap.Logger,
) SubmissionService {
	if attemptLimit < 1 {
		attemptLimit = 3
	}
	return &submissionService{
		repo:         repo,
		files:        files,
		notifier:     notifier,
		clock:        clock,
		attemptLimit: attemptLimit,
		logger:       logger,
	}
}

// ═══════════════════════════════════════════════════════════
// Submit — 学生提交作业
// ═══════════════════════════════════════════════════════════
//
// 整个流程在一个事务内完成：锁定学生的有效报名行以串行化同一学生的并发提交，
// 计算 attempt_number 后写入；仍发生 (assignment, student, attempt) 唯一冲突时重试一次。
// 文件在事务内落盘，事务最终失败时删除。

func (s *submissionService) Submit(ctx context.Context, assignmentID, studentID int64, in *SubmitInput) (*model.Submission, error) {
	if in == nil {
		in = &SubmitInput{}
	}

	var (
		sub        *model.Submission
		course     *model.Course
		assignment *model.Assignment
		storedPath string
	)

	run := func() error {
		return s.repo.Transaction(ctx, func(tx *repository.Repository) error {
			a, _, c, err := loadAssignmentChain(ctx, tx, assignmentID)
			if err != nil {
				return err
			}

			enrollment, err := tx.Enrollment.GetEligibleForUpdate(ctx, studentID, c.ID)
			if err != nil {
				if repository.IsNotFound(err) {
					return pkgerrors.NewFieldError("assignment", ErrNotEnrolled, "学生 %d 未在课程 %d 中有效报名", studentID, c.ID)
				}
				return fmt.Errorf("查询报名失败: %w", err)
			}

			last, err := tx.Submission.MaxAttempt(ctx, a.ID, studentID)
			if err != nil {
				return fmt.Errorf("查询提交次数失败: %w", err)
			}
			if last >= s.attemptLimit {
				return pkgerrors.NewFieldError("attempt", ErrAttemptLimitExceeded, "每个作业最多提交 %d 次", s.attemptLimit)
			}

			p, err := findPersonalization(ctx, tx, a.ID, studentID)
			if err != nil {
				return err
			}
			eff := EffectiveAssignmentFor(a, p)

			if !hasAnswer(in) {
				return pkgerrors.NewFieldError("answer", ErrEmptyAnswer, "至少需要提交文本答案、结构化答案或文件之一")
			}

			now := s.clock.Now()
			isLate := now.After(eff.Deadline)
			if isLate && !eff.AllowLate {
				return pkgerrors.NewFieldError("deadline", ErrDeadlinePassed, "截止时间为 %s", eff.Deadline.Format("2006-01-02 15:04"))
			}

			if in.File != nil && storedPath == "" {
				dir := fmt.Sprintf("submissions/%d/%d", a.ID, studentID)
				path, err := s.files.Store(ctx, dir, in.File)
				if err != nil {
					return fmt.Errorf("保存附件失败: %w", err)
				}
				storedPath = path
			}

			status := model.SubmissionStatusSubmitted
			if isLate {
				status = model.SubmissionStatusLateSubmitted
			}
			created := &model.Submission{
				AssignmentID:   a.ID,
				StudentID:      studentID,
				EnrollmentID:   &enrollment.ID,
				AttemptNumber:  last + 1,
				Status:         status,
				SubmittedAt:    &now,
				MaxScoreCached: eff.MaxScore(),
				IsLate:         isLate,
				AnswerText:     nonEmpty(in.AnswerText),
				AnswerJSON:     in.AnswerJSON,
			}
			if storedPath != "" {
				created.FilePath = strPtr(storedPath)
			}
			if err := tx.Submission.Create(ctx, created); err != nil {
				return err
			}

			if MaybeAutoGrade(created, eff, now) {
				if err := tx.Submission.Update(ctx, created); err != nil {
					return fmt.Errorf("保存自动评分失败: %w", err)
				}
			}

			sub, course, assignment = created, c, a
			return nil
		})
	}

	err := run()
	if err != nil && repository.IsUniqueViolation(err) {
		s.logger.Warn("提交序号冲突，重试一次",
			zap.Int64("assignment_id", assignmentID),
			zap.Int64("student_id", studentID),
		)
		err = run()
	}
	if err != nil {
		if storedPath != "" {
			s.removeFile(storedPath)
		}
		if !isExpectedError(err) {
			s.logger.Error("提交作业失败", zap.Int64("assignment_id", assignmentID), zap.Int64("student_id", studentID), zap.Error(err))
		}
		return nil, err
	}

	if course.TeacherID != nil {
		s.notifier.NotifyUser(ctx, *course.TeacherID, studentID, noticeSubmissionReceived(assignment.Title, assignment.SessionID))
	}
	return sub, nil
}

// ═══════════════════════════════════════════════════════════
// GradeManually — 教师/管理员人工评分
// ═══════════════════════════════════════════════════════════

func (s *submissionService) GradeManually(ctx context.Context, submissionID int64, grader Actor, score int, feedback *string) (*model.Submission, error) {
	var (
		sub       *model.Submission
		sessionID int64
	)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		found, err := tx.Submission.GetByID(ctx, submissionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("查询提交失败: %w", err)
		}

		a, _, course, err := loadAssignmentChain(ctx, tx, found.AssignmentID)
		if err != nil {
			if errors.Is(err, ErrAssignmentNotFound) {
				return pkgerrors.Fatal(ErrBrokenReference, "提交 %d 关联的作业 %d 不存在", found.ID, found.AssignmentID)
			}
			return err
		}
		if !canManageCourse(grader, course) {
			return ErrNoPermission
		}

		if score < 0 {
			return pkgerrors.NewFieldError("score_obtained", ErrInvalidScore, "分数不能小于 0")
		}
		if score > found.MaxScoreCached {
			return pkgerrors.NewFieldError("score_obtained", ErrScoreExceedsMax, "分数不能超过 %d", found.MaxScoreCached)
		}

		now := s.clock.Now()
		graderID := grader.ID
		found.ScoreObtained = &score
		found.FeedbackText = feedback
		found.GradedBy = &graderID
		found.GradedAt = &now
		found.AutoGraded = false
		found.Status = model.SubmissionStatusGraded
		if err := tx.Submission.Update(ctx, found); err != nil {
			return fmt.Errorf("保存评分失败: %w", err)
		}

		sub, sessionID = found, a.SessionID
		return nil
	})
	if err != nil {
		if !isExpectedError(err) {
			s.logger.Error("评分失败", zap.Int64("submission_id", submissionID), zap.Error(err))
		}
		return nil, err
	}

	s.notifier.NotifyUser(ctx, sub.StudentID, grader.ID, noticeSubmissionGraded(sessionID))
	return sub, nil
}

// ═══════════════════════════════════════════════════════════
// ListSessionSubmissions — 课次下所有作业的提交
// ═══════════════════════════════════════════════════════════

func (s *submissionService) ListSessionSubmissions(ctx context.Context, sessionID int64, actor Actor) ([]AssignmentSubmissions, error) {
	_, course, err := loadSessionCourse(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}
	if !canManageCourse(actor, course) {
		return nil, ErrNoPermission
	}

	assignments, err := s.repo.Assignment.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次作业失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, err
	}

	result := make([]AssignmentSubmissions, 0, len(assignments))
	for _, a := range assignments {
		subs, err := s.repo.Submission.ListByAssignment(ctx, a.ID)
		if err != nil {
			s.logger.Error("查询作业提交失败", zap.Int64("assignment_id", a.ID), zap.Error(err))
			return nil, err
		}
		result = append(result, AssignmentSubmissions{Assignment: a, Submissions: subs})
	}
	return result, nil
}

// ═══════════════════════════════════════════════════════════
// Delete — 删除提交（附件尽力删除）
// ═══════════════════════════════════════════════════════════

func (s *submissionService) Delete(ctx context.Context, submissionID int64, actor Actor) error {
	var filePath string

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sub, err := tx.Submission.GetByID(ctx, submissionID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrSubmissionNotFound
			}
			return fmt.Errorf("查询提交失败: %w", err)
		}

		_, _, course, err := loadAssignmentChain(ctx, tx, sub.AssignmentID)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, course) {
			return ErrNoPermission
		}

		if err := tx.Submission.Delete(ctx, sub.ID); err != nil {
			return fmt.Errorf("删除提交失败: %w", err)
		}
		if sub.FilePath != nil {
			filePath = *sub.FilePath
		}
		return nil
	})
	if err != nil {
		return err
	}

	if filePath != "" {
		s.removeFile(filePath)
	}
	return nil
}

func (s *submissionService) removeFile(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := s.files.Delete(ctx, path); err != nil {
		s.logger.Warn("删除附件失败", zap.String("path", path), zap.Error(err))
	}
}

// ── 辅助函数 ──

func hasAnswer(in *SubmitInput) bool {
	if in.File != nil {
		return true
	}
	if in.AnswerText != nil && strings.TrimSpace(*in.AnswerText) != "" {
		return true
	}
	return !isEmptyJSON(in.AnswerJSON)
}

// isEmptyJSON null、{}、[]、"" 均视为空
func isEmptyJSON(raw []byte) bool {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return true
	}
	switch string(t) {
	case "null", "{}", "[]", `""`:
		return true
	}
	return false
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}

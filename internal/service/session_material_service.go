package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	pkgerrors "elearning/backend/pkg/errors"
	"elearning/backend/pkg/storage"
)

// ── 课次资料模块业务错误 ──

var (
	ErrMaterialNotFound     = errors.New("课次资料不存在")
	ErrMaterialFileRequired = errors.New("必须上传资料文件")
	ErrInvalidMaterialType  = errors.New("资料类型无效")
	ErrInvalidVisibility    = errors.New("资料可见范围无效")
)

// MaterialInput 课次资料的可写字段
// 新建时 File 必填；修改时为 nil 的字段保持不变
type MaterialInput struct {
	FileType    *string
	Title       *string
	Description *string
	Visibility  *string
	File        *storage.Upload
}

// SessionMaterialService 课次资料业务接口
type SessionMaterialService interface {
	Create(ctx context.Context, sessionID int64, in *MaterialInput, actor Actor) (*model.SessionMaterial, error)
	Update(ctx context.Context, id int64, in *MaterialInput, actor Actor) (*model.SessionMaterial, error)
	Delete(ctx context.Context, id int64, actor Actor) error
	// ListBySession 教师/管理员看到全部资料；有效报名的学生看不到 hidden 资料
	ListBySession(ctx context.Context, sessionID int64, actor Actor) ([]model.SessionMaterial, error)
}

type sessionMaterialService struct {
	repo     *repository.Repository
	files    storage.FileStore
	notifier Notifier
	logger   *zap.Logger
}

// NewSessionMaterialService 创建 SessionMaterialService 实例
func NewSessionMaterialService(repo *repository.Repository, files storage.FileStore, notifier Notifier, logger *zap.Logger) SessionMaterialService {
	return &sessionMaterialService{repo: repo, files: files, notifier: notifier, logger: logger}
}

// materialChange 事务提交后发送通知所需的数据
type materialChange struct {
	material model.SessionMaterial
	session  *model.ClassSession
	course   *model.Course
	students []int64
}

// ────────────────────── Create ──────────────────────

func (s *sessionMaterialService) Create(ctx context.Context, sessionID int64, in *MaterialInput, actor Actor) (*model.SessionMaterial, error) {
	if in == nil || in.File == nil {
		return nil, pkgerrors.NewFieldError("file", ErrMaterialFileRequired, "请上传资料文件")
	}
	if err := validateMaterialInput(in); err != nil {
		return nil, err
	}

	var (
		change     materialChange
		storedPath string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		sess, c, err := loadSessionCourse(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		path, err := s.files.Store(ctx, fmt.Sprintf("session-materials/%d", sess.ID), in.File)
		if err != nil {
			return fmt.Errorf("保存资料文件失败: %w", err)
		}
		storedPath = path

		uploader := actor.ID
		m := &model.SessionMaterial{
			SessionID:   sess.ID,
			FilePath:    storedPath,
			FileType:    model.InferMaterialType(in.File.Filename),
			Title:       nonEmpty(in.Title),
			Description: nonEmpty(in.Description),
			UploadedBy:  &uploader,
			Visibility:  model.MaterialVisibilityStudentsOnly,
		}
		if in.FileType != nil && *in.FileType != "" {
			m.FileType = *in.FileType
		}
		if in.Visibility != nil && *in.Visibility != "" {
			m.Visibility = *in.Visibility
		}
		if err := tx.Material.Create(ctx, m); err != nil {
			return fmt.Errorf("保存课次资料失败: %w", err)
		}
		if err := tx.ClassSession.SetHasMaterials(ctx, sess.ID, true); err != nil {
			return fmt.Errorf("更新课次资料标记失败: %w", err)
		}

		students, err := tx.Enrollment.ListEligibleStudentIDs(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		change = materialChange{material: *m, session: sess, course: c, students: students}
		return nil
	})
	if err != nil {
		if storedPath != "" {
			s.removeFile(storedPath)
		}
		if !isExpectedError(err) {
			s.logger.Error("上传课次资料失败", zap.Int64("session_id", sessionID), zap.Error(err))
		}
		return nil, err
	}

	s.notifyChange(ctx, change, materialCreated, actor.ID)
	return &change.material, nil
}

// ────────────────────── Update ──────────────────────

func (s *sessionMaterialService) Update(ctx context.Context, id int64, in *MaterialInput, actor Actor) (*model.SessionMaterial, error) {
	if in == nil {
		in = &MaterialInput{}
	}
	if err := validateMaterialInput(in); err != nil {
		return nil, err
	}

	var (
		change     materialChange
		storedPath string
		oldPath    string
	)
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		m, err := tx.Material.GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrMaterialNotFound
			}
			return fmt.Errorf("查询课次资料失败: %w", err)
		}
		sess, c, err := loadSessionCourse(ctx, tx, m.SessionID)
		if err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				return pkgerrors.Fatal(ErrBrokenReference, "课次资料 %d 关联的课次 %d 不存在", m.ID, m.SessionID)
			}
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		if in.Title != nil {
			m.Title = nonEmpty(in.Title)
		}
		if in.Description != nil {
			m.Description = nonEmpty(in.Description)
		}
		if in.Visibility != nil && *in.Visibility != "" {
			m.Visibility = *in.Visibility
		}
		if in.FileType != nil && *in.FileType != "" {
			m.FileType = *in.FileType
		}
		if in.File != nil {
			path, err := s.files.Store(ctx, fmt.Sprintf("session-materials/%d", sess.ID), in.File)
			if err != nil {
				return fmt.Errorf("保存资料文件失败: %w", err)
			}
			storedPath, oldPath = path, m.FilePath
			m.FilePath = path
			if in.FileType == nil || *in.FileType == "" {
				m.FileType = model.InferMaterialType(in.File.Filename)
			}
		}

		if err := tx.Material.Update(ctx, m); err != nil {
			return fmt.Errorf("更新课次资料失败: %w", err)
		}

		students, err := tx.Enrollment.ListEligibleStudentIDs(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		change = materialChange{material: *m, session: sess, course: c, students: students}
		return nil
	})
	if err != nil {
		if storedPath != "" {
			s.removeFile(storedPath)
		}
		if !isExpectedError(err) {
			s.logger.Error("更新课次资料失败", zap.Int64("material_id", id), zap.Error(err))
		}
		return nil, err
	}

	// 旧文件在新记录提交后才删除
	if oldPath != "" && oldPath != storedPath {
		s.removeFile(oldPath)
	}
	s.notifyChange(ctx, change, materialUpdated, actor.ID)
	return &change.material, nil
}

// ────────────────────── Delete ──────────────────────

func (s *sessionMaterialService) Delete(ctx context.Context, id int64, actor Actor) error {
	var change materialChange

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		m, err := tx.Material.GetByID(ctx, id)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrMaterialNotFound
			}
			return fmt.Errorf("查询课次资料失败: %w", err)
		}
		sess, c, err := loadSessionCourse(ctx, tx, m.SessionID)
		if err != nil {
			return err
		}
		if !canManageCourse(actor, c) {
			return ErrNoPermission
		}

		if err := tx.Material.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("删除课次资料失败: %w", err)
		}
		remaining, err := tx.Material.CountBySession(ctx, sess.ID)
		if err != nil {
			return fmt.Errorf("统计课次资料失败: %w", err)
		}
		if err := tx.ClassSession.SetHasMaterials(ctx, sess.ID, remaining > 0); err != nil {
			return fmt.Errorf("更新课次资料标记失败: %w", err)
		}

		students, err := tx.Enrollment.ListEligibleStudentIDs(ctx, c.ID)
		if err != nil {
			return fmt.Errorf("查询课程学生失败: %w", err)
		}
		change = materialChange{material: *m, session: sess, course: c, students: students}
		return nil
	})
	if err != nil {
		if !isExpectedError(err) {
			s.logger.Error("删除课次资料失败", zap.Int64("material_id", id), zap.Error(err))
		}
		return err
	}

	s.removeFile(change.material.FilePath)
	s.notifyChange(ctx, change, materialDeleted, actor.ID)
	return nil
}

// ────────────────────── ListBySession ──────────────────────

func (s *sessionMaterialService) ListBySession(ctx context.Context, sessionID int64, actor Actor) ([]model.SessionMaterial, error) {
	_, c, err := loadSessionCourse(ctx, s.repo, sessionID)
	if err != nil {
		return nil, err
	}

	staff := canManageCourse(actor, c)
	if !staff {
		if actor.Role != model.RoleStudent {
			return nil, ErrNoPermission
		}
		eligible, err := s.repo.Enrollment.FilterEligibleStudentIDs(ctx, c.ID, []int64{actor.ID})
		if err != nil {
			s.logger.Error("查询报名失败", zap.Int64("course_id", c.ID), zap.Error(err))
			return nil, err
		}
		if len(eligible) == 0 {
			return nil, ErrNoPermission
		}
	}

	list, err := s.repo.Material.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次资料失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	if staff {
		return list, nil
	}

	visible := make([]model.SessionMaterial, 0, len(list))
	for i := range list {
		if list[i].VisibleToStudent(true) {
			visible = append(visible, list[i])
		}
	}
	return visible, nil
}

// ── 辅助函数 ──

func validateMaterialInput(in *MaterialInput) error {
	if in.FileType != nil && *in.FileType != "" && !model.IsValidMaterialType(*in.FileType) {
		return pkgerrors.NewFieldError("file_type", ErrInvalidMaterialType, "未知的资料类型 %q", *in.FileType)
	}
	if in.Visibility != nil && *in.Visibility != "" && !model.IsValidMaterialVisibility(*in.Visibility) {
		return pkgerrors.NewFieldError("visibility", ErrInvalidVisibility, "未知的可见范围 %q", *in.Visibility)
	}
	return nil
}

func (s *sessionMaterialService) notifyChange(ctx context.Context, ch materialChange, action string, actorID int64) {
	title := ch.material.DisplayTitle()
	if ch.course.TeacherID != nil {
		s.notifier.NotifyUser(ctx, *ch.course.TeacherID, actorID,
			noticeMaterialChanged(title, ch.session.Title, ch.course.Title, action, ch.session.ID, false))
	}
	s.notifier.NotifyUsers(ctx, ch.students, actorID,
		noticeMaterialChanged(title, ch.session.Title, ch.course.Title, action, ch.session.ID, true))
}

func (s *sessionMaterialService) removeFile(path string) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := s.files.Delete(ctx, path); err != nil {
		s.logger.Warn("删除资料文件失败", zap.String("path", path), zap.Error(err))
	}
}

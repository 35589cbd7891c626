package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"elearning/backend/internal/model"
)

// AttendanceRepository 考勤数据访问接口
type AttendanceRepository interface {
	// Upsert 以 (session_id, student_id) 为键插入或覆盖
	Upsert(ctx context.Context, rows []model.Attendance) error
	ListBySession(ctx context.Context, sessionID int64) ([]model.Attendance, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

// NewAttendanceRepo 创建 AttendanceRepository 实例
func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) Upsert(ctx context.Context, rows []model.Attendance) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "student_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "note", "updated_at"}),
		}).
		Create(&rows).Error
}

func (r *attendanceRepo) ListBySession(ctx context.Context, sessionID int64) ([]model.Attendance, error) {
	var list []model.Attendance
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("session_id = ?", sessionID).
		Order("student_id").
		Find(&list).Error
	return list, err
}

package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSubmissions = errors.New("该课次暂无提交记录")
	ErrExportNoSessions    = errors.New("该课程暂无课次")
	ErrExportGenerateFail  = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 导出内容以内存缓冲返回，由 Handler 层设置 Content-Type 与 Content-Disposition
type ExportService interface {
	// SessionGradebook 导出课次成绩单（xlsx），每条提交一行
	SessionGradebook(ctx context.Context, sessionID int64, actor Actor) (*bytes.Buffer, string, error)
	// CourseCalendar 导出课程日历（iCalendar），每个课次一个 VEVENT
	CourseCalendar(ctx context.Context, courseID int64, actor Actor) ([]byte, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// SessionGradebook — 课次成绩单
// ═══════════════════════════════════════════════════════════
//
// 表头: | 作业 | 类型 | 学生 | 第几次 | 状态 | 提交时间 | 迟交 | 得分 | 满分 | 得分率 | 批改方式 |

func (s *exportService) SessionGradebook(ctx context.Context, sessionID int64, actor Actor) (*bytes.Buffer, string, error) {
	session, course, err := loadSessionCourse(ctx, s.repo, sessionID)
	if err != nil {
		return nil, "", err
	}
	if !canManageCourse(actor, course) {
		return nil, "", ErrNoPermission
	}

	assignments, err := s.repo.Assignment.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询课次作业失败", zap.Int64("session_id", sessionID), zap.Error(err))
		return nil, "", err
	}

	type gradeRow struct {
		assignment *model.Assignment
		sub        model.Submission
	}
	var rows []gradeRow
	for i := range assignments {
		subs, err := s.repo.Submission.ListByAssignment(ctx, assignments[i].ID)
		if err != nil {
			s.logger.Error("查询作业提交失败", zap.Int64("assignment_id", assignments[i].ID), zap.Error(err))
			return nil, "", err
		}
		for _, sub := range subs {
			rows = append(rows, gradeRow{assignment: &assignments[i], sub: sub})
		}
	}
	if len(rows) == 0 {
		return nil, "", ErrExportNoSubmissions
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "成绩单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"作业", "类型", "学生", "第几次", "状态", "提交时间", "迟交", "得分", "满分", "得分率", "批改方式"}
	widths := []float64{24, 12, 18, 8, 14, 18, 8, 8, 8, 10, 10}
	for i, w := range widths {
		f.SetColWidth(sheetName, colName(i), colName(i), w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s - %s 成绩单", course.Title, session.Title))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	row = 3
	for _, r := range rows {
		sub := r.sub
		studentName := fmt.Sprintf("#%d", sub.StudentID)
		if sub.Student != nil {
			studentName = sub.Student.Name
		}
		submittedAt := "-"
		if sub.SubmittedAt != nil {
			submittedAt = sub.SubmittedAt.Format("2006-01-02 15:04")
		}
		late := "否"
		if sub.IsLate {
			late = "是"
		}
		gradedBy := "-"
		switch {
		case sub.AutoGraded:
			gradedBy = "自动"
		case sub.GradedBy != nil:
			gradedBy = "人工"
		}

		values := []interface{}{
			r.assignment.Title,
			r.assignment.Type,
			studentName,
			sub.AttemptNumber,
			sub.Status,
			submittedAt,
			late,
			"-",
			sub.MaxScoreCached,
			"-",
			gradedBy,
		}
		if sub.ScoreObtained != nil {
			values[7] = *sub.ScoreObtained
			values[9] = fmt.Sprintf("%.0f%%", sub.ScorePercentage())
		}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("成绩单_%s_%d.xlsx", course.Title, session.SessionNumber)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// CourseCalendar — 课程日历
// ═══════════════════════════════════════════════════════════

func (s *exportService) CourseCalendar(ctx context.Context, courseID int64, actor Actor) ([]byte, string, error) {
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	if !canManageCourse(actor, course) {
		allowed, err := s.repo.Enrollment.FilterEligibleStudentIDs(ctx, courseID, []int64{actor.ID})
		if err != nil {
			s.logger.Error("查询报名失败", zap.Int64("course_id", courseID), zap.Error(err))
			return nil, "", err
		}
		if len(allowed) == 0 {
			return nil, "", ErrNoPermission
		}
	}

	sessions, err := s.repo.ClassSession.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课程课次失败", zap.Int64("course_id", courseID), zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//elearning//course calendar//FA")
	cal.SetXWRCalName(course.Title)

	for i := range sessions {
		sess := &sessions[i]
		start, err := sess.StartsAt()
		if err != nil {
			s.logger.Warn("课次时间无效，跳过", zap.Int64("session_id", sess.ID), zap.Error(err))
			continue
		}
		end, err := sess.EndsAt()
		if err != nil {
			s.logger.Warn("课次时间无效，跳过", zap.Int64("session_id", sess.ID), zap.Error(err))
			continue
		}

		evt := cal.AddEvent(fmt.Sprintf("class-session-%d@elearning", sess.ID))
		evt.SetDtStampTime(sess.UpdatedAt)
		evt.SetStartAt(start)
		evt.SetEndAt(end)
		evt.SetSummary(fmt.Sprintf("%s - %s", course.Title, sess.Title))
		if sess.Description != nil {
			evt.SetDescription(*sess.Description)
		}
		if sess.MeetingLink != nil {
			evt.SetURL(*sess.MeetingLink)
		}
		switch sess.Status {
		case model.SessionStatusCancelled:
			evt.SetStatus(ics.ObjectStatusCancelled)
		case model.SessionStatusPostponed:
			evt.SetStatus(ics.ObjectStatusTentative)
		default:
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	filename := fmt.Sprintf("course_%d.ics", course.ID)
	return []byte(cal.Serialize()), filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

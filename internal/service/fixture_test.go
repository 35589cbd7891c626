package service

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	"elearning/backend/pkg/storage"
)

// ── 测试辅助 ──

var testNow = time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)

const (
	adminID        int64 = 1
	teacherID      int64 = 2
	otherTeacherID int64 = 3
	studentID      int64 = 10
	outsiderID     int64 = 11
	pendingID      int64 = 12
)

type fixture struct {
	t        *testing.T
	db       *memDB
	repo     *repository.Repository
	notifier *recordingNotifier
	files    *memFileStore
	clock    *fakeClock
	logger   *zap.Logger

	course     model.Course
	session    model.ClassSession
	enrollment model.Enrollment
}

// newFixture 一门课程（teacherID 任教）、一个课次、studentID 已确认报名，
// outsiderID 未报名，pendingID 报名待审核
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newMemDB()
	f := &fixture{
		t:        t,
		db:       db,
		repo:     newMockRepository(db),
		notifier: &recordingNotifier{},
		files:    newMemFileStore(),
		clock:    &fakeClock{now: testNow},
		logger:   zap.NewNop(),
	}

	phone := func(s string) *string { return &s }
	db.users[adminID] = model.User{ID: adminID, Name: "مدیر", Role: model.RoleAdmin}
	db.users[teacherID] = model.User{ID: teacherID, Name: "استاد", Role: model.RoleTeacher, Phone: phone("09120000002")}
	db.users[otherTeacherID] = model.User{ID: otherTeacherID, Name: "استاد دیگر", Role: model.RoleTeacher}
	db.users[studentID] = model.User{ID: studentID, Name: "زهرا", Role: model.RoleStudent, Phone: phone("09120000010")}
	db.users[outsiderID] = model.User{ID: outsiderID, Name: "علی", Role: model.RoleStudent}
	db.users[pendingID] = model.User{ID: pendingID, Name: "مریم", Role: model.RoleStudent}

	tid := teacherID
	f.course = model.Course{
		ID:                   20,
		Title:                "زبان انگلیسی مقدماتی",
		TeacherID:            &tid,
		Price:                1_000_000,
		CapacityMin:          1,
		CapacityMax:          10,
		RegistrationDeadline: testNow.Add(7 * 24 * time.Hour),
		StartDate:            testNow.AddDate(0, 0, 14),
		EndDate:              testNow.AddDate(0, 3, 0),
		IsActive:             true,
		Status:               model.CourseStatusRegistrationOpen,
	}
	db.courses[f.course.ID] = f.course

	f.session = model.ClassSession{
		ID:            30,
		CourseID:      f.course.ID,
		Title:         "جلسه اول",
		SessionNumber: 1,
		SessionDate:   time.Date(2025, 3, 24, 0, 0, 0, 0, time.UTC),
		StartTime:     "17:00",
		EndTime:       "18:30",
		Status:        model.SessionStatusScheduled,
	}
	db.sessions[f.session.ID] = f.session

	f.enrollment = model.Enrollment{
		ID:            40,
		StudentID:     studentID,
		CourseID:      f.course.ID,
		Status:        model.EnrollmentStatusConfirmed,
		PaymentStatus: model.PaymentStatusPaid,
		PaidAmount:    f.course.Price,
		EnrolledAt:    testNow.Add(-24 * time.Hour),
	}
	db.enrollments[f.enrollment.ID] = f.enrollment
	db.enrollments[41] = model.Enrollment{
		ID:            41,
		StudentID:     pendingID,
		CourseID:      f.course.ID,
		Status:        model.EnrollmentStatusPending,
		PaymentStatus: model.PaymentStatusUnpaid,
		EnrolledAt:    testNow.Add(-time.Hour),
	}
	return f
}

// addAssignment 在 fixture 课次下新建作业，默认 text 类型、已发布、截止时间为明天
func (f *fixture) addAssignment(mutate func(a *model.Assignment)) model.Assignment {
	f.t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	a := model.Assignment{
		ID:        f.db.id(),
		SessionID: f.session.ID,
		Title:     "تمرین ۱",
		Type:      model.AssignmentTypeText,
		Score:     10,
		Deadline:  testNow.Add(24 * time.Hour),
		Status:    model.AssignmentStatusPublished,
	}
	if mutate != nil {
		mutate(&a)
	}
	f.db.assignments[a.ID] = a
	return a
}

func (f *fixture) addDiscount(mutate func(d *model.DiscountCode)) model.DiscountCode {
	f.t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	d := model.DiscountCode{
		ID:         f.db.id(),
		Code:       "SPRING20",
		Percentage: 20,
		Active:     true,
	}
	if mutate != nil {
		mutate(&d)
	}
	f.db.discounts[d.ID] = d
	return d
}

// addEnrollment 为课程追加一条报名
func (f *fixture) addEnrollment(student int64, status, payment string) model.Enrollment {
	f.t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.users[student]; !ok {
		f.db.users[student] = model.User{ID: student, Name: "student", Role: model.RoleStudent}
	}
	e := model.Enrollment{
		ID:            f.db.id(),
		StudentID:     student,
		CourseID:      f.course.ID,
		Status:        status,
		PaymentStatus: payment,
		EnrolledAt:    testNow,
	}
	f.db.enrollments[e.ID] = e
	return e
}

func (f *fixture) submissionService() SubmissionService {
	return NewSubmissionService(f.repo, f.files, f.notifier, f.clock, 3, f.logger)
}

func (f *fixture) discountService() DiscountService {
	return NewDiscountService(f.repo, f.notifier, f.clock, f.logger)
}

func (f *fixture) assignmentService() AssignmentService {
	return NewAssignmentService(f.repo, f.notifier, f.logger)
}

func (f *fixture) enrollmentService() EnrollmentService {
	return NewEnrollmentService(f.repo, f.notifier, f.clock, f.logger)
}

func (f *fixture) submissionCount() int {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	return len(f.db.submissions)
}

func (f *fixture) storedSubmission(id int64) model.Submission {
	f.t.Helper()
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.submissions[id]
	if !ok {
		f.t.Fatalf("提交 %d 不存在", id)
	}
	return s
}

var (
	asAdmin        = Actor{ID: adminID, Role: model.RoleAdmin}
	asTeacher      = Actor{ID: teacherID, Role: model.RoleTeacher}
	asOtherTeacher = Actor{ID: otherTeacherID, Role: model.RoleTeacher}
	asStudent      = Actor{ID: studentID, Role: model.RoleStudent}
)

func textAnswer(s string) *SubmitInput { return &SubmitInput{AnswerText: &s} }

func fileUpload(name, content string) *storage.Upload {
	return &storage.Upload{Filename: name, Size: int64(len(content)), Content: strings.NewReader(content)}
}

func intPtr(v int) *int { return &v }

func int64Ptr(v int64) *int64 { return &v }

func (f *fixture) materialService() SessionMaterialService {
	return NewSessionMaterialService(f.repo, f.files, f.notifier, f.logger)
}

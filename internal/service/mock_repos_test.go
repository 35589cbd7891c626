package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"elearning/backend/internal/model"
	"elearning/backend/internal/repository"
	"elearning/backend/pkg/storage"
)

// ── 内存数据库 ──
//
// 所有 mock repo 共享同一个 memDB。Transaction 通过 txMu 串行执行，
// fn 返回错误时把数据恢复到事务开始前的快照。

type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID int64

	users            map[int64]model.User
	courses          map[int64]model.Course
	enrollments      map[int64]model.Enrollment
	sessions         map[int64]model.ClassSession
	assignments      map[int64]model.Assignment
	personalizations map[[2]int64]model.AssignmentPersonalization
	submissions      map[int64]model.Submission
	discounts        map[int64]model.DiscountCode
	notifications    []model.Notification
	attendance       map[[2]int64]model.Attendance
	materials        map[int64]model.SessionMaterial

	// 故障注入（不参与快照）
	submissionCreateErrs []error
	setDiscountErr       error

	// 通过 FOR UPDATE 读取过的折扣码
	lockedCodes []string
}

type memSnapshot struct {
	nextID           int64
	users            map[int64]model.User
	courses          map[int64]model.Course
	enrollments      map[int64]model.Enrollment
	sessions         map[int64]model.ClassSession
	assignments      map[int64]model.Assignment
	personalizations map[[2]int64]model.AssignmentPersonalization
	submissions      map[int64]model.Submission
	discounts        map[int64]model.DiscountCode
	notifications    []model.Notification
	attendance       map[[2]int64]model.Attendance
	materials        map[int64]model.SessionMaterial
}

func newMemDB() *memDB {
	return &memDB{
		nextID:           100,
		users:            make(map[int64]model.User),
		courses:          make(map[int64]model.Course),
		enrollments:      make(map[int64]model.Enrollment),
		sessions:         make(map[int64]model.ClassSession),
		assignments:      make(map[int64]model.Assignment),
		personalizations: make(map[[2]int64]model.AssignmentPersonalization),
		submissions:      make(map[int64]model.Submission),
		discounts:        make(map[int64]model.DiscountCode),
		attendance:       make(map[[2]int64]model.Attendance),
		materials:        make(map[int64]model.SessionMaterial),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		nextID:           db.nextID,
		users:            cloneMap(db.users),
		courses:          cloneMap(db.courses),
		enrollments:      cloneMap(db.enrollments),
		sessions:         cloneMap(db.sessions),
		assignments:      cloneMap(db.assignments),
		personalizations: cloneMap(db.personalizations),
		submissions:      cloneMap(db.submissions),
		discounts:        cloneMap(db.discounts),
		notifications:    append([]model.Notification(nil), db.notifications...),
		attendance:       cloneMap(db.attendance),
		materials:        cloneMap(db.materials),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.nextID = s.nextID
	db.users = s.users
	db.courses = s.courses
	db.enrollments = s.enrollments
	db.sessions = s.sessions
	db.assignments = s.assignments
	db.personalizations = s.personalizations
	db.submissions = s.submissions
	db.discounts = s.discounts
	db.notifications = s.notifications
	db.attendance = s.attendance
	db.materials = s.materials
}

// id 调用方须持有 mu
func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

// newMockRepository 组装基于 memDB 的 Repository
func newMockRepository(db *memDB) *repository.Repository {
	r := &repository.Repository{
		User:            &mockUserRepo{db: db},
		Course:          &mockCourseRepo{db: db},
		Enrollment:      &mockEnrollmentRepo{db: db},
		ClassSession:    &mockClassSessionRepo{db: db},
		Assignment:      &mockAssignmentRepo{db: db},
		Personalization: &mockPersonalizationRepo{db: db},
		Submission:      &mockSubmissionRepo{db: db},
		DiscountCode:    &mockDiscountCodeRepo{db: db},
		Notification:    &mockNotificationRepo{db: db},
		Attendance:      &mockAttendanceRepo{db: db},
		Material:        &mockMaterialRepo{db: db},
	}
	r.TxRunner = func(_ context.Context, fn func(txRepo *repository.Repository) error) error {
		db.txMu.Lock()
		defer db.txMu.Unlock()

		snap := db.snapshot()
		inner := *r
		inner.TxRunner = nil
		if err := fn(&inner); err != nil {
			db.restore(snap)
			return err
		}
		return nil
	}
	return r
}

func pgError(code string) error {
	return &pgconn.PgError{Code: code, Message: "mock"}
}

// ── Mock UserRepository ──

type mockUserRepo struct{ db *memDB }

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.db.id()
	}
	m.db.users[u.ID] = *u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if u, ok := m.db.users[id]; ok {
		return &u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDs(_ context.Context, ids []int64) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.User
	for _, id := range ids {
		if u, ok := m.db.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) ListByRole(_ context.Context, role string) ([]model.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.User
	for _, u := range m.db.users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct{ db *memDB }

func (m *mockCourseRepo) Create(_ context.Context, c *model.Course) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.db.id()
	}
	m.db.courses[c.ID] = *c
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id int64) (*model.Course, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if c, ok := m.db.courses[id]; ok {
		return &c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Course, error) {
	return m.GetByID(ctx, id)
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ db *memDB }

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.Enrollment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.enrollments {
		if x.CourseID == e.CourseID && x.StudentID == e.StudentID {
			return pgError("23505")
		}
	}
	if e.ID == 0 {
		e.ID = m.db.id()
	}
	m.db.enrollments[e.ID] = *e
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id int64) (*model.Enrollment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if e, ok := m.db.enrollments[id]; ok {
		return &e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) GetByIDForUpdate(ctx context.Context, id int64) (*model.Enrollment, error) {
	return m.GetByID(ctx, id)
}

func (m *mockEnrollmentRepo) GetByStudentAndCourse(_ context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, e := range m.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) GetEligibleForUpdate(_ context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, e := range m.db.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && e.IsEligible() {
			return &e, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) Update(_ context.Context, e *model.Enrollment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.enrollments[e.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Status = e.Status
	cur.PaymentStatus = e.PaymentStatus
	cur.PaidAmount = e.PaidAmount
	cur.FinalScore = e.FinalScore
	cur.CertificateIssued = e.CertificateIssued
	m.db.enrollments[e.ID] = cur
	return nil
}

func (m *mockEnrollmentRepo) SetDiscountCode(_ context.Context, enrollmentID int64, discountCodeID *int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if m.db.setDiscountErr != nil {
		return m.db.setDiscountErr
	}
	e, ok := m.db.enrollments[enrollmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.DiscountCodeID = discountCodeID
	m.db.enrollments[enrollmentID] = e
	return nil
}

func (m *mockEnrollmentRepo) ListEligibleStudentIDs(_ context.Context, courseID int64) ([]int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var ids []int64
	for _, e := range m.db.enrollments {
		if e.CourseID == courseID && e.IsEligible() {
			ids = append(ids, e.StudentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *mockEnrollmentRepo) FilterEligibleStudentIDs(ctx context.Context, courseID int64, studentIDs []int64) ([]int64, error) {
	eligible, _ := m.ListEligibleStudentIDs(ctx, courseID)
	set := make(map[int64]bool, len(eligible))
	for _, id := range eligible {
		set[id] = true
	}
	var out []int64
	for _, id := range studentIDs {
		if set[id] {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) CountActive(_ context.Context, courseID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, e := range m.db.enrollments {
		if e.CourseID == courseID && e.Status != model.EnrollmentStatusRejected && e.Status != model.EnrollmentStatusCancelled {
			n++
		}
	}
	return n, nil
}

func (m *mockEnrollmentRepo) CountByDiscountCode(_ context.Context, discountCodeID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, e := range m.db.enrollments {
		if e.DiscountCodeID != nil && *e.DiscountCodeID == discountCodeID {
			n++
		}
	}
	return n, nil
}

// ── Mock ClassSessionRepository ──

type mockClassSessionRepo struct{ db *memDB }

func (m *mockClassSessionRepo) Create(_ context.Context, s *model.ClassSession) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if s.ID == 0 {
		s.ID = m.db.id()
	}
	m.db.sessions[s.ID] = *s
	return nil
}

func (m *mockClassSessionRepo) GetByID(_ context.Context, id int64) (*model.ClassSession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if s, ok := m.db.sessions[id]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockClassSessionRepo) ListByCourse(_ context.Context, courseID int64) ([]model.ClassSession, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.ClassSession
	for _, s := range m.db.sessions {
		if s.CourseID == courseID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionNumber < out[j].SessionNumber })
	return out, nil
}

func (m *mockClassSessionRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	s, ok := m.db.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Status = status
	m.db.sessions[id] = s
	return nil
}

func (m *mockClassSessionRepo) SetHasMaterials(_ context.Context, id int64, has bool) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if s, ok := m.db.sessions[id]; ok {
		s.HasMaterials = has
		m.db.sessions[id] = s
	}
	return nil
}

// ── Mock AssignmentRepository ──

type mockAssignmentRepo struct{ db *memDB }

func (m *mockAssignmentRepo) Create(_ context.Context, a *model.Assignment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if a.ID == 0 {
		a.ID = m.db.id()
	}
	m.db.assignments[a.ID] = *a
	return nil
}

func (m *mockAssignmentRepo) GetByID(_ context.Context, id int64) (*model.Assignment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if a, ok := m.db.assignments[id]; ok {
		return &a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockAssignmentRepo) ListBySession(_ context.Context, sessionID int64) ([]model.Assignment, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Assignment
	for _, a := range m.db.assignments {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAssignmentRepo) Update(_ context.Context, a *model.Assignment) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.assignments[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.db.assignments[a.ID] = *a
	return nil
}

func (m *mockAssignmentRepo) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.assignments, id)
	return nil
}

// ── Mock PersonalizationRepository ──

type mockPersonalizationRepo struct{ db *memDB }

func (m *mockPersonalizationRepo) Get(_ context.Context, assignmentID, studentID int64) (*model.AssignmentPersonalization, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if p, ok := m.db.personalizations[[2]int64{assignmentID, studentID}]; ok {
		return &p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPersonalizationRepo) ListByAssignment(_ context.Context, assignmentID int64) ([]model.AssignmentPersonalization, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.AssignmentPersonalization
	for k, p := range m.db.personalizations {
		if k[0] == assignmentID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

func (m *mockPersonalizationRepo) Upsert(_ context.Context, rows []model.AssignmentPersonalization) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, p := range rows {
		key := [2]int64{p.AssignmentID, p.StudentID}
		if cur, ok := m.db.personalizations[key]; ok {
			p.ID = cur.ID
		} else {
			p.ID = m.db.id()
		}
		m.db.personalizations[key] = p
	}
	return nil
}

func (m *mockPersonalizationRepo) DeleteByAssignment(_ context.Context, assignmentID int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for k := range m.db.personalizations {
		if k[0] == assignmentID {
			delete(m.db.personalizations, k)
		}
	}
	return nil
}

// ── Mock SubmissionRepository ──

type mockSubmissionRepo struct{ db *memDB }

func (m *mockSubmissionRepo) Create(_ context.Context, s *model.Submission) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if len(m.db.submissionCreateErrs) > 0 {
		err := m.db.submissionCreateErrs[0]
		m.db.submissionCreateErrs = m.db.submissionCreateErrs[1:]
		if err != nil {
			return err
		}
	}
	for _, x := range m.db.submissions {
		if x.AssignmentID == s.AssignmentID && x.StudentID == s.StudentID && x.AttemptNumber == s.AttemptNumber {
			return pgError("23505")
		}
	}
	if s.ID == 0 {
		s.ID = m.db.id()
	}
	m.db.submissions[s.ID] = *s
	return nil
}

func (m *mockSubmissionRepo) GetByID(_ context.Context, id int64) (*model.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if s, ok := m.db.submissions[id]; ok {
		return &s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubmissionRepo) Update(_ context.Context, s *model.Submission) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	cur, ok := m.db.submissions[s.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	cur.Status = s.Status
	cur.GradedAt = s.GradedAt
	cur.GradedBy = s.GradedBy
	cur.AutoGraded = s.AutoGraded
	cur.ScoreObtained = s.ScoreObtained
	cur.FeedbackText = s.FeedbackText
	m.db.submissions[s.ID] = cur
	return nil
}

func (m *mockSubmissionRepo) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.submissions, id)
	return nil
}

func (m *mockSubmissionRepo) MaxAttempt(_ context.Context, assignmentID, studentID int64) (int, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	max := 0
	for _, s := range m.db.submissions {
		if s.AssignmentID == assignmentID && s.StudentID == studentID && s.AttemptNumber > max {
			max = s.AttemptNumber
		}
	}
	return max, nil
}

func (m *mockSubmissionRepo) ListByAssignment(_ context.Context, assignmentID int64) ([]model.Submission, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Submission
	for _, s := range m.db.submissions {
		if s.AssignmentID != assignmentID {
			continue
		}
		if u, ok := m.db.users[s.StudentID]; ok {
			u := u
			s.Student = &u
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].SubmittedAt, out[j].SubmittedAt
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		case !ti.Equal(*tj):
			return ti.After(*tj)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *mockSubmissionRepo) CountByAssignment(_ context.Context, assignmentID int64) (int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var n int64
	for _, s := range m.db.submissions {
		if s.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

// ── Mock DiscountCodeRepository ──

type mockDiscountCodeRepo struct{ db *memDB }

func (m *mockDiscountCodeRepo) Create(_ context.Context, d *model.DiscountCode) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.discounts {
		if x.Code == d.Code {
			return pgError("23505")
		}
	}
	if d.ID == 0 {
		d.ID = m.db.id()
	}
	m.db.discounts[d.ID] = *d
	return nil
}

func (m *mockDiscountCodeRepo) GetByID(_ context.Context, id int64) (*model.DiscountCode, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if d, ok := m.db.discounts[id]; ok {
		return &d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDiscountCodeRepo) GetByCode(_ context.Context, code string) (*model.DiscountCode, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, d := range m.db.discounts {
		if d.Code == code {
			return &d, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockDiscountCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*model.DiscountCode, error) {
	m.db.mu.Lock()
	m.db.lockedCodes = append(m.db.lockedCodes, code)
	m.db.mu.Unlock()
	return m.GetByCode(ctx, code)
}

func (m *mockDiscountCodeRepo) List(_ context.Context, filter repository.DiscountCodeFilter, offset, limit int) ([]model.DiscountCode, int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var all []model.DiscountCode
	for _, d := range m.db.discounts {
		if filter.Code != "" && !strings.HasPrefix(d.Code, filter.Code) {
			continue
		}
		if filter.Active != nil && d.Active != *filter.Active {
			continue
		}
		if filter.UserID != nil && (d.UserID == nil || *d.UserID != *filter.UserID) {
			continue
		}
		all = append(all, d)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockDiscountCodeRepo) Update(_ context.Context, d *model.DiscountCode) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, x := range m.db.discounts {
		if x.Code == d.Code && x.ID != d.ID {
			return pgError("23505")
		}
	}
	m.db.discounts[d.ID] = *d
	return nil
}

func (m *mockDiscountCodeRepo) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	delete(m.db.discounts, id)
	return nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct{ db *memDB }

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification, recipientIDs []int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	n.ID = m.db.id()
	n.CreatedAt = time.Now()
	n.Recipients = nil
	for _, uid := range recipientIDs {
		n.Recipients = append(n.Recipients, model.NotificationRecipient{NotificationID: n.ID, UserID: uid})
	}
	m.db.notifications = append(m.db.notifications, *n)
	return nil
}

func (m *mockNotificationRepo) ListForUser(_ context.Context, userID int64, offset, limit int) ([]model.Notification, int64, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Notification
	for i := len(m.db.notifications) - 1; i >= 0; i-- {
		n := m.db.notifications[i]
		for _, r := range n.Recipients {
			if r.UserID == userID {
				out = append(out, n)
				break
			}
		}
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (m *mockNotificationRepo) MarkRead(_ context.Context, notificationID, userID int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	now := time.Now()
	for i := range m.db.notifications {
		if m.db.notifications[i].ID != notificationID {
			continue
		}
		for j := range m.db.notifications[i].Recipients {
			r := &m.db.notifications[i].Recipients[j]
			if r.UserID == userID && r.ReadAt == nil {
				r.ReadAt = &now
			}
		}
	}
	return nil
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct{ db *memDB }

func (m *mockAttendanceRepo) Upsert(_ context.Context, rows []model.Attendance) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	for _, a := range rows {
		key := [2]int64{a.SessionID, a.StudentID}
		if cur, ok := m.db.attendance[key]; ok {
			a.ID = cur.ID
		} else {
			a.ID = m.db.id()
		}
		m.db.attendance[key] = a
	}
	return nil
}

func (m *mockAttendanceRepo) ListBySession(_ context.Context, sessionID int64) ([]model.Attendance, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.Attendance
	for k, a := range m.db.attendance {
		if k[0] == sessionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out, nil
}

// ── Mock SessionMaterialRepository ──

type mockMaterialRepo struct{ db *memDB }

func (m *mockMaterialRepo) Create(_ context.Context, mat *model.SessionMaterial) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if mat.ID == 0 {
		mat.ID = m.db.id()
	}
	m.db.materials[mat.ID] = *mat
	return nil
}

func (m *mockMaterialRepo) GetByID(_ context.Context, id int64) (*model.SessionMaterial, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if mat, ok := m.db.materials[id]; ok {
		return &mat, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMaterialRepo) Update(_ context.Context, mat *model.SessionMaterial) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.materials[mat.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.db.materials[mat.ID] = *mat
	return nil
}

func (m *mockMaterialRepo) Delete(_ context.Context, id int64) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	if _, ok := m.db.materials[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.db.materials, id)
	return nil
}

func (m *mockMaterialRepo) ListBySession(_ context.Context, sessionID int64) ([]model.SessionMaterial, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	var out []model.SessionMaterial
	for _, mat := range m.db.materials {
		if mat.SessionID == sessionID {
			out = append(out, mat)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockMaterialRepo) CountBySession(ctx context.Context, sessionID int64) (int64, error) {
	list, err := m.ListBySession(ctx, sessionID)
	return int64(len(list)), err
}

// ── 协作者替身 ──

type notifyCall struct {
	recipients []int64
	creator    int64
	notice     Notice
}

// recordingNotifier 记录所有通知调用
type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
}

func (n *recordingNotifier) NotifyUser(ctx context.Context, recipientID, creatorID int64, notice Notice) {
	n.NotifyUsers(ctx, []int64{recipientID}, creatorID, notice)
}

func (n *recordingNotifier) NotifyUsers(_ context.Context, recipientIDs []int64, creatorID int64, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, notifyCall{
		recipients: append([]int64(nil), recipientIDs...),
		creator:    creatorID,
		notice:     notice,
	})
}

func (n *recordingNotifier) snapshot() []notifyCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notifyCall(nil), n.calls...)
}

// memFileStore 内存文件存储
type memFileStore struct {
	mu       sync.Mutex
	files    map[string][]byte
	deleted  []string
	storeErr error
	seq      int
}

func newMemFileStore() *memFileStore {
	return &memFileStore{files: make(map[string][]byte)}
}

func (s *memFileStore) Store(_ context.Context, dir string, up *storage.Upload) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return "", s.storeErr
	}
	data, err := io.ReadAll(up.Content)
	if err != nil {
		return "", err
	}
	s.seq++
	ref := fmt.Sprintf("%s/file-%d.bin", dir, s.seq)
	s.files[ref] = data
	return ref, nil
}

func (s *memFileStore) Delete(_ context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files, ref)
	s.deleted = append(s.deleted, ref)
	return nil
}

func (s *memFileStore) URL(ref string) string { return "https://files.test/" + ref }

func (s *memFileStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// fakeClock 可调时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

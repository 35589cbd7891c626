package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
)

// fakeSMS 记录短信，按手机号注入错误或 panic
type fakeSMS struct {
	mu      sync.Mutex
	sent    map[string]string
	failFor map[string]error
	panicOn string
}

func newFakeSMS() *fakeSMS {
	return &fakeSMS{sent: make(map[string]string), failFor: make(map[string]error)}
}

func (s *fakeSMS) Send(_ context.Context, phone, message string) error {
	if phone == s.panicOn {
		panic("gateway exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failFor[phone]; err != nil {
		return err
	}
	s.sent[phone] = message
	return nil
}

func (s *fakeSMS) phones() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for p := range s.sent {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ── dispatcher ──

func TestNotifier_NotifyUsers_OneRowForAllRecipients(t *testing.T) {
	f := newFixture(t)
	sender := newFakeSMS()
	n := NewNotifier(f.repo, sender, 4, f.logger)

	n.NotifyUsers(context.Background(), []int64{studentID, outsiderID, teacherID}, adminID, Notice{
		Title: "عنوان", Body: "متن", Link: "/courses/20",
	})

	if len(f.db.notifications) != 1 {
		t.Fatalf("期望 1 条站内通知，实际 %d", len(f.db.notifications))
	}
	row := f.db.notifications[0]
	if row.UserID != adminID || len(row.Recipients) != 3 {
		t.Errorf("创建者应为 admin 且有 3 个接收人，实际 %+v", row)
	}
	if row.Link == nil || *row.Link != "/courses/20" {
		t.Errorf("链接未写入: %v", row.Link)
	}

	// outsider 未填写手机号
	got := sender.phones()
	if len(got) != 2 || got[0] != "09120000002" || got[1] != "09120000010" {
		t.Errorf("只应给有手机号的用户发短信，实际 %v", got)
	}
	if sender.sent["09120000010"] != "متن" {
		t.Errorf("SMS 为空时正文使用 Body，实际 %q", sender.sent["09120000010"])
	}
}

func TestNotifier_NotifyUser_PrefersSMSText(t *testing.T) {
	f := newFixture(t)
	sender := newFakeSMS()
	n := NewNotifier(f.repo, sender, 1, f.logger)

	n.NotifyUser(context.Background(), studentID, teacherID, Notice{Title: "t", Body: "long body", SMS: "short"})

	if sender.sent["09120000010"] != "short" {
		t.Errorf("期望短信使用 SMS 文案，实际 %q", sender.sent["09120000010"])
	}
}

func TestNotifier_SwallowsSMSFailures(t *testing.T) {
	f := newFixture(t)
	sender := newFakeSMS()
	sender.failFor["09120000002"] = errors.New("gateway 503")
	sender.panicOn = "09120000010"
	n := NewNotifier(f.repo, sender, 2, f.logger)

	// 不应 panic，也不应阻止站内通知写入
	n.NotifyUsers(context.Background(), []int64{studentID, teacherID}, adminID, Notice{Title: "t", Body: "b"})

	if len(f.db.notifications) != 1 {
		t.Errorf("短信失败不影响站内通知，实际 %d 条", len(f.db.notifications))
	}
	if len(sender.phones()) != 0 {
		t.Errorf("两条短信都应失败，实际成功 %v", sender.phones())
	}
}

func TestNotifier_EmptyRecipientsNoop(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(f.repo, newFakeSMS(), 1, f.logger)

	n.NotifyUsers(context.Background(), nil, adminID, Notice{Title: "t"})
	if len(f.db.notifications) != 0 {
		t.Error("没有接收人时不写入通知")
	}
}

func TestNotifier_CancelledContextStillDelivers(t *testing.T) {
	f := newFixture(t)
	sender := newFakeSMS()
	n := NewNotifier(f.repo, sender, 1, f.logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.NotifyUser(ctx, studentID, teacherID, Notice{Title: "t", Body: "b"})

	if len(sender.phones()) != 1 {
		t.Error("请求上下文取消后仍应完成分发")
	}
}

// ── NotificationService ──

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	f := newFixture(t)
	n := NewNotifier(f.repo, nil, 1, f.logger)
	n.NotifyUser(context.Background(), studentID, teacherID, Notice{Title: "اول"})
	n.NotifyUser(context.Background(), studentID, teacherID, Notice{Title: "دوم"})
	n.NotifyUser(context.Background(), outsiderID, teacherID, Notice{Title: "دیگری"})

	svc := NewNotificationService(f.repo, f.logger)
	list, total, err := svc.List(context.Background(), studentID, &dto.NotificationListRequest{})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 2 || len(list) != 2 || list[0].Title != "دوم" {
		t.Fatalf("期望按时间倒序返回本人的 2 条通知，实际 total=%d %+v", total, list)
	}
	if list[0].ReadAt != nil {
		t.Error("新通知应为未读")
	}

	if err := svc.MarkRead(context.Background(), list[0].ID, studentID); err != nil {
		t.Fatalf("标记已读失败: %v", err)
	}
	list, _, _ = svc.List(context.Background(), studentID, &dto.NotificationListRequest{})
	if list[0].ReadAt == nil || list[1].ReadAt != nil {
		t.Error("只应标记指定通知为已读")
	}
}

// ── ClassSessionService ──

func TestClassSessionService_UpdateStatus_NotifiesTeacherAndStudents(t *testing.T) {
	f := newFixture(t)
	svc := NewClassSessionService(f.repo, f.notifier, f.logger)

	res, err := svc.UpdateStatus(context.Background(), f.session.ID, model.SessionStatusCancelled, asAdmin)
	if err != nil {
		t.Fatalf("更新课次状态失败: %v", err)
	}
	if res.Status != model.SessionStatusCancelled || f.db.sessions[f.session.ID].Status != model.SessionStatusCancelled {
		t.Errorf("状态未更新: %+v", res)
	}

	calls := f.notifier.snapshot()
	if len(calls) != 2 {
		t.Fatalf("期望通知教师与学生各一次，实际 %d", len(calls))
	}
	if calls[0].recipients[0] != teacherID || calls[0].notice.SMS != "" {
		t.Errorf("教师通知不发短信，实际 %+v", calls[0])
	}
	if len(calls[1].recipients) != 1 || calls[1].recipients[0] != studentID || calls[1].notice.SMS == "" {
		t.Errorf("应通知有效报名的学生并附短信，实际 %+v", calls[1])
	}
}

func TestClassSessionService_UpdateStatus_Validation(t *testing.T) {
	f := newFixture(t)
	svc := NewClassSessionService(f.repo, f.notifier, f.logger)

	if _, err := svc.UpdateStatus(context.Background(), f.session.ID, "finished", asAdmin); !errors.Is(err, ErrInvalidSessionStatus) {
		t.Errorf("期望 ErrInvalidSessionStatus，实际 %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), f.session.ID, model.SessionStatusHeld, asOtherTeacher); !errors.Is(err, ErrNoPermission) {
		t.Errorf("期望 ErrNoPermission，实际 %v", err)
	}
	if _, err := svc.UpdateStatus(context.Background(), 999, model.SessionStatusHeld, asAdmin); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("期望 ErrSessionNotFound，实际 %v", err)
	}
	if len(f.notifier.snapshot()) != 0 {
		t.Error("失败时不应发送通知")
	}
}

// ── AttendanceService ──

func TestAttendanceService_UpsertBulk(t *testing.T) {
	f := newFixture(t)
	other := f.addEnrollment(80, model.EnrollmentStatusConfirmed, model.PaymentStatusPaid)
	svc := NewAttendanceService(f.repo, f.logger)

	items := []dto.AttendanceItem{
		{StudentID: studentID, Status: model.AttendanceStatusAbsent},
		{StudentID: other.StudentID, Status: model.AttendanceStatusPresent},
		{StudentID: studentID, Status: model.AttendanceStatusLate, Note: strPtr("۱۰ دقیقه")},
	}
	if err := svc.UpsertBulk(context.Background(), f.session.ID, items, asTeacher); err != nil {
		t.Fatalf("登记考勤失败: %v", err)
	}

	list, err := svc.ListBySession(context.Background(), f.session.ID, asTeacher)
	if err != nil {
		t.Fatalf("查询考勤失败: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条考勤，实际 %d", len(list))
	}
	if list[0].StudentID != studentID || list[0].Status != model.AttendanceStatusLate {
		t.Errorf("重复学生应以最后一条为准，实际 %+v", list[0])
	}
}

func TestAttendanceService_UpsertBulk_RejectsWholeBatch(t *testing.T) {
	f := newFixture(t)
	svc := NewAttendanceService(f.repo, f.logger)

	items := []dto.AttendanceItem{
		{StudentID: studentID, Status: model.AttendanceStatusPresent},
		{StudentID: pendingID, Status: model.AttendanceStatusPresent},
	}
	err := svc.UpsertBulk(context.Background(), f.session.ID, items, asTeacher)
	if !errors.Is(err, ErrInvalidStudents) {
		t.Fatalf("期望 ErrInvalidStudents，实际 %v", err)
	}
	if len(f.db.attendance) != 0 {
		t.Error("任一学生无效时不应写入任何考勤")
	}

	err = svc.UpsertBulk(context.Background(), f.session.ID,
		[]dto.AttendanceItem{{StudentID: studentID, Status: "sleeping"}}, asTeacher)
	if !errors.Is(err, ErrInvalidAttendanceStatus) {
		t.Fatalf("期望 ErrInvalidAttendanceStatus，实际 %v", err)
	}
}

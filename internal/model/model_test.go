package model

import (
	"testing"
	"time"
)

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

var now = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestNormalizeDiscountCode(t *testing.T) {
	if got := NormalizeDiscountCode("  spring26 \t"); got != "SPRING26" {
		t.Errorf("期望 SPRING26，实际 %q", got)
	}
}

func TestDiscountCode_Predicates(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name      string
		code      DiscountCode
		userID    int64
		used      int64
		expired   bool
		available bool
		canUse    bool
	}{
		{"可用无限制", DiscountCode{Active: true}, 1, 100, false, true, true},
		{"已过期", DiscountCode{Active: true, ExpiresAt: &past}, 1, 0, true, false, false},
		{"未过期", DiscountCode{Active: true, ExpiresAt: &future}, 1, 0, false, true, true},
		{"未启用", DiscountCode{Active: false}, 1, 0, false, false, false},
		{"限定其他用户", DiscountCode{Active: true, UserID: int64Ptr(2)}, 1, 0, false, true, false},
		{"限定本人", DiscountCode{Active: true, UserID: int64Ptr(1)}, 1, 0, false, true, true},
		{"次数用尽", DiscountCode{Active: true, MaxUses: intPtr(1)}, 1, 1, false, true, false},
		{"次数未用尽", DiscountCode{Active: true, MaxUses: intPtr(2)}, 1, 1, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.code.IsExpired(now); got != tt.expired {
				t.Errorf("IsExpired=%v，期望 %v", got, tt.expired)
			}
			if got := tt.code.IsAvailable(now); got != tt.available {
				t.Errorf("IsAvailable=%v，期望 %v", got, tt.available)
			}
			if got := tt.code.CanBeUsedBy(tt.userID, tt.used, now); got != tt.canUse {
				t.Errorf("CanBeUsedBy=%v，期望 %v", got, tt.canUse)
			}
		})
	}
}

func TestDiscountCode_RemainingUses(t *testing.T) {
	unlimited := DiscountCode{}
	if unlimited.RemainingUses(5) != nil || !unlimited.HasUnlimitedUses() {
		t.Error("无限次折扣码 RemainingUses 应为 nil")
	}

	limited := DiscountCode{MaxUses: intPtr(3)}
	if got := limited.RemainingUses(1); got == nil || *got != 2 {
		t.Errorf("期望剩余 2，实际 %v", got)
	}
	if got := limited.RemainingUses(7); got == nil || *got != 0 {
		t.Errorf("超用时剩余次数应为 0，实际 %v", got)
	}
}

func TestCourse_IsFullAndRemaining(t *testing.T) {
	c := Course{CapacityMax: 2}
	if c.IsFull(1) {
		t.Error("1/2 不应满员")
	}
	if !c.IsFull(2) {
		t.Error("2/2 应满员")
	}
	if got := c.RemainingCapacity(5); got != 0 {
		t.Errorf("剩余名额不应为负，实际 %d", got)
	}
}

func TestCourse_IsRegistrationOpen(t *testing.T) {
	c := Course{Status: CourseStatusRegistrationOpen, RegistrationDeadline: now.Add(time.Hour)}
	if !c.IsRegistrationOpen(now) {
		t.Error("截止前应可报名")
	}
	if c.IsRegistrationOpen(now.Add(2 * time.Hour)) {
		t.Error("截止后不应可报名")
	}
	c.Status = CourseStatusOngoing
	if c.IsRegistrationOpen(now) {
		t.Error("非 registration_open 状态不应可报名")
	}
}

func TestFinalPrice(t *testing.T) {
	if got := FinalPrice(1000, nil); got != 1000 {
		t.Errorf("无折扣应为原价，实际 %d", got)
	}
	if got := FinalPrice(999, intPtr(10)); got != 900 {
		t.Errorf("期望 900，实际 %d", got)
	}
	if got := FinalPrice(500, intPtr(100)); got != 0 {
		t.Errorf("100%% 折扣应为 0，实际 %d", got)
	}
}

func TestSubmission_ScorePercentage(t *testing.T) {
	s := Submission{MaxScoreCached: 4}
	if s.ScorePercentage() != 0 || s.IsPassed() {
		t.Error("未评分时百分比应为 0 且未通过")
	}
	s.ScoreObtained = intPtr(2)
	if s.ScorePercentage() != 50 || !s.IsPassed() {
		t.Errorf("2/4 应为 50%% 且通过，实际 %v", s.ScorePercentage())
	}
	s.MaxScoreCached = 0
	if s.ScorePercentage() != 0 {
		t.Error("满分为 0 时百分比应为 0")
	}
}

func TestClassSession_Times(t *testing.T) {
	s := ClassSession{
		SessionDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		StartTime:   "09:30",
		EndTime:     "11:00",
	}
	if got := s.DurationMinutes(); got != 90 {
		t.Errorf("期望 90 分钟，实际 %d", got)
	}
	if !s.IsUpcoming(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Error("09:00 时课次应未开始")
	}
	if !s.IsPast(time.Date(2026, 3, 1, 11, 1, 0, 0, time.UTC)) {
		t.Error("11:01 时课次应已结束")
	}

	s.EndTime = "bad"
	if s.DurationMinutes() != 0 || s.IsPast(now) {
		t.Error("非法时间应视为 0 分钟且不算已结束")
	}
}

func TestIsManualGradingType(t *testing.T) {
	for typ, want := range map[string]bool{
		AssignmentTypeText:        false,
		AssignmentTypeMCQ:         false,
		AssignmentTypeFillBlank:   false,
		AssignmentTypeTranslation: true,
		AssignmentTypeFile:        true,
	} {
		if got := IsManualGradingType(typ); got != want {
			t.Errorf("%s: 期望 %v，实际 %v", typ, want, got)
		}
	}
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"elearning/backend/internal/dto"
	"elearning/backend/internal/model"
	pkgerrors "elearning/backend/pkg/errors"
)

// ── ValidateForUser ──

func TestValidateForUser(t *testing.T) {
	past := testNow.Add(-time.Hour)
	future := testNow.Add(time.Hour)
	other := int64(99)
	owner := studentID

	cases := []struct {
		name string
		code model.DiscountCode
		used int64
		want error
	}{
		{"可用", model.DiscountCode{Code: "A", Active: true}, 0, nil},
		{"未到期", model.DiscountCode{Code: "A", Active: true, ExpiresAt: &future}, 0, nil},
		{"已过期", model.DiscountCode{Code: "A", Active: true, ExpiresAt: &past}, 0, ErrDiscountExpired},
		{"过期优先于未启用", model.DiscountCode{Code: "A", Active: false, ExpiresAt: &past}, 0, ErrDiscountExpired},
		{"未启用", model.DiscountCode{Code: "A", Active: false}, 0, ErrDiscountInactive},
		{"限定他人", model.DiscountCode{Code: "A", Active: true, UserID: &other}, 0, ErrDiscountRestricted},
		{"限定本人", model.DiscountCode{Code: "A", Active: true, UserID: &owner}, 0, nil},
		{"次数用尽", model.DiscountCode{Code: "A", Active: true, MaxUses: intPtr(2)}, 2, ErrDiscountExhausted},
		{"次数未尽", model.DiscountCode{Code: "A", Active: true, MaxUses: intPtr(2)}, 1, nil},
		{"限定他人优先于用尽", model.DiscountCode{Code: "A", Active: true, UserID: &other, MaxUses: intPtr(1)}, 1, ErrDiscountRestricted},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateForUser(&tc.code, studentID, tc.used, testNow)
			if tc.want == nil {
				if err != nil {
					t.Errorf("期望可用，实际 %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("期望 %v，实际 %v", tc.want, err)
			}
		})
	}
}

// ── ApplyToEnrollment ──

func TestDiscountService_ApplyToEnrollment_Success(t *testing.T) {
	f := newFixture(t)
	d := f.addDiscount(nil)

	applied, err := f.discountService().ApplyToEnrollment(context.Background(), " spring20 ", studentID, f.enrollment.ID, nil)
	if err != nil {
		t.Fatalf("应用折扣码失败: %v", err)
	}
	if applied.ID != d.ID {
		t.Errorf("期望折扣码 %d，实际 %d", d.ID, applied.ID)
	}
	e := f.db.enrollments[f.enrollment.ID]
	if e.DiscountCodeID == nil || *e.DiscountCodeID != d.ID {
		t.Errorf("报名未关联折扣码，实际 %v", e.DiscountCodeID)
	}

	calls := f.notifier.snapshot()
	if len(calls) != 1 || calls[0].recipients[0] != studentID || calls[0].creator != studentID {
		t.Errorf("应通知学生本人，实际 %+v", calls)
	}
}

func TestDiscountService_ApplyToEnrollment_ActorAsCreator(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)

	admin := adminID
	if _, err := f.discountService().ApplyToEnrollment(context.Background(), "SPRING20", studentID, f.enrollment.ID, &admin); err != nil {
		t.Fatalf("应用折扣码失败: %v", err)
	}
	calls := f.notifier.snapshot()
	if len(calls) != 1 || calls[0].creator != adminID {
		t.Errorf("通知创建者应为操作人，实际 %+v", calls)
	}
}

func TestDiscountService_ApplyToEnrollment_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.discountService().ApplyToEnrollment(context.Background(), "NOPE", studentID, f.enrollment.ID, nil)
	if !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("期望 ErrDiscountNotFound，实际 %v", err)
	}
	_, err = f.discountService().ApplyToEnrollment(context.Background(), "SPRING20", studentID, 404, nil)
	if !errors.Is(err, ErrEnrollmentNotFound) {
		t.Fatalf("期望 ErrEnrollmentNotFound，实际 %v", err)
	}
}

func TestDiscountService_ApplyToEnrollment_OtherStudentsEnrollment(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)

	_, err := f.discountService().ApplyToEnrollment(context.Background(), "SPRING20", outsiderID, f.enrollment.ID, nil)
	if !errors.Is(err, ErrNoPermission) {
		t.Fatalf("为他人报名应用折扣码期望 ErrNoPermission，实际 %v", err)
	}
}

func TestDiscountService_ApplyToEnrollment_InvalidLeavesEnrollmentUntouched(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(func(d *model.DiscountCode) { d.Active = false })

	_, err := f.discountService().ApplyToEnrollment(context.Background(), "SPRING20", studentID, f.enrollment.ID, nil)
	if !errors.Is(err, ErrDiscountInactive) {
		t.Fatalf("期望 ErrDiscountInactive，实际 %v", err)
	}
	if f.db.enrollments[f.enrollment.ID].DiscountCodeID != nil {
		t.Error("校验失败时报名不应被修改")
	}
	if len(f.notifier.snapshot()) != 0 {
		t.Error("校验失败时不应发送通知")
	}
}

// 内存事务串行执行，真实并发由 repository 集成测试覆盖；这里校验结果与加锁读取
func TestDiscountService_ApplyToEnrollment_LastUseRace(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(func(d *model.DiscountCode) { d.MaxUses = intPtr(1) })
	svc := f.discountService()

	type attempt struct {
		user, enrollment int64
	}
	attempts := []attempt{{studentID, f.enrollment.ID}, {pendingID, 41}}

	var wg sync.WaitGroup
	errs := make([]error, len(attempts))
	for i, a := range attempts {
		wg.Add(1)
		go func(i int, a attempt) {
			defer wg.Done()
			_, errs[i] = svc.ApplyToEnrollment(context.Background(), "SPRING20", a.user, a.enrollment, nil)
		}(i, a)
	}
	wg.Wait()

	ok, exhausted := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDiscountExhausted):
			exhausted++
		default:
			t.Errorf("意外错误: %v", err)
		}
	}
	if ok != 1 || exhausted != 1 {
		t.Errorf("最后一次使用名额只能有一个成功，实际成功 %d、用尽 %d", ok, exhausted)
	}
	if len(f.db.lockedCodes) != len(attempts) {
		t.Errorf("每次应用都应加锁读取折扣码，实际加锁 %d 次", len(f.db.lockedCodes))
	}
	for _, code := range f.db.lockedCodes {
		if code != "SPRING20" {
			t.Errorf("加锁读取的折扣码应为规范化后的 SPRING20，实际 %q", code)
		}
	}
}

func TestDiscountService_ApplyToEnrollment_SchemaMismatchIsFatal(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)
	f.db.setDiscountErr = pgError("42703")

	_, err := f.discountService().ApplyToEnrollment(context.Background(), "SPRING20", studentID, f.enrollment.ID, nil)
	if !pkgerrors.IsFatal(err) || !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("缺少列时期望致命错误 ErrSchemaMismatch，实际 %v", err)
	}
	if _, ok := pkgerrors.AsFieldError(err); ok {
		t.Error("表结构问题不应表现为字段校验错误")
	}
}

// ── ClearFromEnrollment ──

func TestDiscountService_ClearFromEnrollment(t *testing.T) {
	f := newFixture(t)
	d := f.addDiscount(nil)
	e := f.db.enrollments[f.enrollment.ID]
	e.DiscountCodeID = &d.ID
	f.db.enrollments[e.ID] = e

	svc := f.discountService()
	if err := svc.ClearFromEnrollment(context.Background(), e.ID); err != nil {
		t.Fatalf("清除失败: %v", err)
	}
	if f.db.enrollments[e.ID].DiscountCodeID != nil {
		t.Error("折扣码未被清除")
	}
	// 再次清除为空操作
	if err := svc.ClearFromEnrollment(context.Background(), e.ID); err != nil {
		t.Fatalf("重复清除不应失败: %v", err)
	}
	if len(f.notifier.snapshot()) != 0 {
		t.Error("清除折扣码不发送通知")
	}
}

// ── Validate ──

func TestDiscountService_Validate_RemainingUses(t *testing.T) {
	f := newFixture(t)
	d := f.addDiscount(func(d *model.DiscountCode) { d.MaxUses = intPtr(3) })
	e := f.db.enrollments[41]
	e.DiscountCodeID = &d.ID
	f.db.enrollments[41] = e

	res, err := f.discountService().Validate(context.Background(), "spring20", studentID)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if res.RemainingUses == nil || *res.RemainingUses != 2 {
		t.Errorf("期望剩余 2 次，实际 %v", res.RemainingUses)
	}
	if res.Restricted {
		t.Error("未限定用户的折扣码 restricted 应为 false")
	}
}

func TestDiscountService_Validate_Unlimited(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)

	res, err := f.discountService().Validate(context.Background(), "SPRING20", studentID)
	if err != nil {
		t.Fatalf("校验失败: %v", err)
	}
	if res.RemainingUses != nil {
		t.Errorf("不限次数时 remaining_uses 应为 nil，实际 %v", *res.RemainingUses)
	}
}

// ── CRUD ──

func TestDiscountService_Create_Duplicate(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)

	_, err := f.discountService().Create(context.Background(), &dto.CreateDiscountCodeRequest{Code: "spring20", Percentage: 10})
	if !errors.Is(err, ErrDiscountCodeExists) {
		t.Fatalf("期望 ErrDiscountCodeExists，实际 %v", err)
	}
}

func TestDiscountService_Create_NormalizesAndDefaultsActive(t *testing.T) {
	f := newFixture(t)

	res, err := f.discountService().Create(context.Background(), &dto.CreateDiscountCodeRequest{Code: " nowruz ", Percentage: 15})
	if err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if res.Code != "NOWRUZ" || !res.Active || res.UsedCount != 0 {
		t.Errorf("期望 NOWRUZ 且默认启用，实际 %+v", res)
	}
}

func TestDiscountService_Create_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.discountService().Create(context.Background(), &dto.CreateDiscountCodeRequest{
		Code: "VIP", Percentage: 50, UserID: int64Ptr(4040),
	})
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("期望 ErrUserNotFound，实际 %v", err)
	}
}

func TestDiscountService_Update_ClearFields(t *testing.T) {
	f := newFixture(t)
	expires := testNow.Add(time.Hour)
	d := f.addDiscount(func(d *model.DiscountCode) {
		d.MaxUses = intPtr(5)
		d.ExpiresAt = &expires
	})

	res, err := f.discountService().Update(context.Background(), d.ID, &dto.UpdateDiscountCodeRequest{
		ClearMaxUses:   true,
		ClearExpiresAt: true,
		Percentage:     intPtr(30),
	})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if res.MaxUses != nil || res.ExpiresAt != nil || res.Percentage != 30 {
		t.Errorf("期望清空次数与过期时间并更新百分比，实际 %+v", res)
	}
}

func TestDiscountService_Update_CodeConflict(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)
	other := f.addDiscount(func(d *model.DiscountCode) { d.Code = "OTHER" })

	code := "spring20"
	_, err := f.discountService().Update(context.Background(), other.ID, &dto.UpdateDiscountCodeRequest{Code: &code})
	if !errors.Is(err, ErrDiscountCodeExists) {
		t.Fatalf("期望 ErrDiscountCodeExists，实际 %v", err)
	}
}

func TestDiscountService_Delete_InUse(t *testing.T) {
	f := newFixture(t)
	d := f.addDiscount(nil)
	e := f.db.enrollments[f.enrollment.ID]
	e.DiscountCodeID = &d.ID
	f.db.enrollments[e.ID] = e

	svc := f.discountService()
	if err := svc.Delete(context.Background(), d.ID); !errors.Is(err, ErrDiscountInUse) {
		t.Fatalf("期望 ErrDiscountInUse，实际 %v", err)
	}
	if _, ok := f.db.discounts[d.ID]; !ok {
		t.Error("被使用的折扣码不应被删除")
	}

	unused := f.addDiscount(func(d *model.DiscountCode) { d.Code = "FREE" })
	if err := svc.Delete(context.Background(), unused.ID); err != nil {
		t.Fatalf("删除未使用的折扣码失败: %v", err)
	}
	if err := svc.Delete(context.Background(), unused.ID); !errors.Is(err, ErrDiscountNotFound) {
		t.Fatalf("重复删除期望 ErrDiscountNotFound，实际 %v", err)
	}
}

func TestDiscountService_List_Filter(t *testing.T) {
	f := newFixture(t)
	f.addDiscount(nil)
	f.addDiscount(func(d *model.DiscountCode) { d.Code = "SUMMER"; d.Active = false })

	active := true
	req := &dto.DiscountCodeListRequest{Active: &active}
	req.Page, req.PageSize = 1, 20
	list, total, err := f.discountService().List(context.Background(), req)
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if total != 1 || len(list) != 1 || list[0].Code != "SPRING20" {
		t.Errorf("期望只返回启用的 SPRING20，实际 total=%d %+v", total, list)
	}
}

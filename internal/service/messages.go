package service

import (
	"fmt"

	"elearning/backend/internal/model"
)

// 面向学员/教师的通知文案（平台界面语言为波斯语）

func noticeSubmissionReceived(assignmentTitle string, sessionID int64) Notice {
	return Notice{
		Title: "پاسخ تکلیف جدید ثبت شد",
		Body:  fmt.Sprintf("یک پاسخ جدید برای تکلیف «%s» ثبت شد.", assignmentTitle),
		Link:  sessionLink(sessionID),
		SMS:   fmt.Sprintf("پاسخ جدید برای تکلیف «%s» ثبت شد.", assignmentTitle),
	}
}

func noticeSubmissionGraded(sessionID int64) Notice {
	return Notice{
		Title: "تکلیف شما تصحیح شد",
		Body:  "نمره و بازخورد تکلیف شما ثبت شد.",
		Link:  sessionLink(sessionID),
		SMS:   "تکلیف شما تصحیح شد و نمره ثبت گردید.",
	}
}

func noticeAssignmentPublished(assignmentTitle, sessionTitle string, sessionID int64) Notice {
	return Notice{
		Title: "تکلیف جدید منتشر شد",
		Body:  fmt.Sprintf("تکلیف «%s» برای جلسه «%s» منتشر شد.", assignmentTitle, sessionTitle),
		Link:  sessionLink(sessionID),
	}
}

func noticeDiscountApplied(code string, percentage int, courseID int64) Notice {
	return Notice{
		Title: "کد تخفیف اعمال شد",
		Body:  fmt.Sprintf("کد تخفیف %s با درصد %d%% روی ثبت‌نام شما اعمال شد.", code, percentage),
		Link:  courseLink(courseID),
	}
}

func noticeEnrollmentConfirmed(courseTitle string, courseID int64) Notice {
	return Notice{
		Title: "ثبت‌نام تایید شد",
		Body:  fmt.Sprintf("ثبت‌نام شما در دوره «%s» تایید شد.", courseTitle),
		Link:  courseLink(courseID),
	}
}

func noticeEnrollmentUpdated(courseTitle string, courseID int64) Notice {
	return Notice{
		Title: "وضعیت ثبت‌نام بروزرسانی شد",
		Body:  fmt.Sprintf("وضعیت ثبت‌نام شما برای «%s» بروزرسانی شد.", courseTitle),
		Link:  courseLink(courseID),
	}
}

func noticeEnrollmentCancelled(courseTitle string, courseID int64) Notice {
	return Notice{
		Title: "ثبت‌نام لغو شد",
		Body:  fmt.Sprintf("ثبت‌نام شما برای «%s» لغو شد.", courseTitle),
		Link:  courseLink(courseID),
	}
}

func noticeSessionStatusChanged(sessionTitle, courseTitle, status string, sessionID int64, forStudent bool) Notice {
	verb := sessionStatusVerb(status)
	n := Notice{
		Title: "وضعیت جلسه تغییر کرد",
		Body:  fmt.Sprintf("جلسه «%s» %s.", sessionTitle, verb),
		Link:  sessionLink(sessionID),
	}
	if forStudent {
		n.Body = fmt.Sprintf("جلسه «%s» برای دوره «%s» %s.", sessionTitle, courseTitle, verb)
		n.SMS = fmt.Sprintf("جلسه «%s» %s.", sessionTitle, verb)
	}
	return n
}

const (
	materialCreated = "created"
	materialUpdated = "updated"
	materialDeleted = "deleted"
)

func noticeMaterialChanged(materialTitle, sessionTitle, courseTitle, action string, sessionID int64, forStudent bool) Notice {
	verb := materialActionVerb(action)
	sms := fmt.Sprintf("«%s» برای جلسه «%s» %s.", materialTitle, sessionTitle, verb)
	n := Notice{
		Title: "مواد آموزشی جلسه تغییر کرد",
		Body:  sms,
		Link:  sessionLink(sessionID),
		SMS:   sms,
	}
	if forStudent {
		n.Title = "مواد آموزشی جدید/به‌روزرسانی شد"
		n.Body = fmt.Sprintf("«%s» برای جلسه «%s» در دوره «%s» %s.", materialTitle, sessionTitle, courseTitle, verb)
	}
	return n
}

func materialActionVerb(action string) string {
	switch action {
	case materialCreated:
		return "اضافه شد"
	case materialUpdated:
		return "به‌روزرسانی شد"
	case materialDeleted:
		return "حذف شد"
	default:
		return "تغییر کرد"
	}
}

func sessionStatusVerb(status string) string {
	switch status {
	case model.SessionStatusHeld:
		return "برگزار شد"
	case model.SessionStatusCancelled:
		return "لغو شد"
	case model.SessionStatusPostponed:
		return "به تعویق افتاد"
	default:
		return "به‌روز شد"
	}
}

func sessionLink(id int64) string { return fmt.Sprintf("/class-sessions/%d", id) }

func courseLink(id int64) string { return fmt.Sprintf("/courses/%d", id) }

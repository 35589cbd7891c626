package model

import "time"

const (
	EnrollmentStatusPending     = "pending"
	EnrollmentStatusWaitingList = "waiting_list"
	EnrollmentStatusConfirmed   = "confirmed"
	EnrollmentStatusRejected    = "rejected"
	EnrollmentStatusCancelled   = "cancelled"
	EnrollmentStatusCompleted   = "completed"

	PaymentStatusUnpaid   = "unpaid"
	PaymentStatusPartial  = "partial"
	PaymentStatusPaid     = "paid"
	PaymentStatusRefunded = "refunded"
)

// EligibleEnrollmentStatuses 可以提交作业、接收课程通知的报名状态
var EligibleEnrollmentStatuses = []string{EnrollmentStatusConfirmed, EnrollmentStatusCompleted}

// InactiveEnrollmentStatuses 不占用课程名额的报名状态
var InactiveEnrollmentStatuses = []string{EnrollmentStatusRejected, EnrollmentStatusCancelled}

// Enrollment 报名表 — 对应 enrollments（只做状态流转，不物理删除）
type Enrollment struct {
	ID                int64     `gorm:"primaryKey"                json:"id"`
	StudentID         int64     `gorm:"not null"                  json:"student_id"`
	CourseID          int64     `gorm:"not null"                  json:"course_id"`
	Status            string    `gorm:"type:varchar(20);not null" json:"status"`
	PaymentStatus     string    `gorm:"type:varchar(20);not null" json:"payment_status"`
	PaidAmount        int       `gorm:"not null"                  json:"paid_amount"`
	FinalScore        *int      `json:"final_score,omitempty"`
	CertificateIssued bool      `gorm:"not null"                  json:"certificate_issued"`
	EnrolledAt        time.Time `gorm:"not null"                  json:"enrolled_at"`
	DiscountCodeID    *int64    `json:"discount_code_id,omitempty"`
	BaseModel

	// 关联
	Student      *User         `gorm:"foreignKey:StudentID"      json:"student,omitempty"`
	Course       *Course       `gorm:"foreignKey:CourseID"       json:"course,omitempty"`
	DiscountCode *DiscountCode `gorm:"foreignKey:DiscountCodeID" json:"discount_code,omitempty"`
}

func (Enrollment) TableName() string { return "enrollments" }

func (e *Enrollment) IsPaid() bool { return e.PaymentStatus == PaymentStatusPaid }

func (e *Enrollment) IsConfirmed() bool { return e.Status == EnrollmentStatusConfirmed }

func (e *Enrollment) HasDiscount() bool { return e.DiscountCodeID != nil }

// IsEligible confirmed 或 completed
func (e *Enrollment) IsEligible() bool {
	return e.Status == EnrollmentStatusConfirmed || e.Status == EnrollmentStatusCompleted
}

// FinalPrice 折后价格，percentage 为 nil 时表示无折扣
func FinalPrice(price int, percentage *int) int {
	if percentage == nil {
		return price
	}
	return price - price*(*percentage)/100
}

// IsValidEnrollmentStatus 校验报名状态取值
func IsValidEnrollmentStatus(s string) bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusWaitingList, EnrollmentStatusConfirmed,
		EnrollmentStatusRejected, EnrollmentStatusCancelled, EnrollmentStatusCompleted:
		return true
	}
	return false
}

// IsValidPaymentStatus 校验支付状态取值
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusUnpaid, PaymentStatusPartial, PaymentStatusPaid, PaymentStatusRefunded:
		return true
	}
	return false
}

package dto

// ── 报名模块 DTO ──

// ManualEnrollRequest 管理员/教师手动报名
type ManualEnrollRequest struct {
	CourseID   int64 `json:"course_id"   binding:"required,min=1"`
	StudentID  int64 `json:"student_id"  binding:"required,min=1"`
	PaidAmount *int  `json:"paid_amount" binding:"omitempty,min=0"`
}

// SelfEnrollRequest 学生自助报名
type SelfEnrollRequest struct {
	CourseID     int64   `json:"course_id"     binding:"required,min=1"`
	DiscountCode *string `json:"discount_code" binding:"omitempty,max=255"`
}

// UpdateEnrollmentRequest 审核/更新报名
type UpdateEnrollmentRequest struct {
	Status            *string `json:"status"             binding:"omitempty,oneof=pending waiting_list confirmed rejected cancelled completed"`
	PaymentStatus     *string `json:"payment_status"     binding:"omitempty,oneof=unpaid partial paid refunded"`
	PaidAmount        *int    `json:"paid_amount"        binding:"omitempty,min=0"`
	FinalScore        *int    `json:"final_score"        binding:"omitempty,min=0"`
	CertificateIssued *bool   `json:"certificate_issued"`
}

// EnrollmentResponse 报名信息响应
type EnrollmentResponse struct {
	ID                int64  `json:"id"`
	CourseID          int64  `json:"course_id"`
	StudentID         int64  `json:"student_id"`
	Status            string `json:"status"`
	PaymentStatus     string `json:"payment_status"`
	PaidAmount        int    `json:"paid_amount"`
	FinalScore        *int   `json:"final_score"`
	CertificateIssued bool   `json:"certificate_issued"`
	DiscountCodeID    *int64 `json:"discount_code_id"`
	EnrolledAt        string `json:"enrolled_at"`
}

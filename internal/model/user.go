package model

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// User 用户表 — 对应 users
type User struct {
	ID    int64   `gorm:"primaryKey"                         json:"id"`
	Name  string  `gorm:"type:varchar(255);not null"         json:"name"`
	Phone *string `gorm:"type:varchar(32)"                   json:"phone,omitempty"`
	Role  string  `gorm:"type:varchar(20);not null"          json:"role"` // admin | teacher | student
	BaseModel
}

func (User) TableName() string { return "users" }

// PhoneNumber 返回手机号，未填写时为空串
func (u *User) PhoneNumber() string {
	if u == nil || u.Phone == nil {
		return ""
	}
	return *u.Phone
}

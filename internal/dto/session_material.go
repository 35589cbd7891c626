package dto

// ── 课次资料模块 DTO ──

// CreateSessionMaterialRequest 上传课次资料（multipart 表单，附件字段为 file）
// file_type 为空时按文件扩展名推断，visibility 默认 students_only
type CreateSessionMaterialRequest struct {
	FileType    string  `form:"file_type"   binding:"omitempty,oneof=video audio pdf image slides other"`
	Title       *string `form:"title"       binding:"omitempty,max=255"`
	Description *string `form:"description" binding:"omitempty,max=5000"`
	Visibility  string  `form:"visibility"  binding:"omitempty,oneof=public students_only hidden"`
}

// UpdateSessionMaterialRequest 修改课次资料，可选择替换附件
type UpdateSessionMaterialRequest struct {
	FileType    *string `json:"file_type"   form:"file_type"   binding:"omitempty,oneof=video audio pdf image slides other"`
	Title       *string `json:"title"       form:"title"       binding:"omitempty,max=255"`
	Description *string `json:"description" form:"description" binding:"omitempty,max=5000"`
	Visibility  *string `json:"visibility"  form:"visibility"  binding:"omitempty,oneof=public students_only hidden"`
}

// SessionMaterialResponse 课次资料响应
type SessionMaterialResponse struct {
	ID          int64   `json:"id"`
	SessionID   int64   `json:"session_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	FileType    string  `json:"file_type"`
	FileURL     string  `json:"file_url"`
	Visibility  string  `json:"visibility"`
	UploadedBy  *int64  `json:"uploaded_by,omitempty"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

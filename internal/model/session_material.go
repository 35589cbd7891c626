package model

import (
	"path/filepath"
	"strings"
)

const (
	MaterialTypeVideo  = "video"
	MaterialTypeAudio  = "audio"
	MaterialTypePDF    = "pdf"
	MaterialTypeImage  = "image"
	MaterialTypeSlides = "slides"
	MaterialTypeOther  = "other"
)

const (
	MaterialVisibilityPublic       = "public"
	MaterialVisibilityStudentsOnly = "students_only"
	MaterialVisibilityHidden       = "hidden"
)

// defaultMaterialTitle 未填写标题时的展示名
const defaultMaterialTitle = "فایل آموزشی"

// SessionMaterial 课次资料表 — 对应 session_materials
type SessionMaterial struct {
	ID          int64   `gorm:"primaryKey"                 json:"id"`
	SessionID   int64   `gorm:"not null"                   json:"session_id"`
	FilePath    string  `gorm:"type:varchar(500);not null" json:"file_path"`
	FileType    string  `gorm:"type:varchar(20);not null"  json:"file_type"`
	Title       *string `gorm:"type:varchar(255)"          json:"title,omitempty"`
	Description *string `gorm:"type:text"                  json:"description,omitempty"`
	UploadedBy  *int64  `json:"uploaded_by,omitempty"`
	Visibility  string  `gorm:"type:varchar(20);not null"  json:"visibility"`
	BaseModel

	// 关联
	Session *ClassSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}

func (SessionMaterial) TableName() string { return "session_materials" }

// DisplayTitle 标题为空时返回默认名称
func (m *SessionMaterial) DisplayTitle() string {
	if m.Title == nil || strings.TrimSpace(*m.Title) == "" {
		return defaultMaterialTitle
	}
	return *m.Title
}

// VisibleToStudent hidden 对学生不可见；students_only 仅对有效报名学生可见
func (m *SessionMaterial) VisibleToStudent(enrolled bool) bool {
	switch m.Visibility {
	case MaterialVisibilityPublic:
		return true
	case MaterialVisibilityStudentsOnly:
		return enrolled
	}
	return false
}

func IsValidMaterialType(t string) bool {
	switch t {
	case MaterialTypeVideo, MaterialTypeAudio, MaterialTypePDF, MaterialTypeImage, MaterialTypeSlides, MaterialTypeOther:
		return true
	}
	return false
}

func IsValidMaterialVisibility(v string) bool {
	switch v {
	case MaterialVisibilityPublic, MaterialVisibilityStudentsOnly, MaterialVisibilityHidden:
		return true
	}
	return false
}

// InferMaterialType 按文件扩展名推断资料类型
func InferMaterialType(filename string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), ".")) {
	case "mp4", "mkv", "mov", "avi", "webm":
		return MaterialTypeVideo
	case "mp3", "wav", "ogg", "m4a":
		return MaterialTypeAudio
	case "pdf":
		return MaterialTypePDF
	case "ppt", "pptx", "key":
		return MaterialTypeSlides
	case "jpg", "jpeg", "png", "webp", "gif", "svg":
		return MaterialTypeImage
	}
	return MaterialTypeOther
}

package models

import (
	"time"

	"gorm.io/gorm"
)

type Role struct {
	ID   uint   `gorm:"primaryKey"      json:"id"`
	Name string `gorm:"unique;not null" json:"name"`
}

type User struct {
	ID                 uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	FirstName          string         `gorm:"not null"                 json:"first_name"`
	LastName           string         `gorm:"not null"                 json:"last_name"`
	Email              string         `gorm:"unique;not null"          json:"email"`
	PasswordHash       string         `gorm:"not null"                 json:"-"`
	RoleID             uint           `gorm:"index;not null"           json:"role_id"`
	Role               Role           `json:"role"`
	TokenBlacklistDate *time.Time     `json:"-"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index"                    json:"deleted_at,omitempty"`
}

type Category struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"not null;uniqueIndex:udx_categories_name,expression:lower(name)" json:"name"`
	Description *string        `json:"description,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index"                    json:"deleted_at,omitempty"`
}

type Post struct {
	ID          uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	AuthorID    uint           `gorm:"index;not null"           json:"author_id"`
	Author      User           `json:"author"`
	Title       string         `gorm:"not null"                 json:"title"`
	Description string         `gorm:"not null"                 json:"description"`
	Content     string         `gorm:"not null"                 json:"content"`
	CategoryID  uint           `gorm:"index;not null"           json:"category_id"`
	Category    Category       `json:"category"`
	Slug        string         `gorm:"unique;not null"          json:"slug"`
	Template    string         `gorm:"not null;default:'default'" json:"template"`
	Published   bool           `gorm:"not null;default:false"   json:"published"`
	Tags        []PostTag      `gorm:"foreignKey:PostID"        json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index"                    json:"deleted_at,omitempty"`
}

type PostTag struct {
	PostID uint   `gorm:"primaryKey" json:"post_id"`
	Name   string `gorm:"primaryKey" json:"name"`
}

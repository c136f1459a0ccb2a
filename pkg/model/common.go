// Package model 定义排课引擎的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// Weekday 教学日
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
)

// DefaultDays 默认教学日（周一至周五，按顺序）
func DefaultDays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday}
}

// ParseWeekday 解析教学日名称，不区分大小写
func ParseWeekday(s string) (Weekday, bool) {
	switch normalizeText(s) {
	case "monday":
		return Monday, true
	case "tuesday":
		return Tuesday, true
	case "wednesday":
		return Wednesday, true
	case "thursday":
		return Thursday, true
	case "friday":
		return Friday, true
	case "saturday":
		return Saturday, true
	}
	return "", false
}

// Severity 约束级别
type Severity string

const (
	SeverityHard Severity = "hard" // 硬约束（必须满足）
	SeveritySoft Severity = "soft" // 软约束（尽量满足）
)

// ParseSeverity 解析约束级别文本，空串按软约束处理
func ParseSeverity(s string) (Severity, bool) {
	switch normalizeText(s) {
	case "", "soft":
		return SeveritySoft, true
	case "hard":
		return SeverityHard, true
	}
	return "", false
}

// OwnerScope 归属范围，仅用于上游可见性过滤
type OwnerScope string

const (
	OwnerAdmin   OwnerScope = "admin"
	OwnerTeacher OwnerScope = "teacher"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt *time.Time `json:"-" db:"deleted_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

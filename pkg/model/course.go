package model

import (
	"strings"

	"github.com/google/uuid"
)

// Teacher 授课教师
type Teacher struct {
	BaseModel
	Username string `json:"username" db:"username"`
	FullName string `json:"full_name" db:"full_name"`
	Email    string `json:"email,omitempty" db:"email"`
}

// Course 课程
// TeacherID 是弱引用：仅关联与查询，不拥有教师记录
type Course struct {
	BaseModel
	Code        string     `json:"course_code" db:"course_code"`
	Name        string     `json:"course_name" db:"course_name"`
	Section     string     `json:"section" db:"section"`
	Credits     int        `json:"credits" db:"credits"`
	TeacherID   *uuid.UUID `json:"teacher_id,omitempty" db:"teacher_id"`
	TeacherName string     `json:"teacher_name,omitempty" db:"-"`
	OwnerScope  OwnerScope `json:"owner_type" db:"owner_type"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty" db:"owner_id"`
	Published   bool       `json:"published" db:"published"`
}

// Label 返回课程的展示标签（优先课程名，其次课程代码）
func (c *Course) Label() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return strings.TrimSpace(c.Code)
}

// HasTeacher 是否有授课教师
func (c *Course) HasTeacher() bool {
	return c.TeacherID != nil
}

// SameTeacher 是否与另一门课程共享授课教师
func (c *Course) SameTeacher(other *Course) bool {
	if c.TeacherID == nil || other.TeacherID == nil {
		return false
	}
	return *c.TeacherID == *other.TeacherID
}

// normalizeText 折叠空白并转小写，用于容错匹配
func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

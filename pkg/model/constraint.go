package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/errors"
)

// SectionAll 班级通配符，表示约束作用于所有班级
const SectionAll = "ALL"

// PeriodRange 节次范围，1 起始的闭区间 [Start, End]
// 单节约束表示为 Start == End
type PeriodRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ParsePeriodRange 解析节次范围文本
// 支持 "P1-P3"、"1-3"、"P2"、"2" 几种形式
func ParsePeriodRange(token string) (PeriodRange, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return PeriodRange{}, errors.New(errors.CodeInvalidPeriodRange, "节次范围为空")
	}
	parse := func(part string) (int, error) {
		n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(part), "P"))
		if err != nil {
			return 0, errors.New(errors.CodeInvalidPeriodRange,
				fmt.Sprintf("无法解析节次 '%s'", part)).WithCause(err)
		}
		return n, nil
	}
	if a, b, found := strings.Cut(token, "-"); found {
		start, err := parse(a)
		if err != nil {
			return PeriodRange{}, err
		}
		end, err := parse(b)
		if err != nil {
			return PeriodRange{}, err
		}
		if start > end {
			return PeriodRange{}, errors.New(errors.CodeInvalidPeriodRange,
				fmt.Sprintf("节次范围起点大于终点: %s", token))
		}
		return PeriodRange{Start: start, End: end}, nil
	}
	p, err := parse(token)
	if err != nil {
		return PeriodRange{}, err
	}
	return PeriodRange{Start: p, End: p}, nil
}

// Contains 检查节次是否落在范围内
func (r PeriodRange) Contains(period int) bool {
	return period >= r.Start && period <= r.End
}

// Len 返回范围内的节次数
func (r PeriodRange) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// String 返回 "P1-P3" 形式的文本
func (r PeriodRange) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("P%d", r.Start)
	}
	return fmt.Sprintf("P%d-P%d", r.Start, r.End)
}

// Constraint 排课约束
// 目标匹配为课程名 + 班级（班级可为 ALL 通配符），
// Day 为空表示任意教学日
type Constraint struct {
	BaseModel
	CourseName  string      `json:"course_name" db:"course_name"`
	Section     string      `json:"section" db:"section"`
	Day         Weekday     `json:"day,omitempty" db:"day"`
	Periods     PeriodRange `json:"period_range" db:"-"`
	Severity    Severity    `json:"type" db:"type"`
	Description string      `json:"description,omitempty" db:"description"`
	OwnerScope  OwnerScope  `json:"owner_type" db:"owner_type"`
	OwnerID     *uuid.UUID  `json:"owner_id,omitempty" db:"owner_id"`
	Published   bool        `json:"published" db:"published"`

	// Weight 求解权重，构建载荷时按归属范围填充
	Weight int `json:"-" db:"-"`
}

// IsHard 是否为硬约束
func (c *Constraint) IsHard() bool {
	return c.Severity == SeverityHard
}

// AnyDay 教学日是否为通配
func (c *Constraint) AnyDay() bool {
	return c.Day == ""
}

// MatchesSection 检查班级是否命中（含 ALL 通配）
func (c *Constraint) MatchesSection(section string) bool {
	target := strings.TrimSpace(c.Section)
	if target == "" || strings.EqualFold(target, SectionAll) {
		return true
	}
	return strings.EqualFold(target, strings.TrimSpace(section))
}

// MatchesCourse 检查课程是否为约束目标
// 先按课程名/课程代码精确匹配，再做容错的子串匹配
func (c *Constraint) MatchesCourse(course *Course) bool {
	if !c.MatchesSection(course.Section) {
		return false
	}
	target := normalizeText(c.CourseName)
	if target == "" {
		return false
	}
	name := normalizeText(course.Name)
	code := normalizeText(course.Code)
	if name == target || code == target {
		return true
	}
	if name != "" && (strings.Contains(name, target) || strings.Contains(target, name)) {
		return true
	}
	if code != "" && (strings.Contains(code, target) || strings.Contains(target, code)) {
		return true
	}
	return false
}

// MatchesSlot 检查时段是否落在约束窗口内
func (c *Constraint) MatchesSlot(day Weekday, period int) bool {
	if !c.AnyDay() && c.Day != day {
		return false
	}
	return c.Periods.Contains(period)
}

// Describe 返回约束的可读描述，用于诊断信息
func (c *Constraint) Describe() string {
	day := string(c.Day)
	if c.AnyDay() {
		day = "any day"
	}
	section := c.Section
	if section == "" {
		section = SectionAll
	}
	return fmt.Sprintf("%s [%s] %s %s", c.CourseName, section, day, c.Periods)
}

// Package validator 提供课表验证功能
package validator

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/model"
)

// Validator 约束验证器
// 纯只读，可在任意时刻调用：求解子流程、诊断、外部网格编辑后的复检
type Validator struct{}

// New 创建验证器
func New() *Validator {
	return &Validator{}
}

// Validate 检查网格是否满足约束集
// 对每条约束，目标课程的每个占用单元都必须落在约束窗口内，
// 窗口外的占用按约束级别记为违反；
// 两条结构不变量（班级、教师不可同时上两门课）无条件检查
func (v *Validator) Validate(grid *model.Grid, constraints []*model.Constraint) []model.Violation {
	var violations []model.Violation
	entries := grid.Entries()

	for _, c := range constraints {
		for _, e := range entries {
			if !c.MatchesCourse(e.Course) {
				continue
			}
			if c.MatchesSlot(e.Day, e.Period) {
				continue
			}
			violations = append(violations, model.Violation{
				ConstraintID: c.ID,
				Constraint:   c.Describe(),
				Severity:     c.Severity,
				Day:          e.Day,
				Period:       e.Period,
				Section:      e.Section,
				Message: fmt.Sprintf("课程 '%s' 占用 %s P%d，超出窗口 %s",
					e.Course.Label(), e.Day, e.Period, c.Periods),
			})
		}
	}

	violations = append(violations, v.structural(entries)...)
	return violations
}

// structural 检查结构不变量
func (v *Validator) structural(entries []model.Entry) []model.Violation {
	var violations []model.Violation

	// 班级同一时段最多一门课
	sectionSeen := make(map[model.CellKey]*model.Course)
	for _, e := range entries {
		key := model.CellKey{Day: e.Day, Period: e.Period, Section: e.Section}
		if prev, dup := sectionSeen[key]; dup {
			violations = append(violations, model.Violation{
				Constraint: "section_double_booking",
				Severity:   model.SeverityHard,
				Day:        e.Day,
				Period:     e.Period,
				Section:    e.Section,
				Message: fmt.Sprintf("班级 %s 在 %s P%d 同时安排 '%s' 与 '%s'",
					e.Section, e.Day, e.Period, prev.Label(), e.Course.Label()),
			})
			continue
		}
		sectionSeen[key] = e.Course
	}

	// 教师同一时段最多教一个班
	type teacherKey struct {
		day     model.Weekday
		period  int
		teacher uuid.UUID
	}
	teacherSeen := make(map[teacherKey]*model.Entry)
	for i := range entries {
		e := &entries[i]
		if e.Course.TeacherID == nil {
			continue
		}
		key := teacherKey{day: e.Day, period: e.Period, teacher: *e.Course.TeacherID}
		if prev, dup := teacherSeen[key]; dup {
			violations = append(violations, model.Violation{
				Constraint: "teacher_double_booking",
				Severity:   model.SeverityHard,
				Day:        e.Day,
				Period:     e.Period,
				Section:    e.Section,
				Message: fmt.Sprintf("教师在 %s P%d 同时教 '%s'(%s) 与 '%s'(%s)",
					e.Day, e.Period, prev.Course.Label(), prev.Section, e.Course.Label(), e.Section),
			})
			continue
		}
		teacherSeen[key] = e
	}

	return violations
}

// HardOK 检查受影响单元在交换后是否仍满足全部硬约束
// 供多样性优化器在每次候选交换后快速复检：
// 只检查给定单元上的课程窗口，以及这些 (教学日, 节次) 坐标上的教师唯一性
func (v *Validator) HardOK(grid *model.Grid, constraints []*model.Constraint, cells []model.CellKey) bool {
	for _, key := range cells {
		course := grid.Get(key.Day, key.Period, key.Section)
		if course == nil {
			continue
		}
		for _, c := range constraints {
			if !c.IsHard() || !c.MatchesCourse(course) {
				continue
			}
			if !c.MatchesSlot(key.Day, key.Period) {
				return false
			}
		}
		if course.TeacherID != nil && v.teacherClash(grid, key, course) {
			return false
		}
	}
	return true
}

// teacherClash 检查某单元课程的教师在同一 (教学日, 节次) 是否跨班级冲突
func (v *Validator) teacherClash(grid *model.Grid, key model.CellKey, course *model.Course) bool {
	for _, section := range grid.Sections {
		if section == key.Section {
			continue
		}
		other := grid.Get(key.Day, key.Period, section)
		if other != nil && course.SameTeacher(other) {
			return true
		}
	}
	return false
}

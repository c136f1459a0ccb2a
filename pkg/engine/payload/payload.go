// Package payload 将课程与约束编码为求解载荷
package payload

import (
	"github.com/paike/paike/pkg/model"
)

// Weights 目标函数权重
// 软约束与利用率奖励均以加权项进入目标函数，
// 权重通过配置暴露，调整时无需改动编码逻辑
type Weights struct {
	Utilization int `json:"utilization"`  // 每放置一节课的奖励
	AdminSoft   int `json:"admin_soft"`   // admin 归属软约束的违反代价
	TeacherSoft int `json:"teacher_soft"` // teacher 归属软约束的违反代价
	DefaultSoft int `json:"default_soft"` // 其他归属软约束的违反代价
}

// DefaultWeights 返回默认权重
func DefaultWeights() Weights {
	return Weights{
		Utilization: 1,
		AdminSoft:   10000,
		TeacherSoft: 100,
		DefaultSoft: 500,
	}
}

// ForScope 返回归属范围对应的软约束权重
func (w Weights) ForScope(scope model.OwnerScope) int {
	switch scope {
	case model.OwnerAdmin:
		return w.AdminSoft
	case model.OwnerTeacher:
		return w.TeacherSoft
	default:
		return w.DefaultSoft
	}
}

// CourseVars 单门课程的决策变量
// Allowed 是经过硬约束域限制后的可用时段集合，
// 按配置的教学日顺序、节次升序排列，结构确定
type CourseVars struct {
	Course   *model.Course
	Sessions int
	Allowed  []model.Slot
	Hard     []*model.Constraint
}

// SoftTerm 软约束惩罚项：目标课程落在窗口外的每一节课计入 Weight 代价
type SoftTerm struct {
	Constraint *model.Constraint
	Course     *model.Course
	Weight     int
}

// Payload 求解载荷
// 纯值对象：对相同输入两次构建产生结构相同的载荷
type Payload struct {
	Courses     []*CourseVars
	Soft        []SoftTerm
	Constraints []*model.Constraint
	Sections    []string
	Config      model.GenerationConfig
	Weights     Weights
}

// RequiredSessions 返回全部课程所需的课时总数
func (p *Payload) RequiredSessions() int {
	total := 0
	for _, cv := range p.Courses {
		total += cv.Sessions
	}
	return total
}

// NewGrid 物化与载荷配置一致的空网格
func (p *Payload) NewGrid() *model.Grid {
	return model.NewGrid(p.Config.Days, p.Config.PeriodsPerDay, p.Config.LunchPeriod, p.Sections)
}

// SlotPenalty 计算课程某一节课落在指定时段的软约束代价
func (p *Payload) SlotPenalty(course *model.Course, slot model.Slot) int {
	penalty := 0
	for _, term := range p.Soft {
		if term.Course != course {
			continue
		}
		if !term.Constraint.MatchesSlot(slot.Day, slot.Period) {
			penalty += term.Weight
		}
	}
	return penalty
}

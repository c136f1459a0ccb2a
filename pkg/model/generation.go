package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionPolicy 学分 → 每周课时数 的换算策略
type SessionPolicy func(credits int) int

// SessionsPerCredit 默认策略：每学分一节课
func SessionsPerCredit(credits int) int {
	return credits
}

// GenerationConfig 生成配置
type GenerationConfig struct {
	PeriodsPerDay     int           `json:"periods_per_day"`
	LunchPeriod       int           `json:"lunch_period"` // 0 表示无午休
	Days              []Weekday     `json:"days"`
	TimeLimit         time.Duration `json:"time_limit"`
	MaxSwapIterations int           `json:"max_swap_iterations"`
	Seed              int64         `json:"seed"`

	// SessionPolicy 为空时使用 SessionsPerCredit
	SessionPolicy SessionPolicy `json:"-"`
}

// DefaultGenerationConfig 返回默认生成配置
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		PeriodsPerDay:     6,
		LunchPeriod:       0,
		Days:              DefaultDays(),
		TimeLimit:         20 * time.Second,
		MaxSwapIterations: 500,
		Seed:              1,
	}
}

// Sessions 按策略计算课程所需的每周课时数
func (c GenerationConfig) Sessions(credits int) int {
	if c.SessionPolicy != nil {
		return c.SessionPolicy(credits)
	}
	return SessionsPerCredit(credits)
}

// SolveStatus 求解状态
type SolveStatus string

const (
	StatusSolved           SolveStatus = "solved"             // 在时限内得到可行/最优解
	StatusPartialTimeLimit SolveStatus = "partial_time_limit" // 时限耗尽，返回未证最优的可行解
	StatusInfeasible       SolveStatus = "infeasible"         // 硬约束下无法放置全部课时
	StatusCancelled        SolveStatus = "cancelled"          // 调用方取消
)

// Violation 约束违反记录
type Violation struct {
	ConstraintID uuid.UUID `json:"constraint_id,omitempty"`
	Constraint   string    `json:"constraint"`
	Severity     Severity  `json:"severity"`
	Day          Weekday   `json:"day,omitempty"`
	Period       int       `json:"period,omitempty"`
	Section      string    `json:"section,omitempty"`
	Message      string    `json:"message"`
}

// CourseShortfall 未达到所需课时数的课程
type CourseShortfall struct {
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	Section    string `json:"section"`
	Required   int    `json:"required"`
	Placed     int    `json:"placed"`
	Reason     string `json:"reason,omitempty"`
}

// Diagnostics 生成诊断信息
type Diagnostics struct {
	Status         SolveStatus       `json:"status"`
	Strategy       string            `json:"strategy"` // 产生结果的求解器名称
	Fallback       bool              `json:"fallback"` // 是否发生了贪心降级
	Violations     []Violation       `json:"violations,omitempty"`
	Shortfalls     []CourseShortfall `json:"shortfalls,omitempty"`
	DiversityScore float64           `json:"diversity_score"`
	SwapIterations int               `json:"swap_iterations"`
	SolveDuration  time.Duration     `json:"solve_duration"`
	Message        string            `json:"message,omitempty"`
}

// HardViolations 过滤出硬约束违反
func (d *Diagnostics) HardViolations() []Violation {
	var hard []Violation
	for _, v := range d.Violations {
		if v.Severity == SeverityHard {
			hard = append(hard, v)
		}
	}
	return hard
}

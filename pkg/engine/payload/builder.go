package payload

import (
	"fmt"
	"sort"
	"strings"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// Builder 载荷构建器
// 无副作用：纯粹由输入计算载荷
type Builder struct {
	weights Weights
}

// NewBuilder 创建载荷构建器
func NewBuilder(weights Weights) *Builder {
	return &Builder{weights: weights}
}

// Build 构建求解载荷
// 拒绝非法输入（ValidationError），
// 硬约束窗口容不下所需课时数时提前失败（ConstraintConflictError），
// 避免把建模阶段即可判定无解的模型交给求解器
func (b *Builder) Build(courses []*model.Course, constraints []*model.Constraint, cfg model.GenerationConfig) (*Payload, error) {
	if len(cfg.Days) == 0 {
		cfg.Days = model.DefaultDays()
	}
	if err := b.validate(courses, constraints, cfg); err != nil {
		return nil, err
	}

	// 权重按归属范围填充，已显式设置的保留
	withWeights := make([]*model.Constraint, len(constraints))
	for i, c := range constraints {
		cc := *c
		if cc.Weight == 0 {
			cc.Weight = b.weights.ForScope(cc.OwnerScope)
		}
		withWeights[i] = &cc
	}

	// 按课程代码、班级排序保证结构确定
	ordered := make([]*model.Course, len(courses))
	copy(ordered, courses)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Code != ordered[j].Code {
			return ordered[i].Code < ordered[j].Code
		}
		return ordered[i].Section < ordered[j].Section
	})

	p := &Payload{
		Courses:     make([]*CourseVars, 0, len(ordered)),
		Constraints: withWeights,
		Config:      cfg,
		Weights:     b.weights,
	}

	sections := make(map[string]struct{})
	for _, course := range ordered {
		sections[course.Section] = struct{}{}

		cv := &CourseVars{
			Course:   course,
			Sessions: cfg.Sessions(course.Credits),
		}

		for _, c := range withWeights {
			if !c.MatchesCourse(course) {
				continue
			}
			if c.IsHard() {
				cv.Hard = append(cv.Hard, c)
			} else {
				p.Soft = append(p.Soft, SoftTerm{Constraint: c, Course: course, Weight: c.Weight})
			}
		}

		cv.Allowed = b.allowedSlots(course, cv.Hard, cfg)

		if len(cv.Allowed) < cv.Sessions {
			if len(cv.Hard) > 0 {
				return nil, errors.ConstraintConflict(course.Label(), fmt.Sprintf(
					"窗口内可用时段 %d 个，所需课时 %d 节", len(cv.Allowed), cv.Sessions))
			}
			return nil, errors.New(errors.CodeValidationFail, fmt.Sprintf(
				"课程 '%s' 需要 %d 节课，超出每周可用时段 %d 个", course.Label(), cv.Sessions, len(cv.Allowed)))
		}

		p.Courses = append(p.Courses, cv)
	}

	p.Sections = make([]string, 0, len(sections))
	for s := range sections {
		p.Sections = append(p.Sections, s)
	}
	sort.Strings(p.Sections)

	return p, nil
}

// allowedSlots 计算域限制后的可用时段
// 每个命中的硬约束都把窗口外的变量固定为不可用，多个硬约束取交集
func (b *Builder) allowedSlots(course *model.Course, hard []*model.Constraint, cfg model.GenerationConfig) []model.Slot {
	var allowed []model.Slot
	for _, day := range cfg.Days {
		for period := 1; period <= cfg.PeriodsPerDay; period++ {
			if cfg.LunchPeriod > 0 && period == cfg.LunchPeriod {
				continue
			}
			inAll := true
			for _, c := range hard {
				if !c.MatchesSlot(day, period) {
					inAll = false
					break
				}
			}
			if inAll {
				allowed = append(allowed, model.Slot{Day: day, Period: period})
			}
		}
	}
	return allowed
}

// validate 校验输入不变量
func (b *Builder) validate(courses []*model.Course, constraints []*model.Constraint, cfg model.GenerationConfig) error {
	ve := &errors.ValidationErrors{}

	if cfg.PeriodsPerDay <= 0 {
		ve.Add("periods_per_day", "每日节次数必须为正")
	}
	if cfg.LunchPeriod < 0 || cfg.LunchPeriod > cfg.PeriodsPerDay {
		ve.Add("lunch_period", fmt.Sprintf("午休节次 %d 超出范围 [0, %d]", cfg.LunchPeriod, cfg.PeriodsPerDay))
	}

	seen := make(map[string]struct{})
	for _, course := range courses {
		label := course.Label()
		if strings.TrimSpace(course.Code) == "" {
			ve.Add("course_code", fmt.Sprintf("课程 '%s' 缺少课程代码", label))
			continue
		}
		if strings.TrimSpace(course.Section) == "" {
			ve.Add("section", fmt.Sprintf("课程 '%s' 缺少班级", label))
		}
		if course.Credits <= 0 {
			ve.Add("credits", fmt.Sprintf("课程 '%s' 学分数必须为正, 实际 %d", label, course.Credits))
		} else if cfg.Sessions(course.Credits) <= 0 {
			ve.Add("credits", fmt.Sprintf("课程 '%s' 换算后的课时数必须为正", label))
		}
		key := strings.ToLower(course.Code) + "|" + course.Section
		if _, dup := seen[key]; dup {
			ve.Add("course_code", fmt.Sprintf("课程代码 '%s' 在批次内重复", course.Code))
		}
		seen[key] = struct{}{}
	}

	for _, c := range constraints {
		if c.Periods.Start < 1 || c.Periods.End > cfg.PeriodsPerDay {
			ve.Add("period_range", fmt.Sprintf(
				"约束 '%s' 节次范围 %s 超出界限 [1, %d]", c.CourseName, c.Periods, cfg.PeriodsPerDay))
		}
		if !c.AnyDay() {
			if _, ok := model.ParseWeekday(string(c.Day)); !ok {
				ve.Add("day", fmt.Sprintf("约束 '%s' 教学日 '%s' 无效", c.CourseName, c.Day))
			}
		}
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

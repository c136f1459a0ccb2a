package payload

import (
	"testing"

	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

func course(code, section string, credits int) *model.Course {
	return &model.Course{
		BaseModel: model.NewBaseModel(),
		Code:      code,
		Name:      code,
		Section:   section,
		Credits:   credits,
	}
}

func config(periods, lunch int) model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.PeriodsPerDay = periods
	cfg.LunchPeriod = lunch
	return cfg
}

func TestBuilder_Build(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	p, err := b.Build(
		[]*model.Course{course("CS101", "A", 3)},
		nil,
		config(6, 4),
	)
	if err != nil {
		t.Fatalf("Build() 出错: %v", err)
	}
	if len(p.Courses) != 1 {
		t.Fatalf("课程变量数 = %d, 期望 1", len(p.Courses))
	}

	cv := p.Courses[0]
	if cv.Sessions != 3 {
		t.Errorf("所需课时 = %d, 期望 3（每学分一节）", cv.Sessions)
	}
	// 5 天 × (6 - 1午休) 节
	if len(cv.Allowed) != 25 {
		t.Errorf("可用时段数 = %d, 期望 25", len(cv.Allowed))
	}
	for _, slot := range cv.Allowed {
		if slot.Period == 4 {
			t.Fatalf("午休节次不应出现在可用时段: %v", slot)
		}
	}
}

func TestBuilder_HardConstraintDomainRestriction(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	hard := &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: "CS101",
		Section:    "A",
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 1, End: 3},
		Severity:   model.SeverityHard,
	}

	p, err := b.Build([]*model.Course{course("CS101", "A", 3)}, []*model.Constraint{hard}, config(6, 4))
	if err != nil {
		t.Fatalf("Build() 出错: %v", err)
	}

	cv := p.Courses[0]
	if len(cv.Allowed) != 3 {
		t.Fatalf("域限制后可用时段数 = %d, 期望 3", len(cv.Allowed))
	}
	for _, slot := range cv.Allowed {
		if slot.Day != model.Monday || slot.Period > 3 {
			t.Errorf("窗口外时段未被固定为不可用: %v", slot)
		}
	}
}

func TestBuilder_ConflictPreDetection(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	// 窗口只有 2 个有效时段，课程需要 3 节 → 建模阶段即失败
	hard := &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: "CS101",
		Section:    "A",
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 1, End: 2},
		Severity:   model.SeverityHard,
	}

	_, err := b.Build([]*model.Course{course("CS101", "A", 3)}, []*model.Constraint{hard}, config(6, 4))
	if !errors.Is(err, errors.CodeConstraintConflict) {
		t.Fatalf("期望 ConstraintConflictError, 实际 %v", err)
	}
}

func TestBuilder_LunchShrinksWindow(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	// 窗口 P3-P5 含午休 P4，有效时段只剩 2 个
	hard := &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: "CS101",
		Section:    "A",
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 3, End: 5},
		Severity:   model.SeverityHard,
	}

	_, err := b.Build([]*model.Course{course("CS101", "A", 3)}, []*model.Constraint{hard}, config(6, 4))
	if !errors.Is(err, errors.CodeConstraintConflict) {
		t.Fatalf("午休应从窗口中剔除并触发冲突预检, 实际 %v", err)
	}
}

func TestBuilder_Validation(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	tests := []struct {
		name    string
		courses []*model.Course
		cons    []*model.Constraint
		cfg     model.GenerationConfig
	}{
		{
			name:    "零学分",
			courses: []*model.Course{course("CS101", "A", 0)},
			cfg:     config(6, 0),
		},
		{
			name:    "负学分",
			courses: []*model.Course{course("CS101", "A", -2)},
			cfg:     config(6, 0),
		},
		{
			name:    "课程代码重复",
			courses: []*model.Course{course("CS101", "A", 2), course("CS101", "A", 3)},
			cfg:     config(6, 0),
		},
		{
			name:    "班级为空",
			courses: []*model.Course{course("CS101", "", 2)},
			cfg:     config(6, 0),
		},
		{
			name:    "每日节次数非正",
			courses: []*model.Course{course("CS101", "A", 2)},
			cfg:     config(0, 0),
		},
		{
			name:    "约束节次越界",
			courses: []*model.Course{course("CS101", "A", 2)},
			cons: []*model.Constraint{{
				BaseModel:  model.NewBaseModel(),
				CourseName: "CS101",
				Periods:    model.PeriodRange{Start: 1, End: 9},
				Severity:   model.SeverityHard,
			}},
			cfg: config(6, 0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Build(tt.courses, tt.cons, tt.cfg)
			if !errors.Is(err, errors.CodeValidationFail) {
				t.Fatalf("期望 ValidationError, 实际 %v", err)
			}
		})
	}
}

func TestBuilder_SessionPolicy(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	// 自定义策略：两学分一节，向下取整
	cfg := config(6, 0)
	cfg.SessionPolicy = func(credits int) int { return credits / 2 }

	p, err := b.Build([]*model.Course{course("CS101", "A", 4)}, nil, cfg)
	if err != nil {
		t.Fatalf("Build() 出错: %v", err)
	}
	if p.Courses[0].Sessions != 2 {
		t.Errorf("课时数 = %d, 期望策略换算后的 2", p.Courses[0].Sessions)
	}

	// 策略换算结果非正 → 验证失败
	_, err = b.Build([]*model.Course{course("EN105", "A", 1)}, nil, cfg)
	if !errors.Is(err, errors.CodeValidationFail) {
		t.Fatalf("换算课时非正应触发验证错误, 实际 %v", err)
	}
}

func TestBuilder_SoftTermWeights(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	soft := &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: "CS101",
		Section:    "ALL",
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 1, End: 2},
		Severity:   model.SeveritySoft,
		OwnerScope: model.OwnerAdmin,
	}

	p, err := b.Build([]*model.Course{course("CS101", "A", 2)}, []*model.Constraint{soft}, config(6, 0))
	if err != nil {
		t.Fatalf("Build() 出错: %v", err)
	}
	if len(p.Soft) != 1 {
		t.Fatalf("软约束项数 = %d, 期望 1", len(p.Soft))
	}
	if p.Soft[0].Weight != DefaultWeights().AdminSoft {
		t.Errorf("admin 软约束权重 = %d, 期望 %d", p.Soft[0].Weight, DefaultWeights().AdminSoft)
	}

	// 窗口外时段计入代价，窗口内为零
	out := p.SlotPenalty(p.Courses[0].Course, model.Slot{Day: model.Tuesday, Period: 1})
	in := p.SlotPenalty(p.Courses[0].Course, model.Slot{Day: model.Monday, Period: 1})
	if out != DefaultWeights().AdminSoft || in != 0 {
		t.Errorf("SlotPenalty 窗口外/内 = %d/%d, 期望 %d/0", out, in, DefaultWeights().AdminSoft)
	}
}

func TestBuilder_Deterministic(t *testing.T) {
	b := NewBuilder(DefaultWeights())

	courses := []*model.Course{course("MA201", "A", 2), course("CS101", "A", 3)}
	cfg := config(6, 4)

	p1, err1 := b.Build(courses, nil, cfg)
	p2, err2 := b.Build(courses, nil, cfg)
	if err1 != nil || err2 != nil {
		t.Fatalf("Build() 出错: %v / %v", err1, err2)
	}

	if len(p1.Courses) != len(p2.Courses) {
		t.Fatal("两次构建课程变量数不一致")
	}
	// 排序后首个应为 CS101
	if p1.Courses[0].Course.Code != "CS101" {
		t.Errorf("课程变量应按代码排序, 首个为 %s", p1.Courses[0].Course.Code)
	}
	for i := range p1.Courses {
		if p1.Courses[i].Course.Code != p2.Courses[i].Course.Code {
			t.Error("两次构建课程顺序不一致")
		}
		if len(p1.Courses[i].Allowed) != len(p2.Courses[i].Allowed) {
			t.Error("两次构建的可用时段集不一致")
		}
		for j := range p1.Courses[i].Allowed {
			if p1.Courses[i].Allowed[j] != p2.Courses[i].Allowed[j] {
				t.Error("两次构建的时段顺序不一致")
			}
		}
	}
}

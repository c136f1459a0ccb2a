package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/engine/solver"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

func newCourse(code, section string, credits int) *model.Course {
	return &model.Course{
		BaseModel: model.NewBaseModel(),
		Code:      code,
		Name:      code,
		Section:   section,
		Credits:   credits,
	}
}

func genConfig() model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.PeriodsPerDay = 6
	cfg.LunchPeriod = 4
	cfg.TimeLimit = 5 * time.Second
	return cfg
}

func TestGenerate_Solved(t *testing.T) {
	eng := New(Options{})

	hard := &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: "CS101",
		Section:    "A",
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 1, End: 3},
		Severity:   model.SeverityHard,
	}

	res, err := eng.Generate(context.Background(),
		[]*model.Course{newCourse("CS101", "A", 3), newCourse("MA201", "A", 2)},
		[]*model.Constraint{hard},
		genConfig(),
	)
	if err != nil {
		t.Fatalf("Generate() 出错: %v", err)
	}
	if res.Diagnostics.Status != model.StatusSolved {
		t.Fatalf("状态 = %s, 期望 Solved", res.Diagnostics.Status)
	}
	if res.Grid == nil {
		t.Fatal("Solved 结果必须携带网格")
	}
	if len(res.Diagnostics.HardViolations()) != 0 {
		t.Errorf("Solved 网格不应有硬约束违反: %+v", res.Diagnostics.HardViolations())
	}

	// 硬约束窗口在优化后仍然成立
	for _, e := range res.Grid.Entries() {
		if e.Course.Code == "CS101" && (e.Day != model.Monday || e.Period > 3) {
			t.Errorf("CS101 被排到窗口外: %s P%d", e.Day, e.Period)
		}
	}
}

func TestGenerate_BuildErrors(t *testing.T) {
	eng := New(Options{})

	t.Run("非法输入", func(t *testing.T) {
		_, err := eng.Generate(context.Background(),
			[]*model.Course{newCourse("CS101", "A", 0)},
			nil,
			genConfig(),
		)
		if !errors.Is(err, errors.CodeValidationFail) {
			t.Fatalf("期望 ValidationError, 实际 %v", err)
		}
	})

	t.Run("约束冲突预检", func(t *testing.T) {
		hard := &model.Constraint{
			BaseModel:  model.NewBaseModel(),
			CourseName: "CS101",
			Section:    "A",
			Day:        model.Monday,
			Periods:    model.PeriodRange{Start: 1, End: 2},
			Severity:   model.SeverityHard,
		}
		_, err := eng.Generate(context.Background(),
			[]*model.Course{newCourse("CS101", "A", 3)},
			[]*model.Constraint{hard},
			genConfig(),
		)
		if !errors.Is(err, errors.CodeConstraintConflict) {
			t.Fatalf("期望 ConstraintConflictError, 实际 %v", err)
		}
	})
}

func TestGenerate_Infeasible(t *testing.T) {
	eng := New(Options{})

	teacher := uuid.New()
	csA := newCourse("CS101", "A", 1)
	csA.TeacherID = &teacher
	maB := newCourse("MA201", "B", 1)
	maB.TeacherID = &teacher

	mkHard := func(course string) *model.Constraint {
		return &model.Constraint{
			BaseModel:  model.NewBaseModel(),
			CourseName: course,
			Section:    model.SectionAll,
			Day:        model.Monday,
			Periods:    model.PeriodRange{Start: 1, End: 1},
			Severity:   model.SeverityHard,
		}
	}

	res, err := eng.Generate(context.Background(),
		[]*model.Course{csA, maB},
		[]*model.Constraint{mkHard("CS101"), mkHard("MA201")},
		genConfig(),
	)
	if err != nil {
		t.Fatalf("不可行是预期结果而非错误, 实际 err = %v", err)
	}
	if res.Diagnostics.Status != model.StatusInfeasible {
		t.Fatalf("状态 = %s, 期望 Infeasible", res.Diagnostics.Status)
	}
	if res.Grid != nil {
		t.Error("不可行结果不应携带网格")
	}
	if len(res.Diagnostics.Shortfalls) == 0 {
		t.Error("不可行诊断应列出缺额课程")
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	eng := New(Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := eng.Generate(ctx,
		[]*model.Course{newCourse("CS101", "A", 2)},
		nil,
		genConfig(),
	)
	if err != nil {
		t.Fatalf("取消是预期终态而非错误, 实际 err = %v", err)
	}
	if res.Diagnostics.Status != model.StatusCancelled {
		t.Fatalf("状态 = %s, 期望 Cancelled", res.Diagnostics.Status)
	}
	if res.Grid != nil {
		t.Error("取消结果不应携带网格")
	}
}

func TestGenerate_FallbackDiagnostics(t *testing.T) {
	eng := New(Options{Backend: solver.BackendGreedy})

	if !eng.IsFallback() {
		t.Fatal("显式贪心后端应标记降级")
	}
	if eng.Strategy() != "GreedySolver" {
		t.Fatalf("策略 = %s, 期望 GreedySolver", eng.Strategy())
	}

	res, err := eng.Generate(context.Background(),
		[]*model.Course{newCourse("CS101", "A", 2)},
		nil,
		genConfig(),
	)
	if err != nil {
		t.Fatalf("Generate() 出错: %v", err)
	}
	if !res.Diagnostics.Fallback {
		t.Error("诊断应标记贪心降级")
	}
	if res.Diagnostics.Strategy != "GreedySolver" {
		t.Errorf("诊断策略 = %s, 期望 GreedySolver", res.Diagnostics.Strategy)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	// 固定种子下两次生成结果按单元逐一相同
	courses := func() []*model.Course {
		return []*model.Course{
			newCourse("CS101", "A", 3),
			newCourse("MA201", "A", 2),
			newCourse("EN105", "A", 2),
		}
	}
	cfg := genConfig()
	cfg.Seed = 7

	run := func() []model.Entry {
		res, err := New(Options{}).Generate(context.Background(), courses(), nil, cfg)
		if err != nil {
			t.Fatalf("Generate() 出错: %v", err)
		}
		return res.Grid.Entries()
	}

	e1, e2 := run(), run()
	if len(e1) != len(e2) {
		t.Fatalf("两次生成条目数不一致: %d ≠ %d", len(e1), len(e2))
	}
	for i := range e1 {
		if e1[i].Day != e2[i].Day || e1[i].Period != e2[i].Period || e1[i].Course.Code != e2[i].Course.Code {
			t.Fatalf("第 %d 个条目不一致: %+v ≠ %+v", i, e1[i], e2[i])
		}
	}
}

func TestGenerate_NoOptimizerPass(t *testing.T) {
	// 交换上限为 0：求解结果原样通过多样性阶段
	cfg := genConfig()
	cfg.MaxSwapIterations = 0

	res, err := New(Options{}).Generate(context.Background(),
		[]*model.Course{newCourse("CS101", "A", 2)},
		nil,
		cfg,
	)
	if err != nil {
		t.Fatalf("Generate() 出错: %v", err)
	}
	if res.Diagnostics.SwapIterations != 0 {
		t.Errorf("交换迭代数 = %d, 期望 0", res.Diagnostics.SwapIterations)
	}
	if res.Diagnostics.Status != model.StatusSolved {
		t.Errorf("状态 = %s, 期望 Solved", res.Diagnostics.Status)
	}
}

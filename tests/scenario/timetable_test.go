// Package scenario 提供场景测试
package scenario

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paike/paike/pkg/engine"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

func newEngine() *engine.Engine {
	return engine.New(engine.Options{})
}

func stdConfig() model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.PeriodsPerDay = 6
	cfg.LunchPeriod = 4
	cfg.TimeLimit = 10 * time.Second
	return cfg
}

func newCourse(code, name, section string, credits int, teacherID *uuid.UUID) *model.Course {
	return &model.Course{
		BaseModel: model.BaseModel{ID: uuid.New()},
		Code:      code,
		Name:      name,
		Section:   section,
		Credits:   credits,
		TeacherID: teacherID,
		Published: true,
	}
}

func hardWindow(course, section string, day model.Weekday, start, end int) *model.Constraint {
	return &model.Constraint{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		CourseName: course,
		Section:    section,
		Day:        day,
		Periods:    model.PeriodRange{Start: start, End: end},
		Severity:   model.SeverityHard,
		OwnerScope: model.OwnerAdmin,
	}
}

func softWindow(course, section string, day model.Weekday, start, end int, scope model.OwnerScope) *model.Constraint {
	return &model.Constraint{
		BaseModel:  model.BaseModel{ID: uuid.New()},
		CourseName: course,
		Section:    section,
		Day:        day,
		Periods:    model.PeriodRange{Start: start, End: end},
		Severity:   model.SeveritySoft,
		OwnerScope: scope,
	}
}

// TestHighSchoolWeeklyTimetable 高中班级一周完整排课
// 两个班各五门课，语文和数学老师跨班授课
func TestHighSchoolWeeklyTimetable(t *testing.T) {
	mathTeacher := uuid.New()
	chineseTeacher := uuid.New()
	englishTeacherA := uuid.New()
	englishTeacherB := uuid.New()

	var courses []*model.Course
	for _, section := range []string{"高一1班", "高一2班"} {
		courses = append(courses,
			newCourse("MATH101", "数学", section, 5, &mathTeacher),
			newCourse("CHIN101", "语文", section, 5, &chineseTeacher),
			newCourse("PHYS101", "物理", section, 3, nil),
			newCourse("CHEM101", "化学", section, 3, nil),
		)
	}
	courses = append(courses,
		newCourse("ENGL101", "英语", "高一1班", 4, &englishTeacherA),
		newCourse("ENGL101", "英语", "高一2班", 4, &englishTeacherB),
	)

	// 行政约束：数学尽量安排在上午
	constraints := []*model.Constraint{
		softWindow("数学", model.SectionAll, "", 1, 3, model.OwnerAdmin),
	}

	eng := newEngine()
	res, err := eng.Generate(context.Background(), courses, constraints, stdConfig())
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}

	// 大实例允许时限内未证最优，但必须给出完整可行解
	if res.Diagnostics.Status != model.StatusSolved && res.Diagnostics.Status != model.StatusPartialTimeLimit {
		t.Fatalf("期望可行解，实际状态: %s (%s)", res.Diagnostics.Status, res.Diagnostics.Message)
	}

	// 默认策略下每学分一节课，课时数必须精确等于学分
	for _, c := range courses {
		if got := res.Grid.CountFor(c.ID); got != c.Credits {
			t.Errorf("%s %s 期望 %d 节课，实际 %d", c.Name, c.Section, c.Credits, got)
		}
	}

	// 硬性要求：无硬约束违反
	if hard := res.Diagnostics.HardViolations(); len(hard) != 0 {
		for _, v := range hard {
			t.Errorf("硬约束违反: %s", v.Message)
		}
	}

	// 跨班教师不得同时段授课
	taken := map[string]string{}
	for _, e := range res.Grid.Entries() {
		if e.Course == nil || e.Course.TeacherID == nil {
			continue
		}
		key := fmt.Sprintf("%s/%d/%s", e.Day, e.Period, e.Course.TeacherID)
		if prev, ok := taken[key]; ok && prev != e.Section {
			t.Errorf("教师在 %s 第%d节 同时出现在 %s 和 %s", e.Day, e.Period, prev, e.Section)
		}
		taken[key] = e.Section
	}

	for _, section := range []string{"高一1班", "高一2班"} {
		t.Logf("%s 课表:", section)
		for day, row := range res.Grid.Rows(section) {
			t.Logf("  %s: %v", day, row)
		}
	}
	t.Logf("策略=%s 多样性=%.1f 交换轮次=%d",
		res.Diagnostics.Strategy, res.Diagnostics.DiversityScore, res.Diagnostics.SwapIterations)
}

// TestPinnedCourseWindow 硬约束锁定周一上午
func TestPinnedCourseWindow(t *testing.T) {
	courses := []*model.Course{newCourse("CS101", "程序设计", "A", 3, nil)}
	constraints := []*model.Constraint{hardWindow("程序设计", "A", model.Monday, 1, 3)}

	res, err := newEngine().Generate(context.Background(), courses, constraints, stdConfig())
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if res.Diagnostics.Status != model.StatusSolved {
		t.Fatalf("期望求解成功，实际: %s", res.Diagnostics.Status)
	}

	entries := res.Grid.Entries()
	if len(entries) != 3 {
		t.Fatalf("期望3个课时，实际: %d", len(entries))
	}
	for _, e := range entries {
		if e.Day != model.Monday || e.Period < 1 || e.Period > 3 {
			t.Errorf("课时落在窗口外: %s 第%d节", e.Day, e.Period)
		}
	}
}

// TestOverConstrainedWindow 窗口容量小于课时数，构建期即拒绝
func TestOverConstrainedWindow(t *testing.T) {
	courses := []*model.Course{newCourse("CS101", "程序设计", "A", 3, nil)}
	constraints := []*model.Constraint{hardWindow("程序设计", "A", model.Monday, 1, 2)}

	_, err := newEngine().Generate(context.Background(), courses, constraints, stdConfig())
	if err == nil {
		t.Fatal("期望约束冲突错误")
	}
	if !errors.Is(err, errors.CodeConstraintConflict) {
		t.Errorf("期望 CodeConstraintConflict，实际: %v", errors.GetCode(err))
	}
	t.Logf("预检拒绝: %v", err)
}

// TestTeacherDoubleBookingInfeasible 两门课共享教师且都锁定周一第1节
func TestTeacherDoubleBookingInfeasible(t *testing.T) {
	teacherID := uuid.New()
	courses := []*model.Course{
		newCourse("CS101", "程序设计", "A", 1, &teacherID),
		newCourse("MA201", "高等数学", "B", 1, &teacherID),
	}
	constraints := []*model.Constraint{
		hardWindow("程序设计", "A", model.Monday, 1, 1),
		hardWindow("高等数学", "B", model.Monday, 1, 1),
	}

	res, err := newEngine().Generate(context.Background(), courses, constraints, stdConfig())
	if err != nil {
		t.Fatalf("不可行应体现在诊断而非错误: %v", err)
	}
	if res.Diagnostics.Status != model.StatusInfeasible {
		t.Fatalf("期望 Infeasible，实际: %s", res.Diagnostics.Status)
	}
	if len(res.Diagnostics.Shortfalls) == 0 {
		t.Fatal("期望缺口诊断")
	}
	for _, s := range res.Diagnostics.Shortfalls {
		t.Logf("缺口: %s %s — %s", s.CourseCode, s.Section, s.Reason)
	}
}

// TestSoftPreferenceTradeoff 软约束冲突时保留可行解并报告违反
func TestSoftPreferenceTradeoff(t *testing.T) {
	// 四门课争抢周一上午三个时段，软约束必然部分落空
	var courses []*model.Course
	for i, name := range []string{"语文", "数学", "英语", "物理"} {
		courses = append(courses, newCourse(fmt.Sprintf("C10%d", i+1), name, "A", 2, nil))
	}
	var constraints []*model.Constraint
	for _, name := range []string{"语文", "数学", "英语", "物理"} {
		constraints = append(constraints, softWindow(name, "A", model.Monday, 1, 3, model.OwnerTeacher))
	}

	res, err := newEngine().Generate(context.Background(), courses, constraints, stdConfig())
	if err != nil {
		t.Fatalf("生成失败: %v", err)
	}
	if res.Diagnostics.Status != model.StatusSolved && res.Diagnostics.Status != model.StatusPartialTimeLimit {
		t.Fatalf("期望可行解，实际: %s", res.Diagnostics.Status)
	}
	if hard := res.Diagnostics.HardViolations(); len(hard) != 0 {
		t.Errorf("软约束冲突不应产生硬违反: %d", len(hard))
	}
	t.Logf("软违反数=%d", len(res.Diagnostics.Violations))
}

package validator

import (
	"testing"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/model"
)

func testCourse(code, section string, teacherID *uuid.UUID) *model.Course {
	return &model.Course{
		BaseModel: model.NewBaseModel(),
		Code:      code,
		Name:      code,
		Section:   section,
		Credits:   1,
		TeacherID: teacherID,
	}
}

func windowConstraint(course string, severity model.Severity) *model.Constraint {
	return &model.Constraint{
		BaseModel:  model.NewBaseModel(),
		CourseName: course,
		Section:    model.SectionAll,
		Day:        model.Monday,
		Periods:    model.PeriodRange{Start: 1, End: 3},
		Severity:   severity,
	}
}

func TestValidate_WindowViolations(t *testing.T) {
	v := New()
	grid := model.NewGrid(model.DefaultDays(), 6, 4, []string{"A"})
	cs := testCourse("CS101", "A", nil)

	grid.Set(model.Monday, 2, "A", cs)  // 窗口内
	grid.Set(model.Tuesday, 1, "A", cs) // 窗口外（教学日不符）
	grid.Set(model.Monday, 5, "A", cs)  // 窗口外（节次不符）

	tests := []struct {
		name     string
		severity model.Severity
	}{
		{"硬约束违反", model.SeverityHard},
		{"软约束违反", model.SeveritySoft},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			violations := v.Validate(grid, []*model.Constraint{windowConstraint("CS101", tt.severity)})
			if len(violations) != 2 {
				t.Fatalf("违反数 = %d, 期望 2", len(violations))
			}
			for _, vio := range violations {
				if vio.Severity != tt.severity {
					t.Errorf("违反级别 = %s, 期望 %s", vio.Severity, tt.severity)
				}
			}
		})
	}
}

func TestValidate_CleanGrid(t *testing.T) {
	v := New()
	grid := model.NewGrid(model.DefaultDays(), 6, 4, []string{"A"})
	grid.Set(model.Monday, 1, "A", testCourse("CS101", "A", nil))
	grid.Set(model.Monday, 2, "A", testCourse("MA201", "A", nil))

	violations := v.Validate(grid, []*model.Constraint{windowConstraint("CS101", model.SeverityHard)})
	if len(violations) != 0 {
		t.Errorf("合规网格不应产生违反: %+v", violations)
	}
}

func TestValidate_TeacherDoubleBooking(t *testing.T) {
	v := New()
	teacher := uuid.New()
	grid := model.NewGrid(model.DefaultDays(), 6, 0, []string{"A", "B"})

	// 同一教师同一时段在两个班级授课
	grid.Set(model.Monday, 1, "A", testCourse("CS101", "A", &teacher))
	grid.Set(model.Monday, 1, "B", testCourse("CS102", "B", &teacher))

	violations := v.Validate(grid, nil)
	if len(violations) != 1 {
		t.Fatalf("违反数 = %d, 期望 1", len(violations))
	}
	if violations[0].Constraint != "teacher_double_booking" {
		t.Errorf("违反类型 = %s, 期望 teacher_double_booking", violations[0].Constraint)
	}
	if violations[0].Severity != model.SeverityHard {
		t.Error("结构违反应为硬级别")
	}
}

func TestValidate_DifferentTeachersNoClash(t *testing.T) {
	v := New()
	t1, t2 := uuid.New(), uuid.New()
	grid := model.NewGrid(model.DefaultDays(), 6, 0, []string{"A", "B"})

	grid.Set(model.Monday, 1, "A", testCourse("CS101", "A", &t1))
	grid.Set(model.Monday, 1, "B", testCourse("CS102", "B", &t2))

	if violations := v.Validate(grid, nil); len(violations) != 0 {
		t.Errorf("不同教师同时段不应判为冲突: %+v", violations)
	}
}

func TestHardOK(t *testing.T) {
	v := New()
	hard := windowConstraint("CS101", model.SeverityHard)
	soft := windowConstraint("MA201", model.SeveritySoft)
	constraints := []*model.Constraint{hard, soft}

	grid := model.NewGrid(model.DefaultDays(), 6, 0, []string{"A"})
	cs := testCourse("CS101", "A", nil)
	ma := testCourse("MA201", "A", nil)
	grid.Set(model.Monday, 1, "A", cs)
	grid.Set(model.Friday, 6, "A", ma)

	// 窗口内的硬约束单元通过
	if !v.HardOK(grid, constraints, []model.CellKey{{Day: model.Monday, Period: 1, Section: "A"}}) {
		t.Error("窗口内单元应通过硬约束复检")
	}
	// 软约束窗口外的单元也通过（软约束不阻断）
	if !v.HardOK(grid, constraints, []model.CellKey{{Day: model.Friday, Period: 6, Section: "A"}}) {
		t.Error("软约束不应阻断复检")
	}

	// 把 CS101 挪到窗口外后复检失败
	grid.Clear(model.Monday, 1, "A")
	grid.Set(model.Wednesday, 2, "A", cs)
	if v.HardOK(grid, constraints, []model.CellKey{{Day: model.Wednesday, Period: 2, Section: "A"}}) {
		t.Error("窗口外的硬约束单元应复检失败")
	}
}

func TestHardOK_TeacherClash(t *testing.T) {
	v := New()
	teacher := uuid.New()
	grid := model.NewGrid(model.DefaultDays(), 6, 0, []string{"A", "B"})

	grid.Set(model.Monday, 1, "A", testCourse("CS101", "A", &teacher))
	grid.Set(model.Monday, 1, "B", testCourse("CS102", "B", &teacher))

	if v.HardOK(grid, nil, []model.CellKey{{Day: model.Monday, Period: 1, Section: "A"}}) {
		t.Error("跨班级教师冲突应复检失败")
	}

	// 空单元不参与复检
	if !v.HardOK(grid, nil, []model.CellKey{{Day: model.Friday, Period: 6, Section: "A"}}) {
		t.Error("空单元应直接通过")
	}
}

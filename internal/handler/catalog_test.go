package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paike/paike/pkg/engine"
	"github.com/paike/paike/pkg/model"
)

func doJSON(t *testing.T, h http.HandlerFunc, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("序列化请求失败: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func errCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("解析错误响应失败: %v", err)
	}
	code, _ := body["code"].(string)
	return code
}

func TestCourseHandler_CreateValidation(t *testing.T) {
	h := NewCourseHandler(nil, nil)

	tests := []struct {
		name  string
		input CourseInput
	}{
		{"缺少课程代码", CourseInput{Section: "A", Credits: 3}},
		{"缺少班级", CourseInput{Code: "CS101", Credits: 3}},
		{"学分为零", CourseInput{Code: "CS101", Section: "A"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.Collection, http.MethodPost, "/api/v1/courses", tt.input)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("期望400，实际: %d, body: %s", rec.Code, rec.Body.String())
			}
			if code := errCode(t, rec); code != "VALIDATION_FAILED" {
				t.Errorf("期望错误码 VALIDATION_FAILED，实际: %s", code)
			}
		})
	}
}

func TestCourseHandler_InvalidID(t *testing.T) {
	h := NewCourseHandler(nil, nil)

	rec := doJSON(t, h.Item, http.MethodGet, "/api/v1/courses/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("期望400，实际: %d", rec.Code)
	}
}

func TestCourseHandler_MethodNotAllowed(t *testing.T) {
	h := NewCourseHandler(nil, nil)

	rec := doJSON(t, h.Collection, http.MethodPatch, "/api/v1/courses", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("期望400，实际: %d", rec.Code)
	}
}

func TestConstraintHandler_CreateValidation(t *testing.T) {
	h := NewConstraintHandler(nil)

	tests := []struct {
		name     string
		input    ConstraintInput
		wantCode string
	}{
		{
			"缺少课程名",
			ConstraintInput{PeriodRange: "P1-P3", Type: "hard"},
			"INVALID_INPUT",
		},
		{
			"非法节次范围",
			ConstraintInput{CourseName: "数学", PeriodRange: "P3-P1", Type: "hard"},
			"INVALID_PERIOD_RANGE",
		},
		{
			"非法约束级别",
			ConstraintInput{CourseName: "数学", PeriodRange: "P1-P3", Type: "mandatory"},
			"INVALID_INPUT",
		},
		{
			"非法教学日",
			ConstraintInput{CourseName: "数学", PeriodRange: "P1-P3", Type: "hard", Day: "Someday"},
			"INVALID_INPUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h.Collection, http.MethodPost, "/api/v1/constraints", tt.input)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("期望400，实际: %d, body: %s", rec.Code, rec.Body.String())
			}
			if code := errCode(t, rec); code != tt.wantCode {
				t.Errorf("期望错误码 %s，实际: %s", tt.wantCode, code)
			}
		})
	}
}

func TestTeacherHandler_CreateValidation(t *testing.T) {
	h := NewTeacherHandler(nil)

	rec := doJSON(t, h.Collection, http.MethodPost, "/api/v1/teachers",
		TeacherInput{FullName: "王老师"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("期望400，实际: %d", rec.Code)
	}
	if code := errCode(t, rec); code != "INVALID_INPUT" {
		t.Errorf("期望错误码 INVALID_INPUT，实际: %s", code)
	}
}

// 未挂接课程目录时，空课程列表仍然是输入错误而非数据库查询
func TestGenerate_EmptyCoursesWithoutCatalog(t *testing.T) {
	h := NewTimetableHandler(engine.New(engine.Options{}), model.DefaultGenerationConfig(), nil)

	rec := doJSON(t, h.Generate, http.MethodPost, "/api/v1/timetable/generate",
		GenerateRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("期望400，实际: %d, body: %s", rec.Code, rec.Body.String())
	}
	if code := errCode(t, rec); code != "INVALID_INPUT" {
		t.Errorf("期望错误码 INVALID_INPUT，实际: %s", code)
	}
}

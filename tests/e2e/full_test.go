// Package e2e 提供端到端测试
package e2e

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paike/paike/internal/handler"
	"github.com/paike/paike/pkg/engine"
	"github.com/paike/paike/pkg/model"
)

func newServer() *httptest.Server {
	eng := engine.New(engine.Options{})
	defaults := model.DefaultGenerationConfig()
	defaults.LunchPeriod = 4

	timetableHandler := handler.NewTimetableHandler(eng, defaults, nil)
	statsHandler := handler.NewStatsHandler(defaults)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/timetable/generate", timetableHandler.Generate)
	mux.HandleFunc("/api/v1/timetable/validate", timetableHandler.Validate)
	mux.HandleFunc("/api/v1/stats/analyze", statsHandler.Analyze)
	return httptest.NewServer(mux)
}

func post(t *testing.T, url string, body interface{}, out interface{}) int {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("序列化请求失败: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("请求失败: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("解析响应失败: %v", err)
		}
	}
	return resp.StatusCode
}

// TestFullTimetableWorkflow 生成 → 复检 → 统计 完整工作流
func TestFullTimetableWorkflow(t *testing.T) {
	srv := newServer()
	defer srv.Close()

	// 第一步：生成课表
	genReq := handler.GenerateRequest{
		Name: "高一1班 秋季课表",
		Courses: []handler.CourseInput{
			{Code: "MATH101", Name: "数学", Section: "高一1班", Credits: 5},
			{Code: "CHIN101", Name: "语文", Section: "高一1班", Credits: 5},
			{Code: "ENGL101", Name: "英语", Section: "高一1班", Credits: 4},
			{Code: "PHYS101", Name: "物理", Section: "高一1班", Credits: 3},
		},
		Constraints: []handler.ConstraintInput{
			{CourseName: "数学", Section: "高一1班", PeriodRange: "P1-P3", Type: "soft", OwnerType: "admin"},
			{CourseName: "物理", Section: "高一1班", Day: "Friday", PeriodRange: "P1-P6", Type: "hard"},
		},
		Options: &handler.GenerateOptions{Seed: 42},
	}

	var genResp handler.GenerateResponse
	if code := post(t, srv.URL+"/api/v1/timetable/generate", genReq, &genResp); code != http.StatusOK {
		t.Fatalf("生成接口返回 %d", code)
	}
	if !genResp.Success {
		t.Fatalf("期望求解成功，诊断: %+v", genResp.Diagnostics)
	}
	if len(genResp.Entries) != 17 {
		t.Fatalf("期望17个课时，实际: %d", len(genResp.Entries))
	}
	t.Logf("生成完成: 策略=%s 耗时=%s", genResp.Diagnostics.Strategy, genResp.Duration)

	// 第二步：原样复检，应当通过
	valReq := handler.ValidateRequest{
		Entries:     genResp.Entries,
		Constraints: genReq.Constraints,
	}
	var valResp handler.ValidateResponse
	if code := post(t, srv.URL+"/api/v1/timetable/validate", valReq, &valResp); code != http.StatusOK {
		t.Fatalf("验证接口返回 %d", code)
	}
	if !valResp.Valid {
		t.Errorf("生成结果复检不通过: %d 个硬违反", valResp.HardViolations)
		for _, v := range valResp.Violations {
			t.Logf("  违反: %s", v.Message)
		}
	}

	// 第三步：模拟人工把一节物理课挪出周五，复检应报硬违反
	var edited []model.Entry
	for _, e := range genResp.Entries {
		if e.Course != nil && e.Course.Name == "物理" {
			edited = append(edited, e)
		}
	}
	if len(edited) == 0 {
		t.Fatal("生成结果中找不到物理课")
	}
	edited[0].Day = model.Monday
	valReq.Entries = edited
	var editedResp handler.ValidateResponse
	post(t, srv.URL+"/api/v1/timetable/validate", valReq, &editedResp)
	if editedResp.HardViolations == 0 {
		t.Error("挪动后应报告硬约束违反")
	}

	// 第四步：统计分析
	statsReq := handler.StatsRequest{Entries: genResp.Entries}
	var statsResp handler.StatsResponse
	if code := post(t, srv.URL+"/api/v1/stats/analyze", statsReq, &statsResp); code != http.StatusOK {
		t.Fatalf("统计接口返回 %d", code)
	}
	if !statsResp.Success || statsResp.Data == nil {
		t.Fatal("期望统计数据")
	}
	if statsResp.Data.OccupiedSlots != 17 {
		t.Errorf("期望占用17格，实际: %d", statsResp.Data.OccupiedSlots)
	}
	t.Logf("利用率=%.1f%% 多样性均值=%.2f 相邻重复=%d",
		statsResp.Data.UtilizationRate, statsResp.Data.AvgDailyVariety, statsResp.Data.AdjacentRepeats)
}

// TestWorkflowInfeasible 不可行请求返回200但诊断为infeasible
func TestWorkflowInfeasible(t *testing.T) {
	srv := newServer()
	defer srv.Close()

	teacherID := "9b1deb4d-3b7d-4bad-9bdd-2b0d7b3dcb6d"
	genReq := handler.GenerateRequest{
		Courses: []handler.CourseInput{
			{Code: "CS101", Name: "程序设计", Section: "A", Credits: 1, TeacherID: teacherID},
			{Code: "MA201", Name: "高等数学", Section: "B", Credits: 1, TeacherID: teacherID},
		},
		Constraints: []handler.ConstraintInput{
			{CourseName: "程序设计", Section: "A", Day: "Monday", PeriodRange: "P1", Type: "hard"},
			{CourseName: "高等数学", Section: "B", Day: "Monday", PeriodRange: "P1", Type: "hard"},
		},
	}

	var genResp handler.GenerateResponse
	if code := post(t, srv.URL+"/api/v1/timetable/generate", genReq, &genResp); code != http.StatusOK {
		t.Fatalf("生成接口返回 %d", code)
	}
	if genResp.Success {
		t.Error("不可行时 success 应为 false")
	}
	if genResp.Diagnostics.Status != model.StatusInfeasible {
		t.Errorf("期望 infeasible，实际: %s", genResp.Diagnostics.Status)
	}
	if len(genResp.Diagnostics.Shortfalls) == 0 {
		t.Error("期望缺口诊断")
	}
}

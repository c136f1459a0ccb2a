// Package stats 提供课表统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paike/paike/pkg/model"
)

// TimetableMetrics 课表指标
type TimetableMetrics struct {
	// 整体利用率
	TotalSlots      int     `json:"total_slots"`      // 总可用时段数（不含午休）
	OccupiedSlots   int     `json:"occupied_slots"`   // 已占用时段数
	UtilizationRate float64 `json:"utilization_rate"` // 利用率 (%)

	// 按教学日统计
	DailyUtilization map[model.Weekday]DayUtilization `json:"daily_utilization"` // 每日利用情况

	// 按班级统计
	SectionUtilization map[string]float64 `json:"section_utilization"` // 按班级利用率

	// 多样性
	AvgDailyVariety float64 `json:"avg_daily_variety"` // 每日平均课程种类数
	AdjacentRepeats int     `json:"adjacent_repeats"`  // 相邻节次重复课程数

	// 教师负载
	Teachers TeacherLoadMetrics `json:"teachers"` // 教师负载指标
}

// DayUtilization 每日利用情况
type DayUtilization struct {
	Day             model.Weekday `json:"day"`
	TotalSlots      int           `json:"total_slots"`
	Occupied        int           `json:"occupied"`
	UtilizationRate float64       `json:"utilization_rate"`
	DistinctCourses int           `json:"distinct_courses"`
}

// TeacherLoadMetrics 教师负载指标
type TeacherLoadMetrics struct {
	LoadGini       float64       `json:"load_gini"`       // 课时基尼系数 (0=完全均衡, 1=完全失衡)
	LoadVariance   float64       `json:"load_variance"`   // 课时方差
	LoadStdDev     float64       `json:"load_std_dev"`    // 课时标准差
	AvgSessions    float64       `json:"avg_sessions"`    // 人均课时数
	MaxSessions    int           `json:"max_sessions"`    // 最大课时数
	MinSessions    int           `json:"min_sessions"`    // 最小课时数
	TeacherDetails []TeacherStat `json:"teacher_details"` // 教师明细
}

// TeacherStat 教师统计
type TeacherStat struct {
	TeacherID   string  `json:"teacher_id"`
	TeacherName string  `json:"teacher_name"`
	Sessions    int     `json:"sessions"`
	Courses     int     `json:"courses"`
	Deviation   float64 `json:"deviation"` // 与平均值的偏差百分比
}

// TimetableAnalyzer 课表分析器
type TimetableAnalyzer struct{}

// NewTimetableAnalyzer 创建课表分析器
func NewTimetableAnalyzer() *TimetableAnalyzer {
	return &TimetableAnalyzer{}
}

// Analyze 分析课表
func (a *TimetableAnalyzer) Analyze(grid *model.Grid) *TimetableMetrics {
	metrics := &TimetableMetrics{
		DailyUtilization:   make(map[model.Weekday]DayUtilization),
		SectionUtilization: make(map[string]float64),
	}
	if grid == nil {
		return metrics
	}

	slotsPerDay := grid.Periods
	if grid.Lunch > 0 {
		slotsPerDay--
	}
	metrics.TotalSlots = slotsPerDay * len(grid.Days) * len(grid.Sections)
	metrics.OccupiedSlots = grid.Occupied()
	if metrics.TotalSlots > 0 {
		metrics.UtilizationRate = float64(metrics.OccupiedSlots) / float64(metrics.TotalSlots) * 100
	}

	a.analyzeDaily(grid, metrics, slotsPerDay)
	a.analyzeSections(grid, metrics, slotsPerDay)
	metrics.Teachers = a.analyzeTeachers(grid)
	return metrics
}

// analyzeDaily 计算每日利用率与多样性
func (a *TimetableAnalyzer) analyzeDaily(grid *model.Grid, metrics *TimetableMetrics, slotsPerDay int) {
	var varietySum float64
	dayTotal := slotsPerDay * len(grid.Sections)

	for _, day := range grid.Days {
		occupied := 0
		distinct := make(map[string]struct{})

		for _, section := range grid.Sections {
			var prev *model.Course
			for p := 1; p <= grid.Periods; p++ {
				if grid.IsLunch(p) {
					prev = nil
					continue
				}
				course := grid.Get(day, p, section)
				if course == nil {
					prev = nil
					continue
				}
				occupied++
				distinct[course.Code] = struct{}{}
				if prev != nil && prev.ID == course.ID {
					metrics.AdjacentRepeats++
				}
				prev = course
			}
		}

		du := DayUtilization{
			Day:             day,
			TotalSlots:      dayTotal,
			Occupied:        occupied,
			DistinctCourses: len(distinct),
		}
		if dayTotal > 0 {
			du.UtilizationRate = float64(occupied) / float64(dayTotal) * 100
		}
		metrics.DailyUtilization[day] = du
		varietySum += float64(len(distinct))
	}

	if len(grid.Days) > 0 {
		metrics.AvgDailyVariety = varietySum / float64(len(grid.Days))
	}
}

// analyzeSections 计算按班级利用率
func (a *TimetableAnalyzer) analyzeSections(grid *model.Grid, metrics *TimetableMetrics, slotsPerDay int) {
	sectionTotal := slotsPerDay * len(grid.Days)
	occupied := make(map[string]int)
	for _, e := range grid.Entries() {
		occupied[e.Section]++
	}
	for _, section := range grid.Sections {
		if sectionTotal > 0 {
			metrics.SectionUtilization[section] = float64(occupied[section]) / float64(sectionTotal) * 100
		}
	}
}

// analyzeTeachers 计算教师负载均衡性
func (a *TimetableAnalyzer) analyzeTeachers(grid *model.Grid) TeacherLoadMetrics {
	type acc struct {
		name     string
		sessions int
		courses  map[string]struct{}
	}
	byTeacher := make(map[string]*acc)

	for _, e := range grid.Entries() {
		if e.Course.TeacherID == nil {
			continue
		}
		id := e.Course.TeacherID.String()
		t, exists := byTeacher[id]
		if !exists {
			t = &acc{name: e.Course.TeacherName, courses: make(map[string]struct{})}
			byTeacher[id] = t
		}
		t.sessions++
		t.courses[e.Course.Code] = struct{}{}
	}

	metrics := TeacherLoadMetrics{}
	if len(byTeacher) == 0 {
		return metrics
	}

	loads := make([]float64, 0, len(byTeacher))
	details := make([]TeacherStat, 0, len(byTeacher))
	for id, t := range byTeacher {
		loads = append(loads, float64(t.sessions))
		details = append(details, TeacherStat{
			TeacherID:   id,
			TeacherName: t.name,
			Sessions:    t.sessions,
			Courses:     len(t.courses),
		})
	}

	avg := mean(loads)
	variance := varianceOf(loads, avg)

	metrics.LoadGini = gini(loads)
	metrics.LoadVariance = variance
	metrics.LoadStdDev = math.Sqrt(variance)
	metrics.AvgSessions = avg

	metrics.MaxSessions = details[0].Sessions
	metrics.MinSessions = details[0].Sessions
	for i := range details {
		if avg > 0 {
			details[i].Deviation = (float64(details[i].Sessions) - avg) / avg * 100
		}
		if details[i].Sessions > metrics.MaxSessions {
			metrics.MaxSessions = details[i].Sessions
		}
		if details[i].Sessions < metrics.MinSessions {
			metrics.MinSessions = details[i].Sessions
		}
	}

	// 按课时数降序，同课时按 ID 保持确定顺序
	sort.Slice(details, func(i, j int) bool {
		if details[i].Sessions != details[j].Sessions {
			return details[i].Sessions > details[j].Sessions
		}
		return details[i].TeacherID < details[j].TeacherID
	})
	metrics.TeacherDetails = details
	return metrics
}

// mean 计算平均值
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// varianceOf 计算方差
func varianceOf(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - avg
		sum += d * d
	}
	return sum / float64(len(values))
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	total := 0.0
	weighted := 0.0
	for i, v := range sorted {
		total += v
		weighted += float64(i+1) * v
	}
	if total == 0 {
		return 0
	}
	return (2*weighted - float64(n+1)*total) / (float64(n) * total)
}

// Package handler 提供HTTP请求处理器
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/engine"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// TimetableHandler 课表生成处理器
// 仓储字段均可为 nil：无数据库时只接受请求体携带的课程与约束，且只算不存
type TimetableHandler struct {
	engine      *engine.Engine
	defaults    model.GenerationConfig
	timetables  *repository.TimetableRepository
	courses     *repository.CourseRepository
	constraints *repository.ConstraintRepository
}

// NewTimetableHandler 创建课表处理器
func NewTimetableHandler(eng *engine.Engine, defaults model.GenerationConfig, timetables *repository.TimetableRepository) *TimetableHandler {
	return &TimetableHandler{
		engine:     eng,
		defaults:   defaults,
		timetables: timetables,
	}
}

// WithCatalog 挂接课程与约束仓储，启用数据库驱动的生成路径：
// 请求未携带课程列表时改为载入已发布的课程与约束
func (h *TimetableHandler) WithCatalog(courses *repository.CourseRepository, constraints *repository.ConstraintRepository) *TimetableHandler {
	h.courses = courses
	h.constraints = constraints
	return h
}

// CourseInput 课程输入
type CourseInput struct {
	ID          string `json:"id,omitempty"`
	Code        string `json:"course_code"`
	Name        string `json:"course_name"`
	Section     string `json:"section"`
	Credits     int    `json:"credits"`
	TeacherID   string `json:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	OwnerType   string `json:"owner_type,omitempty"`
	Published   bool   `json:"published,omitempty"`
}

// ConstraintInput 约束输入
type ConstraintInput struct {
	CourseName  string `json:"course_name"`
	Section     string `json:"section,omitempty"`
	Day         string `json:"day,omitempty"`
	PeriodRange string `json:"period_range"` // "P1-P3" / "1-3" / "P2"
	Type        string `json:"type"`         // hard / soft
	Description string `json:"description,omitempty"`
	OwnerType   string `json:"owner_type,omitempty"`
	Published   bool   `json:"published,omitempty"`
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	TimeLimitSeconds  int   `json:"time_limit_seconds,omitempty"`
	PeriodsPerDay     int   `json:"periods_per_day,omitempty"`
	LunchPeriod       *int  `json:"lunch_period,omitempty"` // nil 用默认值，0 表示无午休
	MaxSwapIterations *int  `json:"max_swap_iterations,omitempty"`
	Seed              int64 `json:"seed,omitempty"`
}

// GenerateRequest 课表生成请求
type GenerateRequest struct {
	Name        string            `json:"name,omitempty"`
	Courses     []CourseInput     `json:"courses"`
	Constraints []ConstraintInput `json:"constraints,omitempty"`
	Options     *GenerateOptions  `json:"options,omitempty"`
	Save        bool              `json:"save,omitempty"`
}

// GenerateResponse 课表生成响应
type GenerateResponse struct {
	Success     bool                                  `json:"success"`
	TimetableID string                                `json:"timetable_id,omitempty"`
	Entries     []model.Entry                         `json:"entries,omitempty"`
	Rows        map[string]map[model.Weekday][]string `json:"rows,omitempty"` // 班级 → 教学日 → 节次行
	Diagnostics *model.Diagnostics                    `json:"diagnostics"`
	Duration    string                                `json:"duration"`
}

// Generate 生成课表
func (h *TimetableHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	start := time.Now()

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}
	var courses []*model.Course
	var constraints []*model.Constraint
	var appErr *errors.AppError

	if len(req.Courses) > 0 {
		if courses, appErr = h.buildCourses(req.Courses); appErr != nil {
			respondError(w, appErr)
			return
		}
		if constraints, appErr = h.buildConstraints(req.Constraints); appErr != nil {
			respondError(w, appErr)
			return
		}
	} else {
		// 数据库驱动路径：载入已发布的课程与约束
		if h.courses == nil {
			respondError(w, errors.InvalidInput("courses", "课程列表不能为空"))
			return
		}
		var err error
		if courses, err = h.courses.ListPublished(r.Context()); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "载入课程失败"))
			return
		}
		if len(courses) == 0 {
			respondError(w, errors.InvalidInput("courses", "没有已发布的课程"))
			return
		}
		if constraints, err = h.constraints.ListPublished(r.Context()); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "载入约束失败"))
			return
		}
	}

	cfg := h.defaults
	if opts := req.Options; opts != nil {
		if opts.TimeLimitSeconds > 0 {
			cfg.TimeLimit = time.Duration(opts.TimeLimitSeconds) * time.Second
		}
		if opts.PeriodsPerDay > 0 {
			cfg.PeriodsPerDay = opts.PeriodsPerDay
		}
		if opts.LunchPeriod != nil {
			cfg.LunchPeriod = *opts.LunchPeriod
		}
		if opts.MaxSwapIterations != nil {
			cfg.MaxSwapIterations = *opts.MaxSwapIterations
		}
		if opts.Seed != 0 {
			cfg.Seed = opts.Seed
		}
	}

	genCtx, cancel := context.WithTimeout(r.Context(), cfg.TimeLimit+10*time.Second)
	defer cancel()

	result, err := h.engine.Generate(genCtx, courses, constraints, cfg)
	if err != nil {
		respondError(w, toAppError(err))
		return
	}

	diag := result.Diagnostics
	metrics.RecordGeneration(diag.Strategy, string(diag.Status), diag.Fallback, time.Since(start))
	metrics.RecordViolations(string(model.SeverityHard), len(diag.HardViolations()))
	metrics.RecordViolations(string(model.SeveritySoft), len(diag.Violations)-len(diag.HardViolations()))

	resp := GenerateResponse{
		Success:     diag.Status == model.StatusSolved || diag.Status == model.StatusPartialTimeLimit,
		Diagnostics: diag,
		Duration:    time.Since(start).String(),
	}

	if result.Grid != nil {
		resp.Entries = result.Grid.Entries()
		resp.Rows = make(map[string]map[model.Weekday][]string, len(result.Grid.Sections))
		for _, section := range result.Grid.Sections {
			resp.Rows[section] = result.Grid.Rows(section)
		}
		metrics.GetRegistry().GetGauge("paike_diversity_score").Set(diag.DiversityScore, "all")

		if req.Save && h.timetables != nil {
			record := &model.Timetable{
				BaseModel:   model.NewBaseModel(),
				Name:        req.Name,
				Status:      diag.Status,
				Strategy:    diag.Strategy,
				Fallback:    diag.Fallback,
				Score:       diag.DiversityScore,
				Diagnostics: diag,
			}
			record.FromGrid(result.Grid)
			if err := h.timetables.Create(r.Context(), record); err != nil {
				logger.Error().Err(err).Msg("保存课表失败")
			} else {
				resp.TimetableID = record.ID.String()
			}
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

// ValidateRequest 课表验证请求
type ValidateRequest struct {
	Entries     []model.Entry     `json:"entries"`
	Constraints []ConstraintInput `json:"constraints,omitempty"`
	Options     *GenerateOptions  `json:"options,omitempty"`
}

// ValidateResponse 课表验证响应
type ValidateResponse struct {
	Valid          bool              `json:"valid"`
	HardViolations int               `json:"hard_violations"`
	SoftViolations int               `json:"soft_violations"`
	Violations     []model.Violation `json:"violations,omitempty"`
}

// Validate 验证外部编辑后的课表
func (h *TimetableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	constraints, appErr := h.buildConstraints(req.Constraints)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	cfg := h.defaults
	if opts := req.Options; opts != nil {
		if opts.PeriodsPerDay > 0 {
			cfg.PeriodsPerDay = opts.PeriodsPerDay
		}
		if opts.LunchPeriod != nil {
			cfg.LunchPeriod = *opts.LunchPeriod
		}
	}

	grid, appErr := gridFromEntries(req.Entries, cfg)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	violations := h.engine.Validate(grid, constraints)
	hard := 0
	for _, v := range violations {
		if v.Severity == model.SeverityHard {
			hard++
		}
	}

	respondJSON(w, http.StatusOK, ValidateResponse{
		Valid:          hard == 0,
		HardViolations: hard,
		SoftViolations: len(violations) - hard,
		Violations:     violations,
	})
}

// buildCourses 把输入转换为课程模型
func (h *TimetableHandler) buildCourses(inputs []CourseInput) ([]*model.Course, *errors.AppError) {
	courses := make([]*model.Course, 0, len(inputs))
	for _, in := range inputs {
		course := &model.Course{
			BaseModel:   model.NewBaseModel(),
			Code:        in.Code,
			Name:        in.Name,
			Section:     in.Section,
			Credits:     in.Credits,
			TeacherName: in.TeacherName,
			OwnerScope:  model.OwnerScope(in.OwnerType),
			Published:   true,
		}
		if in.ID != "" {
			id, err := uuid.Parse(in.ID)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的课程ID格式: "+in.ID)
			}
			course.ID = id
		}
		if in.TeacherID != "" {
			tid, err := uuid.Parse(in.TeacherID)
			if err != nil {
				return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的教师ID格式: "+in.TeacherID)
			}
			course.TeacherID = &tid
		}
		courses = append(courses, course)
	}
	return courses, nil
}

// buildConstraints 把输入转换为约束模型
func (h *TimetableHandler) buildConstraints(inputs []ConstraintInput) ([]*model.Constraint, *errors.AppError) {
	constraints := make([]*model.Constraint, 0, len(inputs))
	for _, in := range inputs {
		periods, err := model.ParsePeriodRange(in.PeriodRange)
		if err != nil {
			return nil, toAppError(err)
		}

		c := &model.Constraint{
			BaseModel:   model.NewBaseModel(),
			CourseName:  in.CourseName,
			Section:     in.Section,
			Periods:     periods,
			Description: in.Description,
			OwnerScope:  model.OwnerScope(in.OwnerType),
			Published:   true,
		}

		severity, ok := model.ParseSeverity(in.Type)
		if !ok {
			return nil, errors.InvalidInput("type", "约束级别必须为 hard 或 soft")
		}
		c.Severity = severity

		if in.Day != "" {
			day, ok := model.ParseWeekday(in.Day)
			if !ok {
				return nil, errors.InvalidInput("day", "无效的教学日: "+in.Day)
			}
			c.Day = day
		}

		constraints = append(constraints, c)
	}
	return constraints, nil
}

// gridFromEntries 从扁平条目重建网格
func gridFromEntries(entries []model.Entry, cfg model.GenerationConfig) (*model.Grid, *errors.AppError) {
	sectionSet := make(map[string]struct{})
	for _, e := range entries {
		sectionSet[e.Section] = struct{}{}
	}
	sections := make([]string, 0, len(sectionSet))
	for s := range sectionSet {
		sections = append(sections, s)
	}

	days := cfg.Days
	if len(days) == 0 {
		days = model.DefaultDays()
	}

	grid := model.NewGrid(days, cfg.PeriodsPerDay, cfg.LunchPeriod, sections)
	for _, e := range entries {
		if e.Course == nil {
			return nil, errors.InvalidInput("entries", "条目缺少课程")
		}
		if !grid.Set(e.Day, e.Period, e.Section, e.Course) {
			return nil, errors.InvalidInput("entries",
				"条目无法放置（越界、午休或重复占用）: "+string(e.Day))
		}
	}
	return grid, nil
}

package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// ConstraintHandler 排课约束维护处理器
type ConstraintHandler struct {
	constraints *repository.ConstraintRepository
}

// NewConstraintHandler 创建约束处理器
func NewConstraintHandler(constraints *repository.ConstraintRepository) *ConstraintHandler {
	return &ConstraintHandler{constraints: constraints}
}

// Collection 约束集合端点：GET 列表 / POST 创建
func (h *ConstraintHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/POST方法"))
	}
}

// Item 单个约束端点：GET / PUT / DELETE
func (h *ConstraintHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(pathTail(r.URL.Path))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的约束ID格式"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		c, err := h.constraints.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, errors.NotFound("约束", id.String()))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "constraint": c})
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		if err := h.constraints.Delete(r.Context(), id); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除约束失败"))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/PUT/DELETE方法"))
	}
}

func (h *ConstraintHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter()
	if section := q.Get("section"); section != "" {
		filter = filter.WithSection(section)
	}
	if severity := q.Get("type"); severity != "" {
		filter.Severity = severity
	}
	if published, err := strconv.ParseBool(q.Get("published")); err == nil {
		filter = filter.WithPublished(published)
	}
	if search := q.Get("search"); search != "" {
		filter.Search = search
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter = filter.WithLimit(limit)
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter = filter.WithOffset(offset)
	}

	constraints, total, err := h.constraints.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询约束失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   total,
		"items":   constraints,
	})
}

func (h *ConstraintHandler) create(w http.ResponseWriter, r *http.Request) {
	c, appErr := h.constraintFromBody(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	if err := h.constraints.Create(r.Context(), c); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建约束失败"))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "constraint": c})
}

func (h *ConstraintHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	c, appErr := h.constraintFromBody(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	c.ID = id

	if err := h.constraints.Update(r.Context(), c); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新约束失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "constraint": c})
}

// constraintFromBody 解析并校验约束输入
func (h *ConstraintHandler) constraintFromBody(r *http.Request) (*model.Constraint, *errors.AppError) {
	var in ConstraintInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}

	if in.CourseName == "" {
		return nil, errors.InvalidInput("course_name", "课程名不能为空")
	}

	periods, err := model.ParsePeriodRange(in.PeriodRange)
	if err != nil {
		return nil, toAppError(err)
	}

	severity, ok := model.ParseSeverity(in.Type)
	if !ok {
		return nil, errors.InvalidInput("type", "约束类型必须是 hard 或 soft: "+in.Type)
	}

	c := &model.Constraint{
		BaseModel:   model.NewBaseModel(),
		CourseName:  in.CourseName,
		Section:     in.Section,
		Periods:     periods,
		Severity:    severity,
		Description: in.Description,
		OwnerScope:  model.OwnerScope(in.OwnerType),
		Published:   in.Published,
	}
	if in.Day != "" {
		day, ok := model.ParseWeekday(in.Day)
		if !ok {
			return nil, errors.InvalidInput("day", "无法识别的教学日: "+in.Day)
		}
		c.Day = day
	}
	return c, nil
}

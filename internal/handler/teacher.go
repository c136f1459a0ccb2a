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

// TeacherHandler 教师目录处理器
type TeacherHandler struct {
	teachers *repository.TeacherRepository
}

// NewTeacherHandler 创建教师处理器
func NewTeacherHandler(teachers *repository.TeacherRepository) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// TeacherInput 教师输入
type TeacherInput struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
}

// Collection 教师集合端点：GET 列表 / POST 创建
func (h *TeacherHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/POST方法"))
	}
}

// Item 单个教师端点：GET / PUT / DELETE
func (h *TeacherHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(pathTail(r.URL.Path))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的教师ID格式"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		teacher, err := h.teachers.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, errors.NotFound("教师", id.String()))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "teacher": teacher})
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		if err := h.teachers.Delete(r.Context(), id); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除教师失败"))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/PUT/DELETE方法"))
	}
}

func (h *TeacherHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter()
	if search := q.Get("search"); search != "" {
		filter.Search = search
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter = filter.WithLimit(limit)
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter = filter.WithOffset(offset)
	}

	teachers, total, err := h.teachers.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询教师失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   total,
		"items":   teachers,
	})
}

func (h *TeacherHandler) create(w http.ResponseWriter, r *http.Request) {
	teacher, appErr := teacherFromBody(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	// 用户名唯一
	if existing, err := h.teachers.GetByUsername(r.Context(), teacher.Username); err == nil && existing != nil {
		respondError(w, errors.New(errors.CodeAlreadyExists, "用户名已存在: "+teacher.Username))
		return
	}

	if err := h.teachers.Create(r.Context(), teacher); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建教师失败"))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "teacher": teacher})
}

func (h *TeacherHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	teacher, appErr := teacherFromBody(r)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	teacher.ID = id

	if err := h.teachers.Update(r.Context(), teacher); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新教师失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "teacher": teacher})
}

func teacherFromBody(r *http.Request) (*model.Teacher, *errors.AppError) {
	var in TeacherInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败")
	}
	if in.Username == "" {
		return nil, errors.InvalidInput("username", "用户名不能为空")
	}
	if in.FullName == "" {
		return nil, errors.InvalidInput("full_name", "姓名不能为空")
	}
	return &model.Teacher{
		BaseModel: model.NewBaseModel(),
		Username:  in.Username,
		FullName:  in.FullName,
		Email:     in.Email,
	}, nil
}

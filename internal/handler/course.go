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

// CourseHandler 课程维护处理器
type CourseHandler struct {
	courses  *repository.CourseRepository
	teachers *repository.TeacherRepository
}

// NewCourseHandler 创建课程处理器
func NewCourseHandler(courses *repository.CourseRepository, teachers *repository.TeacherRepository) *CourseHandler {
	return &CourseHandler{courses: courses, teachers: teachers}
}

// Collection 课程集合端点：GET 列表 / POST 创建
func (h *CourseHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/POST方法"))
	}
}

// Item 单个课程端点：GET / PUT / DELETE
func (h *CourseHandler) Item(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(pathTail(r.URL.Path))
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的课程ID格式"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		course, err := h.courses.GetByID(r.Context(), id)
		if err != nil {
			respondError(w, errors.NotFound("课程", id.String()))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "course": course})
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		if err := h.courses.Delete(r.Context(), id); err != nil {
			respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "删除课程失败"))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	default:
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET/PUT/DELETE方法"))
	}
}

func (h *CourseHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.DefaultListFilter()
	if section := q.Get("section"); section != "" {
		filter = filter.WithSection(section)
	}
	if published, err := strconv.ParseBool(q.Get("published")); err == nil {
		filter = filter.WithPublished(published)
	}
	if teacherID, err := uuid.Parse(q.Get("teacher_id")); err == nil {
		filter = filter.WithTeacher(teacherID)
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

	courses, total, err := h.courses.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询课程失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   total,
		"items":   courses,
	})
}

func (h *CourseHandler) create(w http.ResponseWriter, r *http.Request) {
	var in CourseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	course, appErr := h.courseFromInput(r, &in)
	if appErr != nil {
		respondError(w, appErr)
		return
	}

	// 同班级下课程代码唯一
	if existing, err := h.courses.GetByCode(r.Context(), course.Code, course.Section); err == nil && existing != nil {
		respondError(w, errors.New(errors.CodeAlreadyExists,
			"课程已存在: "+course.Code+" / "+course.Section))
		return
	}

	if err := h.courses.Create(r.Context(), course); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "创建课程失败"))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "course": course})
}

func (h *CourseHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var in CourseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
		return
	}

	course, appErr := h.courseFromInput(r, &in)
	if appErr != nil {
		respondError(w, appErr)
		return
	}
	course.ID = id

	if err := h.courses.Update(r.Context(), course); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "更新课程失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "course": course})
}

// courseFromInput 校验输入并解析教师弱引用
func (h *CourseHandler) courseFromInput(r *http.Request, in *CourseInput) (*model.Course, *errors.AppError) {
	ve := &errors.ValidationErrors{}
	if in.Code == "" {
		ve.Add("course_code", "课程代码不能为空")
	}
	if in.Section == "" {
		ve.Add("section", "班级不能为空")
	}
	if in.Credits <= 0 {
		ve.Add("credits", "学分数必须为正")
	}
	if ve.HasErrors() {
		return nil, ve.ToAppError()
	}

	course := &model.Course{
		BaseModel:  model.NewBaseModel(),
		Code:       in.Code,
		Name:       in.Name,
		Section:    in.Section,
		Credits:    in.Credits,
		OwnerScope: model.OwnerScope(in.OwnerType),
		Published:  in.Published,
	}

	if in.TeacherID != "" {
		tid, err := uuid.Parse(in.TeacherID)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInvalidInput, "无效的教师ID格式: "+in.TeacherID)
		}
		teacher, err := h.teachers.GetByID(r.Context(), tid)
		if err != nil {
			return nil, errors.NotFound("教师", in.TeacherID)
		}
		course.TeacherID = &tid
		course.TeacherName = teacher.FullName
	}
	return course, nil
}

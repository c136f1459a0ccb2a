package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/repository"
	"github.com/paike/paike/pkg/errors"
)

// HistoryHandler 历史课表处理器
type HistoryHandler struct {
	timetables *repository.TimetableRepository
}

// NewHistoryHandler 创建历史课表处理器
func NewHistoryHandler(timetables *repository.TimetableRepository) *HistoryHandler {
	return &HistoryHandler{timetables: timetables}
}

// List 查询历史课表批次
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	filter := repository.DefaultListFilter()
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		filter = filter.WithLimit(limit)
	}
	if offset, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && offset >= 0 {
		filter = filter.WithOffset(offset)
	}

	timetables, total, err := h.timetables.List(r.Context(), filter)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "查询历史课表失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"total":   total,
		"items":   timetables,
	})
}

// Get 获取单个课表批次
// 路径形如 /api/v1/timetables/{id}，id 为 "active" 时返回当前生效课表
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持GET方法"))
		return
	}

	idToken := pathTail(r.URL.Path)
	if idToken == "active" {
		t, err := h.timetables.GetActive(r.Context())
		if err != nil {
			respondError(w, errors.Wrap(err, errors.CodeNotFound, "没有生效课表"))
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "timetable": t})
		return
	}

	id, err := uuid.Parse(idToken)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的课表ID格式: "+idToken))
		return
	}

	t, err := h.timetables.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, errors.NotFound("课表", idToken))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true, "timetable": t})
}

// Activate 将某个批次设为生效课表
// 路径形如 /api/v1/timetables/{id}/activate
func (h *HistoryHandler) Activate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/activate")
	idToken := pathTail(path)
	id, err := uuid.Parse(idToken)
	if err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "无效的课表ID格式: "+idToken))
		return
	}

	if err := h.timetables.Activate(r.Context(), id); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeDatabaseError, "设置生效课表失败"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// pathTail 返回路径最后一段
func pathTail(path string) string {
	path = strings.TrimSuffix(path, "/")
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}

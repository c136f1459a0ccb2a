package handler

import (
	"encoding/json"
	"net/http"

	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/stats"
)

// StatsHandler 课表统计处理器
type StatsHandler struct {
	analyzer *stats.TimetableAnalyzer
	defaults model.GenerationConfig
}

// NewStatsHandler 创建统计处理器
func NewStatsHandler(defaults model.GenerationConfig) *StatsHandler {
	return &StatsHandler{
		analyzer: stats.NewTimetableAnalyzer(),
		defaults: defaults,
	}
}

// StatsRequest 统计请求
type StatsRequest struct {
	Entries []model.Entry    `json:"entries"`
	Options *GenerateOptions `json:"options,omitempty"`
}

// StatsResponse 统计响应
type StatsResponse struct {
	Success bool                    `json:"success"`
	Data    *stats.TimetableMetrics `json:"data,omitempty"`
}

// Analyze 分析课表的利用率、多样性与教师负载
func (h *StatsHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, errors.New(errors.CodeInvalidInput, "仅支持POST方法"))
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errors.Wrap(err, errors.CodeInvalidInput, "解析请求失败"))
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

	data := h.analyzer.Analyze(grid)
	for section, rate := range data.SectionUtilization {
		metrics.GetRegistry().GetGauge("paike_utilization_rate").Set(rate, section)
	}

	respondJSON(w, http.StatusOK, StatsResponse{Success: true, Data: data})
}

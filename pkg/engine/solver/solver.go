// Package solver 提供排课求解策略
package solver

import (
	"context"
	"time"

	"github.com/paike/paike/pkg/engine/payload"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// Solver 求解器接口
// 两种实现：优化求解器与贪心降级求解器，契约一致：载荷 → 网格或不可行报告
// 任何返回的网格都按构造满足全部硬约束
type Solver interface {
	// Solve 在载荷配置的时限内求解
	Solve(ctx context.Context, p *payload.Payload) (*Result, error)

	// Name 返回求解器名称
	Name() string
}

// Result 求解结果
type Result struct {
	Grid       *model.Grid             `json:"-"`
	Status     model.SolveStatus       `json:"status"`
	Strategy   string                  `json:"strategy"`
	Shortfalls []model.CourseShortfall `json:"shortfalls,omitempty"`
	Statistics *Statistics             `json:"statistics"`
	Duration   time.Duration           `json:"duration"`
	Message    string                  `json:"message,omitempty"`
}

// Statistics 求解统计
type Statistics struct {
	PlacedSessions   int     `json:"placed_sessions"`
	RequiredSessions int     `json:"required_sessions"`
	FillRate         float64 `json:"fill_rate"`
	SoftPenalty      int     `json:"soft_penalty"`
	Nodes            int     `json:"nodes"`
	Optimal          bool    `json:"optimal"`
}

// Backend 求解后端选择
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendCP     Backend = "cp"
	BackendGreedy Backend = "greedy"
)

// Engage 按能力探测选择求解策略
// 探测在启动时执行一次；优化后端不可用时静默降级为贪心求解器，
// 第二个返回值标记是否发生降级（调用方据此提示质量保证降低）
func Engage(backend Backend) (Solver, bool) {
	log := logger.NewEngineLogger()
	switch backend {
	case BackendGreedy:
		return NewGreedySolver(), true
	case BackendCP:
		return NewCPSolver(), false
	default:
		cp := NewCPSolver()
		if err := cp.Probe(); err != nil {
			log.FallbackEngaged(err.Error())
			return NewGreedySolver(), true
		}
		return cp, false
	}
}

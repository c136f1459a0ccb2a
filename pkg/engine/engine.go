// Package engine 排课引擎编排器
// 串联 载荷构建 → 求解 → 多样性优化 → 验证，
// 持有取消与时限控制，是引擎对外的唯一入口。
// 引擎是纯计算：给定载荷产出网格与诊断，不拥有存储与界面
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/engine/optimizer"
	"github.com/paike/paike/pkg/engine/payload"
	"github.com/paike/paike/pkg/engine/solver"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/validator"
)

// Phase 生成状态机的阶段
// Building → Solving → Diversifying → Validating → Done，
// Solving 与 Diversifying 可被取消信号打断进入 Cancelled 终态
type Phase string

const (
	PhaseBuilding     Phase = "building"
	PhaseSolving      Phase = "solving"
	PhaseDiversifying Phase = "diversifying"
	PhaseValidating   Phase = "validating"
	PhaseDone         Phase = "done"
	PhaseCancelled    Phase = "cancelled"
)

// Options 引擎选项
type Options struct {
	Backend   solver.Backend
	Weights   payload.Weights
	Optimizer *optimizer.Config
}

// Engine 排课引擎
// 每次调用的输入与中间值均为局部持有，可在多个 goroutine 上
// 并发执行互不相关的生成请求
type Engine struct {
	builder  *payload.Builder
	solver   solver.Solver
	fallback bool
	optCfg   *optimizer.Config
	valid    *validator.Validator
	logger   *logger.EngineLogger
}

// New 创建引擎，按能力探测选定求解策略
func New(opts Options) *Engine {
	if opts.Backend == "" {
		opts.Backend = solver.BackendAuto
	}
	if opts.Weights == (payload.Weights{}) {
		opts.Weights = payload.DefaultWeights()
	}
	if opts.Optimizer == nil {
		opts.Optimizer = optimizer.DefaultConfig()
	}
	slv, fallback := solver.Engage(opts.Backend)
	return &Engine{
		builder:  payload.NewBuilder(opts.Weights),
		solver:   slv,
		fallback: fallback,
		optCfg:   opts.Optimizer,
		valid:    validator.New(),
		logger:   logger.NewEngineLogger(),
	}
}

// Strategy 返回当前求解策略名称
func (e *Engine) Strategy() string {
	return e.solver.Name()
}

// IsFallback 是否处于贪心降级
func (e *Engine) IsFallback() bool {
	return e.fallback
}

// Validate 对任意网格做一次约束检查
// 供外部编辑后的课表复检，只产出违反列表，不修改网格
func (e *Engine) Validate(grid *model.Grid, constraints []*model.Constraint) []model.Violation {
	return e.valid.Validate(grid, constraints)
}

// Result 生成结果：网格（可能为空）加诊断信息
type Result struct {
	Grid        *model.Grid        `json:"-"`
	Diagnostics *model.Diagnostics `json:"diagnostics"`
}

// Generate 生成课表
// 构建失败（ValidationError / ConstraintConflictError）直接返回错误；
// Infeasible、PartialTimeLimit、Cancelled 是预期结果而非错误，体现在诊断状态里
func (e *Engine) Generate(ctx context.Context, courses []*model.Course, constraints []*model.Constraint, cfg model.GenerationConfig) (*Result, error) {
	startTime := time.Now()
	batchID := uuid.New().String()
	e.logger.StartGeneration(batchID, len(courses), len(constraints))

	// Building
	p, err := e.builder.Build(courses, constraints, cfg)
	if err != nil {
		e.logger.ConstraintViolation("build", err.Error())
		return nil, err
	}

	// 取消检查点：进入 Solving 之前
	if ctx.Err() != nil {
		return e.cancelled(batchID, startTime), nil
	}

	// Solving
	res, err := e.solver.Solve(ctx, p)
	if err != nil {
		if ctx.Err() != nil {
			return e.cancelled(batchID, startTime), nil
		}
		return nil, err
	}
	if res.Status == model.StatusInfeasible {
		diag := &model.Diagnostics{
			Status:        model.StatusInfeasible,
			Strategy:      res.Strategy,
			Fallback:      e.fallback,
			Shortfalls:    res.Shortfalls,
			SolveDuration: res.Duration,
			Message:       res.Message,
		}
		e.logger.GenerationComplete(batchID, string(diag.Status), time.Since(startTime), 0)
		return &Result{Diagnostics: diag}, nil
	}

	// Diversifying：仅 Solved / PartialTimeLimit 的网格进入
	optCfg := *e.optCfg
	if cfg.MaxSwapIterations >= 0 {
		optCfg.MaxIterations = cfg.MaxSwapIterations
	}
	if cfg.Seed != 0 {
		optCfg.Seed = cfg.Seed
	}
	improved := optimizer.NewDiversityOptimizer(&optCfg).Improve(ctx, res.Grid, p.Constraints)
	if ctx.Err() != nil {
		return e.cancelled(batchID, startTime), nil
	}

	// Validating：只产出诊断，从不使运行失败
	violations := e.valid.Validate(improved.Grid, p.Constraints)

	diag := &model.Diagnostics{
		Status:         res.Status,
		Strategy:       res.Strategy,
		Fallback:       e.fallback,
		Violations:     violations,
		Shortfalls:     res.Shortfalls,
		DiversityScore: improved.Score,
		SwapIterations: improved.Iterations,
		SolveDuration:  res.Duration,
		Message:        res.Message,
	}
	e.logger.GenerationComplete(batchID, string(diag.Status), time.Since(startTime), improved.Score)
	return &Result{Grid: improved.Grid, Diagnostics: diag}, nil
}

// cancelled 组装取消终态的结果
func (e *Engine) cancelled(batchID string, startTime time.Time) *Result {
	e.logger.GenerationComplete(batchID, string(model.StatusCancelled), time.Since(startTime), 0)
	return &Result{
		Diagnostics: &model.Diagnostics{
			Status:   model.StatusCancelled,
			Strategy: e.solver.Name(),
			Fallback: e.fallback,
			Message:  "生成被调用方取消",
		},
	}
}

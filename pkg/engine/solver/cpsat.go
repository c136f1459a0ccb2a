package solver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/engine/payload"
	"github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// CPSolver 优化求解器
// 在域限制后的决策变量上做分支定界搜索：
// 硬约束是结构性的域限制而非目标项，任何返回的解按构造满足硬约束；
// 目标为软约束加权代价最小（利用率奖励在课时数等式约束下为常量）。
// 三种结局：时限内找到最优/可行解（Solved）、模型不可行（Infeasible）、
// 时限耗尽但持有未证最优的可行解（PartialTimeLimit）
type CPSolver struct {
	logger *logger.EngineLogger

	// 每多少个搜索节点检查一次时限与取消信号
	checkInterval int
}

// NewCPSolver 创建优化求解器
func NewCPSolver() *CPSolver {
	return &CPSolver{
		logger:        logger.NewEngineLogger(),
		checkInterval: 1024,
	}
}

// Name 返回求解器名称
func (s *CPSolver) Name() string {
	return "CPSolver"
}

// Probe 能力自检：对一个极小模型完成一次求解
// 在启动时执行一次，失败则调用方降级到贪心求解器
func (s *CPSolver) Probe() error {
	course := &model.Course{
		BaseModel: model.NewBaseModel(),
		Code:      "PROBE",
		Name:      "probe",
		Section:   "A",
		Credits:   1,
	}
	p := &payload.Payload{
		Courses: []*payload.CourseVars{{
			Course:   course,
			Sessions: 1,
			Allowed:  []model.Slot{{Day: model.Monday, Period: 1}},
		}},
		Sections: []string{"A"},
		Config: model.GenerationConfig{
			PeriodsPerDay: 1,
			Days:          []model.Weekday{model.Monday},
			TimeLimit:     time.Second,
		},
	}
	res, err := s.Solve(context.Background(), p)
	if err != nil {
		return errors.Wrap(err, errors.CodeSolverUnavailable, "求解器自检失败")
	}
	if res.Status != model.StatusSolved {
		return errors.New(errors.CodeSolverUnavailable, fmt.Sprintf("求解器自检状态异常: %s", res.Status))
	}
	return nil
}

// teacherSlot 教师占用键
type teacherSlot struct {
	slot    model.Slot
	teacher uuid.UUID
}

// search 搜索状态
// 显式状态 + 有界递归，当前最优解作为字段而非全局单例
type search struct {
	payload *payload.Payload
	order   []*payload.CourseVars
	penalty [][]int // 与 order 对齐：每课程每候选时段的软约束代价

	sectionBusy map[model.CellKey]struct{}
	teacherBusy map[teacherSlot]struct{}
	current     [][]int // 每课程已选时段索引

	best        [][]int
	bestPenalty int
	found       bool

	nodes         int
	checkInterval int
	deadline      time.Time
	ctx           context.Context
	stopped       bool // 时限或取消触发
	optimal       bool // 找到零代价解，可证最优
}

// Solve 分支定界求解
func (s *CPSolver) Solve(ctx context.Context, p *payload.Payload) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		Strategy:   s.Name(),
		Statistics: &Statistics{RequiredSessions: p.RequiredSessions()},
	}

	timeLimit := p.Config.TimeLimit
	if timeLimit <= 0 {
		timeLimit = 20 * time.Second
	}

	st := &search{
		payload:       p,
		sectionBusy:   make(map[model.CellKey]struct{}),
		teacherBusy:   make(map[teacherSlot]struct{}),
		checkInterval: s.checkInterval,
		deadline:      startTime.Add(timeLimit),
		ctx:           ctx,
	}

	// 域最紧的课程优先分支，其余按课程代码保持确定顺序
	st.order = make([]*payload.CourseVars, len(p.Courses))
	copy(st.order, p.Courses)
	sort.SliceStable(st.order, func(i, j int) bool {
		si := len(st.order[i].Allowed) - st.order[i].Sessions
		sj := len(st.order[j].Allowed) - st.order[j].Sessions
		if si != sj {
			return si < sj
		}
		return st.order[i].Course.Code < st.order[j].Course.Code
	})

	st.penalty = make([][]int, len(st.order))
	st.current = make([][]int, len(st.order))
	for i, cv := range st.order {
		st.penalty[i] = make([]int, len(cv.Allowed))
		for j, slot := range cv.Allowed {
			st.penalty[i][j] = p.SlotPenalty(cv.Course, slot)
		}
		st.current[i] = make([]int, 0, cv.Sessions)
	}

	st.run(0, 0)

	result.Duration = time.Since(startTime)
	result.Statistics.Nodes = st.nodes

	if err := ctx.Err(); err != nil {
		result.Status = model.StatusCancelled
		return result, err
	}

	if !st.found {
		result.Status = model.StatusInfeasible
		if st.stopped {
			result.Message = "时限内未找到可行解"
		} else {
			result.Message = "硬约束下无可行解"
			result.Shortfalls = s.analyzeShortfalls(p)
		}
		return result, nil
	}

	result.Grid = st.materialize()
	result.Statistics.PlacedSessions = result.Statistics.RequiredSessions
	result.Statistics.FillRate = 100
	result.Statistics.SoftPenalty = st.bestPenalty
	result.Statistics.Optimal = st.optimal || !st.stopped

	if result.Statistics.Optimal || !st.stopped {
		result.Status = model.StatusSolved
	} else {
		result.Status = model.StatusPartialTimeLimit
		result.Message = "时限耗尽，返回未证最优的可行解"
	}
	return result, nil
}

// run 递归分支：courseIdx 课程的第 sessionIdx 节课
// 同一课程内时段索引递增，消除对称的等价放置
func (st *search) run(courseIdx, accumulated int) {
	if st.stopped {
		return
	}
	if st.found && accumulated >= st.bestPenalty {
		return // 剪枝：代价只增不减
	}
	if courseIdx == len(st.order) {
		st.record(accumulated)
		return
	}
	st.branch(courseIdx, 0, 0, accumulated)
}

// branch 为一门课程选择剩余课时的时段
func (st *search) branch(courseIdx, sessionIdx, minSlot, accumulated int) {
	if st.stopped {
		return
	}
	cv := st.order[courseIdx]
	if sessionIdx == cv.Sessions {
		st.run(courseIdx+1, accumulated)
		return
	}
	remaining := cv.Sessions - sessionIdx
	for idx := minSlot; idx <= len(cv.Allowed)-remaining; idx++ {
		st.nodes++
		if st.nodes%st.checkInterval == 0 {
			if st.ctx.Err() != nil || time.Now().After(st.deadline) {
				st.stopped = true
				return
			}
		}

		slot := cv.Allowed[idx]
		next := accumulated + st.penalty[courseIdx][idx]
		if st.found && next >= st.bestPenalty {
			continue
		}

		cell := model.CellKey{Day: slot.Day, Period: slot.Period, Section: cv.Course.Section}
		if _, busy := st.sectionBusy[cell]; busy {
			continue
		}
		var tkey teacherSlot
		hasTeacher := cv.Course.TeacherID != nil
		if hasTeacher {
			tkey = teacherSlot{slot: slot, teacher: *cv.Course.TeacherID}
			if _, busy := st.teacherBusy[tkey]; busy {
				continue
			}
		}

		st.sectionBusy[cell] = struct{}{}
		if hasTeacher {
			st.teacherBusy[tkey] = struct{}{}
		}
		st.current[courseIdx] = append(st.current[courseIdx], idx)

		st.branch(courseIdx, sessionIdx+1, idx+1, next)

		st.current[courseIdx] = st.current[courseIdx][:len(st.current[courseIdx])-1]
		delete(st.sectionBusy, cell)
		if hasTeacher {
			delete(st.teacherBusy, tkey)
		}
		if st.stopped || st.optimal {
			return
		}
	}
}

// record 记录完整解
func (st *search) record(penalty int) {
	if st.found && penalty >= st.bestPenalty {
		return
	}
	st.best = make([][]int, len(st.current))
	for i, slots := range st.current {
		st.best[i] = make([]int, len(slots))
		copy(st.best[i], slots)
	}
	st.bestPenalty = penalty
	st.found = true
	if penalty == 0 {
		// 代价下界为零，当前解可证最优，停止搜索
		st.optimal = true
	}
}

// materialize 把最优解物化为网格
func (st *search) materialize() *model.Grid {
	grid := st.payload.NewGrid()
	for i, cv := range st.order {
		for _, idx := range st.best[i] {
			slot := cv.Allowed[idx]
			grid.Set(slot.Day, slot.Period, cv.Course.Section, cv.Course)
		}
	}
	return grid
}

// analyzeShortfalls 不可行时做一次松弛放置，找出放不满课时的课程
func (s *CPSolver) analyzeShortfalls(p *payload.Payload) []model.CourseShortfall {
	greedy := NewGreedySolver()
	res, err := greedy.Solve(context.Background(), p)
	if err != nil || res == nil {
		return nil
	}
	return res.Shortfalls
}

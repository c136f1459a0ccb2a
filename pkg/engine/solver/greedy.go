package solver

import (
	"context"
	"fmt"
	"time"

	"github.com/paike/paike/pkg/engine/payload"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// GreedySolver 贪心降级求解器
// 仅在优化后端不可用时使用：按配置的教学日顺序、节次升序，
// 把每门课的课时放入硬约束窗口内最早的可用时段，
// 保证硬约束满足，但不做软约束与多样性优化，也没有最优性保证
type GreedySolver struct {
	logger *logger.EngineLogger
}

// NewGreedySolver 创建贪心求解器
func NewGreedySolver() *GreedySolver {
	return &GreedySolver{logger: logger.NewEngineLogger()}
}

// Name 返回求解器名称
func (s *GreedySolver) Name() string {
	return "GreedySolver"
}

// Solve 贪心放置
func (s *GreedySolver) Solve(ctx context.Context, p *payload.Payload) (*Result, error) {
	startTime := time.Now()

	result := &Result{
		Strategy:   s.Name(),
		Statistics: &Statistics{RequiredSessions: p.RequiredSessions()},
	}

	grid := p.NewGrid()
	// 教师占用：(教学日, 节次) → 教师
	teacherBusy := make(map[model.Slot]map[string]struct{})

	placed := 0
	for _, cv := range p.Courses {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		count := 0
		teacherBlocked := false
		for _, slot := range cv.Allowed {
			if count >= cv.Sessions {
				break
			}
			if grid.Get(slot.Day, slot.Period, cv.Course.Section) != nil {
				continue
			}
			if s.teacherOccupied(teacherBusy, slot, cv.Course) {
				teacherBlocked = true
				continue
			}
			if !grid.Set(slot.Day, slot.Period, cv.Course.Section, cv.Course) {
				continue
			}
			s.markTeacher(teacherBusy, slot, cv.Course)
			count++
			placed++
		}

		if count < cv.Sessions {
			reason := "窗口内可用时段不足"
			if teacherBlocked {
				reason = "教师同时段已被另一门课程占用"
			}
			result.Shortfalls = append(result.Shortfalls, model.CourseShortfall{
				CourseCode: cv.Course.Code,
				CourseName: cv.Course.Name,
				Section:    cv.Course.Section,
				Required:   cv.Sessions,
				Placed:     count,
				Reason:     reason,
			})
			s.logger.ConstraintViolation("session_count", fmt.Sprintf(
				"课程 %s 仅放置 %d/%d 节", cv.Course.Label(), count, cv.Sessions))
		}
	}

	result.Grid = grid
	result.Duration = time.Since(startTime)
	result.Statistics.PlacedSessions = placed
	if result.Statistics.RequiredSessions > 0 {
		result.Statistics.FillRate = float64(placed) / float64(result.Statistics.RequiredSessions) * 100
	}

	if len(result.Shortfalls) > 0 {
		result.Status = model.StatusInfeasible
		result.Message = fmt.Sprintf("%d 门课程未能放满所需课时", len(result.Shortfalls))
	} else {
		result.Status = model.StatusSolved
	}
	return result, nil
}

func (s *GreedySolver) teacherOccupied(busy map[model.Slot]map[string]struct{}, slot model.Slot, course *model.Course) bool {
	if course.TeacherID == nil {
		return false
	}
	set := busy[slot]
	if set == nil {
		return false
	}
	_, occupied := set[course.TeacherID.String()]
	return occupied
}

func (s *GreedySolver) markTeacher(busy map[model.Slot]map[string]struct{}, slot model.Slot, course *model.Course) {
	if course.TeacherID == nil {
		return
	}
	if busy[slot] == nil {
		busy[slot] = make(map[string]struct{})
	}
	busy[slot][course.TeacherID.String()] = struct{}{}
}

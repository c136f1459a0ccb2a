// Package optimizer 提供课表多样性优化算法
package optimizer

import (
	"context"
	"math/rand"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/validator"
)

// Config 优化配置
type Config struct {
	MaxIterations int     `json:"max_iterations"` // 最大迭代次数（考察的候选交换数）
	Seed          int64   `json:"seed"`           // 随机种子，固定种子下结果可复现
	VarietyWeight float64 `json:"variety_weight"` // 每日课程种类的权重
	RepeatPenalty float64 `json:"repeat_penalty"` // 相邻节次重复课程的惩罚
}

// DefaultConfig 默认优化配置
func DefaultConfig() *Config {
	return &Config{
		MaxIterations: 500,
		Seed:          1,
		VarietyWeight: 1.0,
		RepeatPenalty: 1.0,
	}
}

// Result 优化结果
type Result struct {
	Grid       *model.Grid
	Score      float64
	InitScore  float64
	Iterations int
	Accepted   int
}

// DiversityOptimizer 多样性优化器
// 爬山式局部搜索：仅接受严格提升分数且硬约束保持满足的交换，
// 接受序列上分数单调不减，终点只是局部最优
type DiversityOptimizer struct {
	config    *Config
	validator *validator.Validator
	logger    *logger.EngineLogger
}

// NewDiversityOptimizer 创建多样性优化器
func NewDiversityOptimizer(config *Config) *DiversityOptimizer {
	if config == nil {
		config = DefaultConfig()
	}
	return &DiversityOptimizer{
		config:    config,
		validator: validator.New(),
		logger:    logger.NewEngineLogger(),
	}
}

// Score 计算多样性分数
// (a) 每个 (教学日, 班级) 内不同课程数越多越好；
// (b) 同一班级节次序列中相邻重复的课程计入惩罚
func (o *DiversityOptimizer) Score(grid *model.Grid) float64 {
	var variety, repeats float64

	for _, section := range grid.Sections {
		for _, day := range grid.Days {
			distinct := make(map[string]struct{})
			var prev *model.Course
			for p := 1; p <= grid.Periods; p++ {
				if grid.IsLunch(p) {
					prev = nil // 午休打断相邻关系
					continue
				}
				course := grid.Get(day, p, section)
				if course == nil {
					prev = nil
					continue
				}
				distinct[course.Code] = struct{}{}
				if prev != nil && prev.ID == course.ID {
					repeats++
				}
				prev = course
			}
			variety += float64(len(distinct))
		}
	}

	return o.config.VarietyWeight*variety - o.config.RepeatPenalty*repeats
}

// Improve 局部搜索优化
// 候选对为同一班级内的两个占用单元，顺序由固定种子的洗牌决定；
// 每次接受前重验两个受影响单元的硬约束；
// 迭代上限或一轮完整遍历无提升时终止。
// 迭代上限为 0 或不存在提升交换时，返回与输入等价的网格（幂等空操作）
func (o *DiversityOptimizer) Improve(ctx context.Context, grid *model.Grid, constraints []*model.Constraint) *Result {
	best := grid.Clone()
	bestScore := o.Score(best)

	result := &Result{
		Grid:      best,
		Score:     bestScore,
		InitScore: bestScore,
	}
	if o.config.MaxIterations <= 0 {
		return result
	}

	rng := rand.New(rand.NewSource(o.config.Seed))

	for result.Iterations < o.config.MaxIterations {
		improvedInPass := false

		for _, pair := range o.candidatePairs(best, rng) {
			if result.Iterations >= o.config.MaxIterations {
				break
			}
			if ctx.Err() != nil {
				result.Grid, result.Score = best, bestScore
				return result
			}
			result.Iterations++

			a, b := pair[0], pair[1]
			if best.Get(a.Day, a.Period, a.Section) == best.Get(b.Day, b.Period, b.Section) {
				continue
			}

			best.Swap(a, b)
			if !o.validator.HardOK(best, constraints, []model.CellKey{a, b}) {
				best.Swap(a, b)
				continue
			}
			score := o.Score(best)
			if score > bestScore {
				bestScore = score
				result.Accepted++
				improvedInPass = true
			} else {
				best.Swap(a, b)
			}
		}

		if !improvedInPass {
			break
		}
	}

	result.Grid = best
	result.Score = bestScore
	return result
}

// candidatePairs 生成同班级占用单元的候选交换对
// 基础顺序确定（Entries 的排序），再用种子随机源洗牌
func (o *DiversityOptimizer) candidatePairs(grid *model.Grid, rng *rand.Rand) [][2]model.CellKey {
	bySection := make(map[string][]model.CellKey)
	for _, e := range grid.Entries() {
		key := model.CellKey{Day: e.Day, Period: e.Period, Section: e.Section}
		bySection[e.Section] = append(bySection[e.Section], key)
	}

	var pairs [][2]model.CellKey
	for _, section := range grid.Sections {
		cells := bySection[section]
		for i := 0; i < len(cells); i++ {
			for j := i + 1; j < len(cells); j++ {
				pairs = append(pairs, [2]model.CellKey{cells[i], cells[j]})
			}
		}
	}

	rng.Shuffle(len(pairs), func(i, j int) {
		pairs[i], pairs[j] = pairs[j], pairs[i]
	})
	return pairs
}

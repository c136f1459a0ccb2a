package model

import (
	"sort"

	"github.com/google/uuid"
)

// Slot 课表坐标（教学日 + 节次）
// 节次从 1 开始，上限为配置的每日节次数
type Slot struct {
	Day    Weekday `json:"day"`
	Period int     `json:"period"`
}

// CellKey 网格单元坐标（教学日、节次、班级）
type CellKey struct {
	Day     Weekday `json:"day"`
	Period  int     `json:"period"`
	Section string  `json:"section"`
}

// Entry 网格中一个已占用的单元
type Entry struct {
	Day     Weekday `json:"day"`
	Period  int     `json:"period"`
	Section string  `json:"section"`
	Course  *Course `json:"course"`
}

// Grid 课表网格：(教学日, 节次, 班级) → 课程
// 同一单元最多一门课程；午休节次（如配置）永久不可分配
type Grid struct {
	Days     []Weekday `json:"days"`
	Periods  int       `json:"periods"`
	Lunch    int       `json:"lunch"` // 0 表示无午休
	Sections []string  `json:"sections"`

	cells map[CellKey]*Course
}

// NewGrid 创建空网格
func NewGrid(days []Weekday, periods, lunch int, sections []string) *Grid {
	d := make([]Weekday, len(days))
	copy(d, days)
	s := make([]string, len(sections))
	copy(s, sections)
	sort.Strings(s)
	return &Grid{
		Days:     d,
		Periods:  periods,
		Lunch:    lunch,
		Sections: s,
		cells:    make(map[CellKey]*Course),
	}
}

// IsLunch 检查节次是否为午休
func (g *Grid) IsLunch(period int) bool {
	return g.Lunch > 0 && period == g.Lunch
}

// InBounds 检查坐标是否在网格范围内
func (g *Grid) InBounds(day Weekday, period int) bool {
	if period < 1 || period > g.Periods {
		return false
	}
	for _, d := range g.Days {
		if d == day {
			return true
		}
	}
	return false
}

// Get 返回单元上的课程，空单元返回 nil
func (g *Grid) Get(day Weekday, period int, section string) *Course {
	return g.cells[CellKey{Day: day, Period: period, Section: section}]
}

// Set 在单元上放置课程，返回是否成功
// 越界、午休或已占用的单元不可放置
func (g *Grid) Set(day Weekday, period int, section string, course *Course) bool {
	if course == nil || !g.InBounds(day, period) || g.IsLunch(period) {
		return false
	}
	key := CellKey{Day: day, Period: period, Section: section}
	if _, occupied := g.cells[key]; occupied {
		return false
	}
	g.cells[key] = course
	return true
}

// Clear 清空单元
func (g *Grid) Clear(day Weekday, period int, section string) {
	delete(g.cells, CellKey{Day: day, Period: period, Section: section})
}

// Swap 交换两个单元上的课程（含空单元）
func (g *Grid) Swap(a, b CellKey) {
	ca, cb := g.cells[a], g.cells[b]
	if cb != nil {
		g.cells[a] = cb
	} else {
		delete(g.cells, a)
	}
	if ca != nil {
		g.cells[b] = ca
	} else {
		delete(g.cells, b)
	}
}

// Occupied 返回已占用单元数
func (g *Grid) Occupied() int {
	return len(g.cells)
}

// CountFor 返回课程占用的单元数
func (g *Grid) CountFor(courseID uuid.UUID) int {
	count := 0
	for _, c := range g.cells {
		if c.ID == courseID {
			count++
		}
	}
	return count
}

// Entries 按教学日、节次、班级的确定顺序返回所有已占用单元
func (g *Grid) Entries() []Entry {
	dayOrder := make(map[Weekday]int, len(g.Days))
	for i, d := range g.Days {
		dayOrder[d] = i
	}
	entries := make([]Entry, 0, len(g.cells))
	for key, course := range g.cells {
		entries = append(entries, Entry{
			Day:     key.Day,
			Period:  key.Period,
			Section: key.Section,
			Course:  course,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if dayOrder[entries[i].Day] != dayOrder[entries[j].Day] {
			return dayOrder[entries[i].Day] < dayOrder[entries[j].Day]
		}
		if entries[i].Period != entries[j].Period {
			return entries[i].Period < entries[j].Period
		}
		return entries[i].Section < entries[j].Section
	})
	return entries
}

// Clone 深拷贝网格（课程指针共享，课程对引擎只读）
func (g *Grid) Clone() *Grid {
	clone := NewGrid(g.Days, g.Periods, g.Lunch, g.Sections)
	for key, course := range g.cells {
		clone.cells[key] = course
	}
	return clone
}

// Rows 将网格物化为 教学日 → 各节次标签 的行视图
// 空单元为 ""，午休节次为 "LUNCH"
func (g *Grid) Rows(section string) map[Weekday][]string {
	rows := make(map[Weekday][]string, len(g.Days))
	for _, day := range g.Days {
		row := make([]string, g.Periods)
		for p := 1; p <= g.Periods; p++ {
			if g.IsLunch(p) {
				row[p-1] = "LUNCH"
				continue
			}
			if c := g.Get(day, p, section); c != nil {
				row[p-1] = c.Label()
			}
		}
		rows[day] = row
	}
	return rows
}

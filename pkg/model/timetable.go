package model

// Timetable 一次生成的课表记录
// Entries 是网格的扁平化形式，Diagnostics 随记录一并保存，
// 便于回溯历史批次的求解质量
type Timetable struct {
	BaseModel
	Name        string       `json:"name" db:"name"`
	Status      SolveStatus  `json:"status" db:"status"`
	Strategy    string       `json:"strategy" db:"strategy"`
	Fallback    bool         `json:"fallback" db:"fallback"`
	Score       float64      `json:"diversity_score" db:"diversity_score"`
	Active      bool         `json:"active" db:"active"`
	Entries     []Entry      `json:"entries" db:"-"`
	Diagnostics *Diagnostics `json:"diagnostics,omitempty" db:"-"`
}

// FromGrid 把网格快照进课表记录
func (t *Timetable) FromGrid(grid *Grid) {
	if grid == nil {
		t.Entries = nil
		return
	}
	t.Entries = grid.Entries()
}

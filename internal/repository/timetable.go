package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/model"
)

// TimetableRepository 课表记录仓储
// 网格条目与诊断以 JSONB 形式整体存储：课表是生成结果的快照，
// 不参与关系查询，只按批次回溯
type TimetableRepository struct {
	db DB
}

// NewTimetableRepository 创建课表仓储
func NewTimetableRepository(db DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `id, name, status, strategy, fallback, diversity_score, active, entries, diagnostics, created_at, updated_at`

// Create 保存一次生成的课表
func (r *TimetableRepository) Create(ctx context.Context, t *model.Timetable) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now

	entriesJSON, _ := json.Marshal(t.Entries)
	diagJSON, _ := json.Marshal(t.Diagnostics)

	query := `
		INSERT INTO timetables (
			id, name, status, strategy, fallback, diversity_score,
			active, entries, diagnostics, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Status, t.Strategy, t.Fallback, t.Score,
		t.Active, entriesJSON, diagJSON, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("保存课表失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取课表
func (r *TimetableRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM timetables
		WHERE id = $1 AND deleted_at IS NULL
	`, timetableColumns)

	t, err := scanTimetableFields(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("课表不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描课表失败: %w", err)
	}
	return t, nil
}

// GetActive 获取当前生效课表
func (r *TimetableRepository) GetActive(ctx context.Context) (*model.Timetable, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM timetables
		WHERE active = true AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, timetableColumns)

	t, err := scanTimetableFields(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("没有生效课表")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描课表失败: %w", err)
	}
	return t, nil
}

// Activate 将指定课表设为生效，其余批次全部失效
func (r *TimetableRepository) Activate(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE timetables SET active = false, updated_at = $1 WHERE active = true`, time.Now()); err != nil {
		return fmt.Errorf("清除生效课表失败: %w", err)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE timetables SET active = true, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now())
	if err != nil {
		return fmt.Errorf("设置生效课表失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("课表不存在")
	}

	return nil
}

// Delete 软删除课表
func (r *TimetableRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE timetables SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除课表失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("课表不存在")
	}

	return nil
}

// List 查询历史课表（按创建时间降序）
func (r *TimetableRepository) List(ctx context.Context, filter ListFilter) ([]*model.Timetable, int, error) {
	countQuery := `SELECT COUNT(*) FROM timetables WHERE deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM timetables
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, timetableColumns)

	rows, err := r.db.QueryContext(ctx, query, filter.Limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var timetables []*model.Timetable
	for rows.Next() {
		t, err := scanTimetableFields(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描课表失败: %w", err)
		}
		timetables = append(timetables, t)
	}

	return timetables, total, nil
}

func scanTimetableFields(s Scanner) (*model.Timetable, error) {
	t := &model.Timetable{}
	var entriesJSON, diagJSON []byte
	err := s.Scan(
		&t.ID, &t.Name, &t.Status, &t.Strategy, &t.Fallback, &t.Score,
		&t.Active, &entriesJSON, &diagJSON, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(entriesJSON) > 0 {
		if err := json.Unmarshal(entriesJSON, &t.Entries); err != nil {
			return nil, fmt.Errorf("解析课表条目失败: %w", err)
		}
	}
	if len(diagJSON) > 0 && string(diagJSON) != "null" {
		t.Diagnostics = &model.Diagnostics{}
		if err := json.Unmarshal(diagJSON, t.Diagnostics); err != nil {
			return nil, fmt.Errorf("解析诊断信息失败: %w", err)
		}
	}
	return t, nil
}

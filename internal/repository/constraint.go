package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/pkg/model"
)

// ConstraintRepository 约束仓储
// 节次范围以 "P1-P3" 文本形式存储，读取时解析回 PeriodRange
type ConstraintRepository struct {
	db DB
}

// NewConstraintRepository 创建约束仓储
func NewConstraintRepository(db DB) *ConstraintRepository {
	return &ConstraintRepository{db: db}
}

const constraintColumns = `id, course_name, section, day, period_range, type, description, owner_type, owner_id, published, created_at, updated_at`

// Create 创建约束
func (r *ConstraintRepository) Create(ctx context.Context, c *model.Constraint) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	query := `
		INSERT INTO constraints (
			id, course_name, section, day, period_range, type,
			description, owner_type, owner_id, published, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.CourseName, c.Section, string(c.Day), c.Periods.String(), c.Severity,
		c.Description, c.OwnerScope, c.OwnerID, c.Published, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建约束失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取约束
func (r *ConstraintRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Constraint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM constraints
		WHERE id = $1 AND deleted_at IS NULL
	`, constraintColumns)

	c, err := scanConstraintFields(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("约束不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描约束失败: %w", err)
	}
	return c, nil
}

// Update 更新约束
func (r *ConstraintRepository) Update(ctx context.Context, c *model.Constraint) error {
	c.UpdatedAt = time.Now()

	query := `
		UPDATE constraints SET
			course_name = $2, section = $3, day = $4, period_range = $5, type = $6,
			description = $7, owner_type = $8, owner_id = $9, published = $10, updated_at = $11
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		c.ID, c.CourseName, c.Section, string(c.Day), c.Periods.String(), c.Severity,
		c.Description, c.OwnerScope, c.OwnerID, c.Published, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新约束失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("约束不存在")
	}

	return nil
}

// Delete 软删除约束
func (r *ConstraintRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE constraints SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除约束失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("约束不存在")
	}

	return nil
}

// List 查询约束列表
func (r *ConstraintRepository) List(ctx context.Context, filter ListFilter) ([]*model.Constraint, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", argIndex))
		args = append(args, filter.Section)
		argIndex++
	}

	if filter.Severity != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, filter.Severity)
		argIndex++
	}

	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = $%d", argIndex))
		args = append(args, *filter.Published)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(course_name ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM constraints WHERE %s", whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("查询总数失败: %w", err)
	}

	orderBy := filter.OrderBy
	if orderBy == "" {
		orderBy = "created_at"
	}
	orderDir := filter.OrderDir
	if orderDir == "" {
		orderDir = "desc"
	}

	query := fmt.Sprintf(`
		SELECT %s FROM constraints
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, constraintColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var constraints []*model.Constraint
	for rows.Next() {
		c, err := scanConstraintFields(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描约束失败: %w", err)
		}
		constraints = append(constraints, c)
	}

	return constraints, total, nil
}

// ListPublished 获取参与排课的已发布约束
func (r *ConstraintRepository) ListPublished(ctx context.Context) ([]*model.Constraint, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM constraints
		WHERE published = true AND deleted_at IS NULL
		ORDER BY created_at
	`, constraintColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询已发布约束失败: %w", err)
	}
	defer rows.Close()

	var constraints []*model.Constraint
	for rows.Next() {
		c, err := scanConstraintFields(rows)
		if err != nil {
			return nil, fmt.Errorf("扫描约束失败: %w", err)
		}
		constraints = append(constraints, c)
	}

	return constraints, nil
}

func scanConstraintFields(s Scanner) (*model.Constraint, error) {
	c := &model.Constraint{}
	var day, periodRange string
	err := s.Scan(
		&c.ID, &c.CourseName, &c.Section, &day, &periodRange, &c.Severity,
		&c.Description, &c.OwnerScope, &c.OwnerID, &c.Published, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Day = model.Weekday(day)
	if periodRange != "" {
		pr, err := model.ParsePeriodRange(periodRange)
		if err != nil {
			return nil, fmt.Errorf("约束 %s 的节次范围非法: %w", c.ID, err)
		}
		c.Periods = pr
	}
	return c, nil
}

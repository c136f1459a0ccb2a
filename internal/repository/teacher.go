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

// TeacherRepository 教师仓储
type TeacherRepository struct {
	db DB
}

// NewTeacherRepository 创建教师仓储
func NewTeacherRepository(db DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherColumns = `id, username, full_name, email, created_at, updated_at`

// Create 创建教师
func (r *TeacherRepository) Create(ctx context.Context, teacher *model.Teacher) error {
	if teacher.ID == uuid.Nil {
		teacher.ID = uuid.New()
	}
	now := time.Now()
	teacher.CreatedAt = now
	teacher.UpdatedAt = now

	query := `
		INSERT INTO teachers (id, username, full_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		teacher.ID, teacher.Username, teacher.FullName, teacher.Email,
		teacher.CreatedAt, teacher.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建教师失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取教师
func (r *TeacherRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Teacher, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM teachers
		WHERE id = $1 AND deleted_at IS NULL
	`, teacherColumns)

	return r.scanTeacher(r.db.QueryRowContext(ctx, query, id))
}

// GetByUsername 根据用户名获取教师
func (r *TeacherRepository) GetByUsername(ctx context.Context, username string) (*model.Teacher, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM teachers
		WHERE username = $1 AND deleted_at IS NULL
	`, teacherColumns)

	return r.scanTeacher(r.db.QueryRowContext(ctx, query, username))
}

// Update 更新教师
func (r *TeacherRepository) Update(ctx context.Context, teacher *model.Teacher) error {
	teacher.UpdatedAt = time.Now()

	query := `
		UPDATE teachers SET username = $2, full_name = $3, email = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		teacher.ID, teacher.Username, teacher.FullName, teacher.Email, teacher.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新教师失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("教师不存在")
	}

	return nil
}

// Delete 软删除教师
func (r *TeacherRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE teachers SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除教师失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("教师不存在")
	}

	return nil
}

// List 查询教师列表
func (r *TeacherRepository) List(ctx context.Context, filter ListFilter) ([]*model.Teacher, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(username ILIKE $%d OR full_name ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM teachers WHERE %s", whereClause)
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
		SELECT %s FROM teachers
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, teacherColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var teachers []*model.Teacher
	for rows.Next() {
		teacher, err := scanTeacherFields(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("扫描教师失败: %w", err)
		}
		teachers = append(teachers, teacher)
	}

	return teachers, total, nil
}

// scanTeacher 扫描单行教师
func (r *TeacherRepository) scanTeacher(row *sql.Row) (*model.Teacher, error) {
	teacher, err := scanTeacherFields(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("教师不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描教师失败: %w", err)
	}
	return teacher, nil
}

func scanTeacherFields(s Scanner) (*model.Teacher, error) {
	teacher := &model.Teacher{}
	err := s.Scan(
		&teacher.ID, &teacher.Username, &teacher.FullName, &teacher.Email,
		&teacher.CreatedAt, &teacher.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return teacher, nil
}

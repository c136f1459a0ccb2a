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

// CourseRepository 课程仓储
type CourseRepository struct {
	db DB
}

// NewCourseRepository 创建课程仓储
func NewCourseRepository(db DB) *CourseRepository {
	return &CourseRepository{db: db}
}

const courseColumns = `id, course_code, course_name, section, credits, teacher_id, owner_type, owner_id, published, created_at, updated_at`

// Create 创建课程
func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	if course.ID == uuid.Nil {
		course.ID = uuid.New()
	}
	now := time.Now()
	course.CreatedAt = now
	course.UpdatedAt = now

	query := `
		INSERT INTO courses (
			id, course_code, course_name, section, credits, teacher_id,
			owner_type, owner_id, published, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		course.ID, course.Code, course.Name, course.Section, course.Credits, course.TeacherID,
		course.OwnerScope, course.OwnerID, course.Published, course.CreatedAt, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建课程失败: %w", err)
	}

	return nil
}

// GetByID 根据ID获取课程
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM courses
		WHERE id = $1 AND deleted_at IS NULL
	`, courseColumns)

	return r.scanCourse(r.db.QueryRowContext(ctx, query, id))
}

// GetByCode 根据课程代码与班级获取课程
func (r *CourseRepository) GetByCode(ctx context.Context, code, section string) (*model.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM courses
		WHERE course_code = $1 AND section = $2 AND deleted_at IS NULL
	`, courseColumns)

	return r.scanCourse(r.db.QueryRowContext(ctx, query, code, section))
}

// Update 更新课程
func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	course.UpdatedAt = time.Now()

	query := `
		UPDATE courses SET
			course_code = $2, course_name = $3, section = $4, credits = $5,
			teacher_id = $6, owner_type = $7, owner_id = $8, published = $9, updated_at = $10
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		course.ID, course.Code, course.Name, course.Section, course.Credits,
		course.TeacherID, course.OwnerScope, course.OwnerID, course.Published, course.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("更新课程失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("课程不存在")
	}

	return nil
}

// Delete 软删除课程
func (r *CourseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE courses SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("删除课程失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("课程不存在")
	}

	return nil
}

// List 查询课程列表
func (r *CourseRepository) List(ctx context.Context, filter ListFilter) ([]*model.Course, int, error) {
	var conditions []string
	var args []interface{}
	argIndex := 1

	conditions = append(conditions, "deleted_at IS NULL")

	if filter.Section != "" {
		conditions = append(conditions, fmt.Sprintf("section = $%d", argIndex))
		args = append(args, filter.Section)
		argIndex++
	}

	if filter.TeacherID != nil {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", argIndex))
		args = append(args, *filter.TeacherID)
		argIndex++
	}

	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("published = $%d", argIndex))
		args = append(args, *filter.Published)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(course_name ILIKE $%d OR course_code ILIKE $%d)", argIndex, argIndex))
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM courses WHERE %s", whereClause)
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
		SELECT %s FROM courses
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, courseColumns, whereClause, orderBy, orderDir, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("查询列表失败: %w", err)
	}
	defer rows.Close()

	var courses []*model.Course
	for rows.Next() {
		course, err := r.scanCourseRow(rows)
		if err != nil {
			return nil, 0, err
		}
		courses = append(courses, course)
	}

	return courses, total, nil
}

// ListPublished 获取待排课的已发布课程
func (r *CourseRepository) ListPublished(ctx context.Context) ([]*model.Course, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM courses
		WHERE published = true AND deleted_at IS NULL
		ORDER BY course_code, section
	`, courseColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("查询已发布课程失败: %w", err)
	}
	defer rows.Close()

	var courses []*model.Course
	for rows.Next() {
		course, err := r.scanCourseRow(rows)
		if err != nil {
			return nil, err
		}
		courses = append(courses, course)
	}

	return courses, nil
}

// scanCourse 扫描单行课程
func (r *CourseRepository) scanCourse(row *sql.Row) (*model.Course, error) {
	course, err := scanCourseFields(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("课程不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("扫描课程失败: %w", err)
	}
	return course, nil
}

// scanCourseRow 扫描结果集中的课程
func (r *CourseRepository) scanCourseRow(rows *sql.Rows) (*model.Course, error) {
	course, err := scanCourseFields(rows)
	if err != nil {
		return nil, fmt.Errorf("扫描课程失败: %w", err)
	}
	return course, nil
}

func scanCourseFields(s Scanner) (*model.Course, error) {
	course := &model.Course{}
	err := s.Scan(
		&course.ID, &course.Code, &course.Name, &course.Section, &course.Credits, &course.TeacherID,
		&course.OwnerScope, &course.OwnerID, &course.Published, &course.CreatedAt, &course.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return course, nil
}

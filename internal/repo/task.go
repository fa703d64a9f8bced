package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

const taskColumns = `id, email, task_category, task_priority, sort_order, created_at, extra`

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo { // Конструктор
	return &TaskRepo{
		pool: pool,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	extra := t.Extra
	if extra == nil {
		extra = map[string]any{}
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (id, email, task_category, task_priority, sort_order, created_at, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+taskColumns,
		t.ID, t.Email, t.Category, t.Priority, t.Order, t.CreatedAt, extra,
	)
	created, err := scanTask(row)
	if err != nil {
		return t, fmt.Errorf("insert task: %w", mapError(err))
	}
	return created, nil
}

func (r *TaskRepo) Get(ctx context.Context, id string) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	orderBy := "created_at DESC, id DESC"
	if filter.Sort == model.SortByOrderAsc {
		orderBy = "sort_order ASC, created_at DESC"
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE email = $1
		  AND ($2::text IS NULL OR task_category = $2)
		  AND ($3::text IS NULL OR task_category <> $3)
		  AND ($4::text IS NULL OR task_priority = $4)
		ORDER BY ` + orderBy

	rows, err := r.pool.Query(ctx, query, filter.Email, filter.Category, filter.ExcludeCategory, filter.Priority)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) Patch(ctx context.Context, id, owner string, p model.TaskPatch) (int64, error) {
	if p.Empty() {
		return 0, nil
	}

	// Собираем SET только из переданных полей, остальные не трогаем
	args := []any{id, owner}
	var sets []string
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.Category != nil {
		add("task_category", *p.Category)
	}
	if p.Priority != nil {
		add("task_priority", *p.Priority)
	}
	if p.Order != nil {
		add("sort_order", *p.Order)
	}
	if len(p.Extra) > 0 {
		args = append(args, p.Extra)
		sets = append(sets, fmt.Sprintf("extra = extra || $%d::jsonb", len(args)))
	}

	cmd, err := r.pool.Exec(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = $1 AND email = $2`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("patch task %s: %w", id, err)
	}
	return cmd.RowsAffected(), nil
}

func (r *TaskRepo) Delete(ctx context.Context, id, owner string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND email = $2", id, owner)
	if err != nil {
		return 0, fmt.Errorf("delete task %s: %w", id, err)
	}
	return cmd.RowsAffected(), nil
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.Email, &t.Category, &t.Priority, &t.Order, &t.CreatedAt, &t.Extra)
	if len(t.Extra) == 0 {
		t.Extra = nil
	}
	return t, err
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // unique_violation
			return ErrorConflict
		}
	}
	return err
}

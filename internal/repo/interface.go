package repo

import (
	"context"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id string) (model.Task, error)
	List(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	// Patch применяет частичное обновление к задаче владельца owner.
	// Возвращает число затронутых строк; 0 если задача не найдена.
	Patch(ctx context.Context, id, owner string, p model.TaskPatch) (int64, error)
	Delete(ctx context.Context, id, owner string) (int64, error)
}

// UserRepository хранит учетные записи, email уникален
type UserRepository interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	Get(ctx context.Context, email string) (model.User, error)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrOwnership  = errors.New("email does not match token")
)

// Имена событий realtime-канала
const (
	EventTaskAdded        = "TaskAdded"
	EventTaskDeleted      = "TaskDeleted"
	EventTaskUpdate       = "TaskUpdate"
	EventTaskOrderUpdated = "TaskOrderUpdated"
	EventTaskCompleted    = "TaskCompleted"
)

// Publisher отправляет событие всем подключенным клиентам.
// Fire-and-forget: ошибки доставки не возвращаются вызывающему.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any)
}

// Category names a listing endpoint.
type Category string

const (
	ListNotStarted   Category = "not-started"
	ListInProgress   Category = "in-progress"
	ListCompleted    Category = "completed"
	ListOpen         Category = "all"
	ListHighPriority Category = "vital"
)

// ReorderRequest is the body of a bulk reorder.
type ReorderRequest struct {
	Email string             `json:"email" validate:"required,email"`
	Tasks []model.OrderEntry `json:"tasks" validate:"required,dive"`
}

type ReorderResult struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type TaskService struct {
	repo     repo.TaskRepository
	events   Publisher
	validate *validator.Validate
	now      func() time.Time
}

func NewTaskService(repo repo.TaskRepository, events Publisher) *TaskService {
	return &TaskService{
		repo:     repo,
		events:   events,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Create stores a new task owned by owner. Order and createdAt are always
// assigned by the server.
func (s *TaskService) Create(ctx context.Context, owner string, t model.Task) (model.Task, error) {
	if t.Email == "" {
		return t, fmt.Errorf("%w: email is required", ErrValidation)
	}
	if t.Email != owner {
		return t, ErrOwnership
	}
	if t.Category == "" {
		t.Category = model.CategoryNotStarted
	}
	if err := checkCategory(&t.Category); err != nil {
		return t, err
	}

	t.ID = ""
	t.Order = 0
	t.CreatedAt = s.now().UTC()

	created, err := s.repo.Create(ctx, t)
	if err != nil {
		return created, err
	}

	s.events.Publish(ctx, EventTaskAdded, created)
	return created, nil
}

// List returns owner's tasks for one of the listing endpoints.
func (s *TaskService) List(ctx context.Context, owner string, c Category) ([]model.Task, error) {
	filter := model.TaskFilter{Email: owner}
	switch c {
	case ListNotStarted:
		filter.Category = strPtr(model.CategoryNotStarted)
		filter.Sort = model.SortByOrderAsc
	case ListInProgress:
		filter.Category = strPtr(model.CategoryInProgress)
	case ListCompleted:
		filter.Category = strPtr(model.CategoryCompleted)
	case ListOpen:
		filter.ExcludeCategory = strPtr(model.CategoryCompleted)
	case ListHighPriority:
		filter.Priority = strPtr(model.PriorityExtreme)
	default:
		return nil, fmt.Errorf("%w: unknown list %q", ErrValidation, c)
	}
	return s.repo.List(ctx, filter)
}

// Update applies a full-field update. Only fields that differ from the stored
// record are written; when nothing differs it returns 0 without writing or
// publishing.
func (s *TaskService) Update(ctx context.Context, owner, id string, fields model.Fields) (int64, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if current.Email != owner {
		return 0, ErrOwnership
	}
	if email, ok := fields[model.FieldEmail]; ok && email != owner {
		return 0, ErrOwnership
	}

	stored, err := current.Fields()
	if err != nil {
		return 0, err
	}
	changed := model.Diff(stored, fields.Without(model.FieldID, model.FieldCreatedAt))
	if len(changed) == 0 {
		return 0, nil
	}

	patch, err := model.NewTaskPatch(changed)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := checkCategory(patch.Category); err != nil {
		return 0, err
	}
	modified, err := s.repo.Patch(ctx, id, owner, patch)
	if err != nil {
		return 0, err
	}

	next := current
	next.Apply(patch)

	payload := changed.Without()
	payload[model.FieldID] = id
	payload[model.FieldEmail] = current.Email
	payload[model.FieldCreatedAt] = current.CreatedAt
	payload[model.FieldCategory] = next.Category
	payload[model.FieldPriority] = next.Priority
	payload["previous_task_category"] = current.Category
	payload["previous_task_priority"] = current.Priority
	s.events.Publish(ctx, EventTaskUpdate, payload)

	return modified, nil
}

// Reorder sets the position of every listed task. Each entry is an
// independent write; a failure midway leaves earlier entries applied.
func (s *TaskService) Reorder(ctx context.Context, owner string, req ReorderRequest) (ReorderResult, error) {
	var res ReorderResult
	if err := s.validate.Struct(req); err != nil {
		return res, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if req.Email != owner {
		return res, ErrOwnership
	}

	for _, e := range req.Tasks {
		order := e.Order
		n, err := s.repo.Patch(ctx, e.ID, owner, model.TaskPatch{Order: &order})
		if err != nil {
			return res, err
		}
		res.MatchedCount += n
		res.ModifiedCount += n
	}

	s.events.Publish(ctx, EventTaskOrderUpdated, req.Tasks)
	return res, nil
}

// Complete applies a partial update (usually a category change) without
// reading the task first.
func (s *TaskService) Complete(ctx context.Context, owner, id string, fields model.Fields) error {
	if email, ok := fields[model.FieldEmail]; ok && email != owner {
		return ErrOwnership
	}
	patch, err := model.NewTaskPatch(fields)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if patch.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrValidation)
	}
	if err := checkCategory(patch.Category); err != nil {
		return err
	}

	if _, err := s.repo.Patch(ctx, id, owner, patch); err != nil {
		return err
	}

	payload := fields.Without(model.FieldCreatedAt)
	payload[model.FieldID] = id
	s.events.Publish(ctx, EventTaskCompleted, payload)
	return nil
}

// Delete removes the task and publishes the id whether or not it existed.
func (s *TaskService) Delete(ctx context.Context, owner, id string) (int64, error) {
	n, err := s.repo.Delete(ctx, id, owner)
	if err != nil {
		return 0, err
	}
	s.events.Publish(ctx, EventTaskDeleted, id)
	return n, nil
}

// checkCategory пропускает nil (поле не передано)
func checkCategory(c *string) error {
	if c != nil && !model.ValidCategory(*c) {
		return fmt.Errorf("%w: unknown task_category %q", ErrValidation, *c)
	}
	return nil
}

func strPtr(s string) *string { return &s }

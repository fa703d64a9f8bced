package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	CategoryNotStarted = "not started"
	CategoryInProgress = "in progress"
	CategoryCompleted  = "completed"

	PriorityExtreme = "extreme"
)

// Ключи известных полей задачи в JSON
const (
	FieldID        = "_id"
	FieldEmail     = "email"
	FieldCategory  = "task_category"
	FieldPriority  = "task_priority"
	FieldOrder     = "order"
	FieldCreatedAt = "createdAt"
)

var ErrInvalidField = errors.New("invalid field")

// ValidCategory reports whether c is one of the three task categories.
func ValidCategory(c string) bool {
	switch c {
	case CategoryNotStarted, CategoryInProgress, CategoryCompleted:
		return true
	}
	return false
}

// Task is a semi-structured document: the fields the server understands plus
// whatever else the client sent, kept in Extra and flattened back on output.
type Task struct {
	ID        string
	Email     string
	Category  string
	Priority  string
	Order     int
	CreatedAt time.Time
	Extra     map[string]any
}

type SortMode int

const (
	SortByCreatedDesc SortMode = iota
	SortByOrderAsc
)

type TaskFilter struct {
	Email           string
	Category        *string
	ExcludeCategory *string
	Priority        *string
	Sort            SortMode
}

// OrderEntry is one position change in a bulk reorder request.
type OrderEntry struct {
	ID    string `json:"_id" validate:"required"`
	Order int    `json:"order"`
}

// TaskPatch is a typed partial update. Nil pointers are left untouched.
type TaskPatch struct {
	Email    *string
	Category *string
	Priority *string
	Order    *int
	Extra    map[string]any
}

func (p TaskPatch) Empty() bool {
	return p.Email == nil && p.Category == nil && p.Priority == nil && p.Order == nil && len(p.Extra) == 0
}

// NewTaskPatch converts client-supplied fields into a patch. Server-owned
// fields (_id, createdAt) are dropped.
func NewTaskPatch(f Fields) (TaskPatch, error) {
	var p TaskPatch
	for k, v := range f {
		switch k {
		case FieldID, FieldCreatedAt:
			continue
		case FieldEmail:
			s, err := stringField(k, v)
			if err != nil {
				return p, err
			}
			p.Email = &s
		case FieldCategory:
			s, err := stringField(k, v)
			if err != nil {
				return p, err
			}
			p.Category = &s
		case FieldPriority:
			s, err := stringField(k, v)
			if err != nil {
				return p, err
			}
			p.Priority = &s
		case FieldOrder:
			n, err := intField(k, v)
			if err != nil {
				return p, err
			}
			p.Order = &n
		default:
			if p.Extra == nil {
				p.Extra = make(map[string]any)
			}
			p.Extra[k] = v
		}
	}
	return p, nil
}

// Apply overwrites the task with the patch in place.
func (t *Task) Apply(p TaskPatch) {
	if p.Email != nil {
		t.Email = *p.Email
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	if len(p.Extra) > 0 && t.Extra == nil {
		t.Extra = make(map[string]any, len(p.Extra))
	}
	for k, v := range p.Extra {
		t.Extra[k] = v
	}
}

// Fields returns the task in its wire shape, with values normalized the way a
// JSON decoder would produce them (numbers as float64, times as strings).
func (t Task) Fields() (Fields, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return f, nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.Extra)+6)
	for k, v := range t.Extra {
		out[k] = v
	}
	out[FieldID] = t.ID
	out[FieldEmail] = t.Email
	out[FieldCategory] = t.Category
	out[FieldPriority] = t.Priority
	out[FieldOrder] = t.Order
	out[FieldCreatedAt] = t.CreatedAt
	return json.Marshal(out)
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var f Fields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	// _id и createdAt принадлежат серверу: берем их только если они в нашем
	// формате, все остальное молча отбрасываем
	var task Task
	if id, ok := f[FieldID].(string); ok {
		task.ID = id
	}
	if ts, ok := f[FieldCreatedAt].(string); ok {
		if at, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			task.CreatedAt = at
		}
	}
	p, err := NewTaskPatch(f)
	if err != nil {
		return err
	}
	task.Apply(p)
	*t = task
	return nil
}

func stringField(key string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidField, key)
	}
	return s, nil
}

func intField(key string, v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidField, key)
		}
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidField, key)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%w: %s must be a number", ErrInvalidField, key)
	}
}

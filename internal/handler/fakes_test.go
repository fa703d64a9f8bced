package handler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
)

// fakeTaskRepo - хранилище задач в памяти с подсчетом обращений
type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]model.Task
	seq   int
	calls int
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]model.Task)}
}

func (f *fakeTaskRepo) Create(_ context.Context, t model.Task) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.seq++
	t.ID = fmt.Sprintf("task-%d", f.seq)
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeTaskRepo) Get(_ context.Context, id string) (model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	t, ok := f.tasks[id]
	if !ok {
		return t, repo.ErrorNotFound
	}
	return t, nil
}

func (f *fakeTaskRepo) List(_ context.Context, filter model.TaskFilter) ([]model.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]model.Task, 0)
	for _, t := range f.tasks {
		if t.Email != filter.Email {
			continue
		}
		if filter.Category != nil && t.Category != *filter.Category {
			continue
		}
		if filter.ExcludeCategory != nil && t.Category == *filter.ExcludeCategory {
			continue
		}
		if filter.Priority != nil && t.Priority != *filter.Priority {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if filter.Sort == model.SortByOrderAsc && out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeTaskRepo) Patch(_ context.Context, id, owner string, p model.TaskPatch) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	t, ok := f.tasks[id]
	if !ok || t.Email != owner {
		return 0, nil
	}
	t.Apply(p)
	f.tasks[id] = t
	return 1, nil
}

func (f *fakeTaskRepo) Delete(_ context.Context, id, owner string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	t, ok := f.tasks[id]
	if !ok || t.Email != owner {
		return 0, nil
	}
	delete(f.tasks, id)
	return 1, nil
}

func (f *fakeTaskRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u model.User) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return u, repo.ErrorConflict
	}
	f.users[u.Email] = u
	return u, nil
}

func (f *fakeUserRepo) Get(_ context.Context, email string) (model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return u, repo.ErrorNotFound
	}
	return u, nil
}

type publishedEvent struct {
	name    string
	payload any
}

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

func (p *recordingPublisher) last() publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

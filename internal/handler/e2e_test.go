package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/get-it-done-api/internal/auth"
	"github.com/BuzzLyutic/get-it-done-api/internal/model"
	"github.com/BuzzLyutic/get-it-done-api/internal/notify"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/internal/testdb"
	"github.com/BuzzLyutic/get-it-done-api/internal/worker"
)

type e2eEnv struct {
	server *httptest.Server
	tokens *auth.TokenService
}

func setupE2EServer(t *testing.T) *e2eEnv {
	pool, cleanup := testdb.SetupTestDB(t)
	testdb.TruncateTables(t, pool)

	logger := zap.NewNop()
	tokens, err := auth.NewTokenService("e2e-secret", auth.DefaultTTL)
	require.NoError(t, err)

	hub := notify.NewHub(logger, 32)
	broadcast := worker.NewPool(hub, logger, 1, 64)
	broadcast.Start(context.Background())

	router := NewRouter(Deps{
		Tasks:    service.NewTaskService(repo.NewTaskRepo(pool), broadcast),
		Users:    service.NewUserService(repo.NewUserRepo(pool), tokens),
		Tokens:   tokens,
		Realtime: hub,
		Logger:   logger,
	})
	server := httptest.NewServer(router)

	t.Cleanup(func() {
		server.Close()
		broadcast.Stop()
		hub.Close()
		cleanup()
	})
	return &e2eEnv{server: server, tokens: tokens}
}

func (e *e2eEnv) call(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestE2E_FullWorkflow(t *testing.T) {
	env := setupE2EServer(t)

	// Подключаем realtime-клиента до изменений
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(env.server.URL, "http")+"/socket", nil)
	require.NoError(t, err)
	defer conn.Close()

	var events []string
	var mu sync.Mutex
	go func() {
		for {
			var f struct {
				Event string `json:"event"`
			}
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			mu.Lock()
			events = append(events, f.Event)
			mu.Unlock()
		}
	}()
	seen := func(name string) bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == name {
				return true
			}
		}
		return false
	}
	require.True(t, testdb.WaitForCondition(t, 5*time.Second, func() bool { return seen(notify.EventConnectionResponse) }))

	// 1. Регистрация и токен
	resp := env.call(t, http.MethodPost, "/users", "", map[string]string{"email": "ann@example.com", "name": "Ann"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.call(t, http.MethodPost, "/jwt", "", map[string]string{"email": "ann@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))

	// 2. Две задачи
	create := func(title string) model.Task {
		resp := env.call(t, http.MethodPost, "/add-tasks", tok.Token, map[string]interface{}{
			"email":         "ann@example.com",
			"title":         title,
			"task_category": model.CategoryNotStarted,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var task model.Task
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
		return task
	}
	a, b := create("A"), create("B")
	assert.Equal(t, 0, a.Order)

	// 3. Перестановка
	resp = env.call(t, http.MethodPatch, "/update-task-order", tok.Token, map[string]interface{}{
		"email": "ann@example.com",
		"tasks": []map[string]interface{}{{"_id": b.ID, "order": 0}, {"_id": a.ID, "order": 1}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.call(t, http.MethodGet, "/todo-tasks?query=ann@example.com", tok.Token, nil)
	var todo []model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&todo))
	require.Len(t, todo, 2)
	assert.Equal(t, b.ID, todo[0].ID)

	// 4. Полное обновление и завершение
	resp = env.call(t, http.MethodPut, "/task-update/"+a.ID, tok.Token, map[string]interface{}{
		"title":         "A",
		"task_priority": model.PriorityExtreme,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.call(t, http.MethodGet, "/vital-tasks?query=ann@example.com", tok.Token, nil)
	var vital []model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vital))
	require.Len(t, vital, 1)
	assert.Equal(t, a.ID, vital[0].ID)

	resp = env.call(t, http.MethodPatch, "/task-completed/"+a.ID, tok.Token, map[string]interface{}{
		"task_category": model.CategoryCompleted,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.call(t, http.MethodGet, "/all-tasks?query=ann@example.com", tok.Token, nil)
	var open []model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&open))
	require.Len(t, open, 1)
	assert.Equal(t, b.ID, open[0].ID)

	// 5. Удаление
	resp = env.call(t, http.MethodDelete, "/task/"+b.ID, tok.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, name := range []string{
		service.EventTaskAdded,
		service.EventTaskOrderUpdated,
		service.EventTaskUpdate,
		service.EventTaskCompleted,
		service.EventTaskDeleted,
	} {
		assert.True(t, testdb.WaitForCondition(t, 5*time.Second, func() bool { return seen(name) }), name)
	}
}

func TestE2E_ConcurrentUpdatesLastWriteWins(t *testing.T) {
	env := setupE2EServer(t)
	token, err := env.tokens.Issue("ann@example.com")
	require.NoError(t, err)

	resp := env.call(t, http.MethodPost, "/add-tasks", token, map[string]interface{}{
		"email":         "ann@example.com",
		"task_priority": "low",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var task model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))

	const goroutines = 10
	var wg sync.WaitGroup
	codes := make([]int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			priority := "medium"
			if idx%2 == 0 {
				priority = model.PriorityExtreme
			}
			r := env.call(t, http.MethodPut, "/task-update/"+task.ID, token, map[string]interface{}{
				"task_priority": priority,
			})
			codes[idx] = r.StatusCode
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusOK, code, "request %d", i)
	}

	resp = env.call(t, http.MethodGet, "/all-tasks?query=ann@example.com", token, nil)
	var tasks []model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	require.Len(t, tasks, 1)
	assert.Contains(t, []string{"medium", model.PriorityExtreme}, tasks[0].Priority)
	assert.True(t, tasks[0].CreatedAt.Equal(task.CreatedAt))
	assert.Equal(t, model.CategoryNotStarted, tasks[0].Category)
}

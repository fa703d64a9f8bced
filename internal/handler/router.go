package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/get-it-done-api/internal/middleware"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/pkg/respond"
)

// Deps собирает все, что нужно роутеру
type Deps struct {
	Tasks       *service.TaskService
	Users       *service.UserService
	Tokens      middleware.TokenVerifier
	Realtime    http.Handler
	Logger      *zap.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) http.Handler {
	tasks := NewTaskHandler(d.Tasks, d.Logger)
	users := NewUserHandler(d.Users, d.Logger)

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		respond.Text(w, r, http.StatusOK, "Get It Done is running")
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Realtime != nil {
		r.Handle("/socket", d.Realtime)
	}

	r.Post("/users", users.Register)
	r.Post("/jwt", users.Token)

	authenticate := middleware.Authenticate(d.Tokens)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Chain(authenticate))

		r.Post("/add-tasks", tasks.Create)
		r.Put("/task-update/{id}", tasks.Update)
		r.Patch("/update-task-order", tasks.Reorder)
		r.Patch("/task-completed/{id}", tasks.Complete)
		r.Delete("/task/{id}", tasks.Delete)
	})

	// Списки: сначала токен, потом совпадение ?query= с email из токена
	r.Group(func(r chi.Router) {
		r.Use(middleware.Chain(authenticate, middleware.OwnerFromQuery("query")))

		r.Get("/todo-tasks", tasks.List(service.ListNotStarted))
		r.Get("/in-progress-tasks", tasks.List(service.ListInProgress))
		r.Get("/completed-tasks", tasks.List(service.ListCompleted))
		r.Get("/all-tasks", tasks.List(service.ListOpen))
		r.Get("/vital-tasks", tasks.List(service.ListHighPriority))
	})

	return r
}

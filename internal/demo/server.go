// Package demo - мок-бэкенд портала: вход, чат-сессии с заготовленными ответами
// и формирование группы с искусственной задержкой и случайными отказами.
// Задержки и доля отказов имитируют сеть и не входят в контракт. Контракт задаёт только форму ответов.
package demo

import (
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/fydp-portal/internal/config"
	"github.com/fydp-portal/internal/middleware"
	"github.com/fydp-portal/internal/model"
)

// Лимиты запросов демо-сервера в минуту.
const (
	rateLimitPerIP   = 600
	rateLimitPerUser = 300
)

type Server struct {
	store      *Store
	cfg        config.DemoConfig
	minMembers int

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewServer создаёт сервер с кандидатами, сгенерированными по cfg.Seed.
func NewServer(cfg config.DemoConfig, minMembers int) *Server {
	if minMembers <= 0 {
		minMembers = 2
	}
	n := cfg.StudentCount
	if n <= 0 {
		n = 150
	}
	seed := uint64(cfg.Seed)
	return &Server{
		store:      NewStore(GenerateStudents(n, cfg.Seed)),
		cfg:        cfg,
		minMembers: minMembers,
		rng:        rand.New(rand.NewPCG(seed, seed+1)),
	}
}

func (s *Server) Store() *Store { return s.store }

// shouldFail решает, отказать ли в этом запросе (доля rate от 0 до 1).
func (s *Server) shouldFail(rate float64) bool {
	if rate <= 0 {
		return false
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < rate
}

// Routes собирает роутер со всем middleware. corsOrigins задаётся списком через запятую или "*".
func (s *Server) Routes(corsOrigins string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RecoverJSON)
	r.Use(middleware.RequestLog)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: splitOrigins(corsOrigins),
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimit(rateLimitPerIP, 0, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post("/auth/signup/", s.SignUp)
	r.Post("/auth/signin/", s.SignIn)

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerAuth(s.store))
		r.Use(middleware.RateLimit(0, rateLimitPerUser, time.Minute))

		r.Post("/chat/session", s.CreateOrResumeSession)
		r.Post("/chat/message", s.ChatMessage)
		r.Get("/chat/history/{sessionID}", s.ChatHistory)
		r.Get("/chat/sessions", s.ListSessions)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(model.UserRoleStudent)))
			r.Get("/api/students", s.ListStudents)
			r.Get("/api/group", s.GroupStatus)
			r.Post("/api/invite", s.Invite)
			r.Delete("/api/invite/{studentID}", s.CancelInvite)
			r.Post("/api/group/finalize", s.FinalizeGroup)
		})
	})
	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type App struct {
	Jobs   domain.StoryJobRepository
	DB     Pinger
	Logger *infra.Logger
}

func NewApp(jobs domain.StoryJobRepository, db Pinger, logger *infra.Logger) *App {
	return &App{Jobs: jobs, DB: db, Logger: infra.LoggerOrDiscard(logger)}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, errorBody{Error: kind, Message: message})
}

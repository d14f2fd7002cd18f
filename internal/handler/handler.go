// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package handler exposes the engine's read-only observability surface over
// HTTP: metrics, recent change history and the conflict log. The endpoint is
// unauthenticated and meant to stay on loopback.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MKhiriev/farm-sync/internal/logger"
	"github.com/MKhiriev/farm-sync/models"
)

const defaultListLimit = 50

// Engine is the read-only coordinator view the endpoint serves. Satisfied by
// [service.Coordinator].
type Engine interface {
	Metrics() models.MetricsSnapshot
	RecentChanges(limit int) []models.ChangeRecord
	Conflicts(limit int) []models.ConflictRecord
	ReferenceSchema() map[string]map[string]string
}

// Handler serves the observability routes.
type Handler struct {
	engine Engine
	logger *logger.Logger
}

func New(engine Engine, logger *logger.Logger) *Handler {
	return &Handler{engine: engine, logger: logger}
}

// Init builds the route tree.
func (h *Handler) Init() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/healthz", h.health)
	router.Route("/api", func(r chi.Router) {
		r.Get("/metrics", h.metrics)
		r.Get("/changes", h.changes)
		r.Get("/conflicts", h.conflicts)
		r.Get("/schema", h.schema)
	})
	return router
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.engine.Metrics())
}

func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.engine.RecentChanges(listLimit(r)))
}

func (h *Handler) conflicts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.engine.Conflicts(listLimit(r)))
}

func (h *Handler) schema(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, h.engine.ReferenceSchema())
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("cannot encode response")
	}
}

func listLimit(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultListLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultListLimit
	}
	return limit
}

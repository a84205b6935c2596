// Command carbon-registry serves a fixed set of registry projects for local
// development and the e2e suite.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type project struct {
	GSID             string `json:"gsId"`
	AvailableForSale int64  `json:"availableForSale"`
	Timestamp        string `json:"timestamp"`
}

var defaultProjects = []project{
	{GSID: "GS-15234", AvailableForSale: 5000, Timestamp: "2025-01-15"},
	{GSID: "GS-99999", AvailableForSale: 0, Timestamp: "2025-01-20"},
}

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	projects, err := loadProjects(os.Getenv("REGISTRY_PROJECTS_FILE"))
	if err != nil {
		log.Error("load projects", "error", err)
		os.Exit(1)
	}

	addr := os.Getenv("REGISTRY_ADDR")
	if addr == "" {
		addr = ":8090"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(projects),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info("carbon registry listening", "addr", addr, "projects", len(projects))
	if err := srv.ListenAndServe(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newRouter(projects map[string]project) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Get("/projects/{projectID}", func(w http.ResponseWriter, r *http.Request) {
		p, ok := projects[chi.URLParam(r, "projectID")]
		if !ok {
			http.Error(w, "project not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	})
	return r
}

// loadProjects reads a JSON array of projects, falling back to the built-in
// fixtures when path is empty.
func loadProjects(path string) (map[string]project, error) {
	list := defaultProjects
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		list = nil
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	out := make(map[string]project, len(list))
	for _, p := range list {
		out[p.GSID] = p
	}
	return out, nil
}

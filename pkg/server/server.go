// Package server exposes the query facade over local HTTP. It is a thin
// wrapper: parameters in, engine call, JSON out. The desktop shell and the
// CLI client are its only intended consumers.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fileelf/fileelf/pkg/backend"
	"github.com/fileelf/fileelf/pkg/config"
	"github.com/sirupsen/logrus"
)

// Prefix is the path prefix every endpoint lives under.
const Prefix = "/file_elf"

// NewMux builds the route table for an engine.
func NewMux(e *backend.Engine) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc(Prefix+"/search", searchHandler(e))
	mux.HandleFunc(Prefix+"/hot_search", hotSearchHandler(e))
	mux.HandleFunc(Prefix+"/regex_search", regexSearchHandler(e))
	mux.HandleFunc(Prefix+"/star_path", starHandler(e))
	mux.HandleFunc(Prefix+"/unstar_path", unstarHandler(e))
	return mux
}

// Run serves the query surface until the listener fails.
func Run(e *backend.Engine, cfg *config.Config, port int) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	logStartup(cfg, addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(NewMux(e)),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return srv.ListenAndServe()
}

func logStartup(cfg *config.Config, addr string) {
	logrus.Infof("file-elf listening on http://%s%s", addr, Prefix)
	logrus.Infof("store: %s (%s)", cfg.Database.Path, storeSize(cfg.Database.Path))
	logrus.Infof("targets: %v", cfg.Database.Targets)
	logrus.Infof("hot directories: up to %d", cfg.Database.HotDirNum)
}

func storeSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "new"
	}
	return humanize.Bytes(uint64(info.Size()))
}

// withCORS stamps the permissive headers the shell expects onto every
// response and short-circuits preflight requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Allow-Credentials", "true")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func searchHandler(e *backend.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := r.URL.Query().Get("entry")
		fuzzy := boolParam(r, "is_fuzzy")
		writeHits(w, e.Search(entry, fuzzy))
	}
}

func hotSearchHandler(e *backend.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry := r.URL.Query().Get("entry")
		fuzzy := boolParam(r, "is_fuzzy")
		regex := boolParam(r, "is_regex")
		writeHits(w, e.HotSearch(entry, fuzzy, regex))
	}
}

func regexSearchHandler(e *backend.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeHits(w, e.RegexSearch(r.URL.Query().Get("path")))
	}
}

func starHandler(e *backend.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path_data")
		if path == "" {
			writeJSON(w, false)
			return
		}
		writeJSON(w, e.StarPath(path))
	}
}

func unstarHandler(e *backend.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path_data")
		if path == "" {
			writeJSON(w, false)
			return
		}
		writeJSON(w, e.UnstarPath(path))
	}
}

func boolParam(r *http.Request, name string) bool {
	return r.URL.Query().Get(name) == "true"
}

func writeHits(w http.ResponseWriter, hits []backend.Hit) {
	if hits == nil {
		hits = []backend.Hit{}
	}
	writeJSON(w, hits)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("server: encode response: %v", err)
	}
}

// Package daemontest provides an in-memory Kytos daemon for tests.
package daemontest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
)

// NApp is a NApp known to the fake daemon.
type NApp struct {
	Namespace string
	Name      string
	Meta      map[string]any
	Installed bool
	Enabled   bool
}

// Server fakes the daemon's core API. Installs succeed for NApps listed in
// Available.
type Server struct {
	*httptest.Server

	// Available holds the descriptors installs can fetch. Version and Roots
	// answer the metadata and config endpoints. Set them before issuing
	// requests.
	Available map[string]map[string]any
	Version   string
	Roots     map[string]string

	mu        sync.Mutex
	napps     map[string]*NApp
	calls     []string
	reloads     []string
	webStatus   int
	stateStatus int
}

// New starts a fake daemon holding napps.
func New(napps ...NApp) *Server {
	s := &Server{
		napps:     map[string]*NApp{},
		Available: map[string]map[string]any{},
		Version:   "2023.2.0",
		Roots:     map[string]string{"napps": "/var/lib/kytos/napps", "installed_napps": "/var/lib/kytos/napps/.installed"},
		webStatus:   http.StatusOK,
		stateStatus: http.StatusOK,
	}
	for _, n := range napps {
		s.napps[n.Namespace+"/"+n.Name] = &n
	}
	s.Server = httptest.NewServer(s.routes())
	return s
}

// State returns a copy of the named NApp, and whether it is known.
func (s *Server) State(id string) (NApp, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.napps[id]
	if !ok {
		return NApp{}, false
	}
	return *n, true
}

// Calls returns the requests served so far as "METHOD /path".
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Reloads returns the reload targets requested so far.
func (s *Server) Reloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reloads...)
}

// FailWebUpdate makes web updates answer status.
func (s *Server) FailWebUpdate(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.webStatus = status
}

// FailStateQueries makes the installed and enabled lists answer status.
func (s *Server) FailStateQueries(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stateStatus = status
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api/kytos/core", func(r chi.Router) {
		r.Get("/napps_enabled", s.list(func(n *NApp) bool { return n.Enabled }))
		r.Get("/napps_installed", s.list(func(n *NApp) bool { return n.Installed }))
		r.Get("/napps/{ns}/{name}/metadata/{key}", s.metadata)
		r.Get("/napps/{ns}/{name}/{op}", s.lifecycle)
		r.Get("/reload/all", s.reload)
		r.Get("/reload/{ns}/{name}", s.reload)
		r.Get("/config/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.Roots)
		})
		r.Get("/metadata/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"__version__": s.Version})
		})
		r.Post("/web/update", s.web)
		r.Post("/web/update/{version}", s.web)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, r.Method+" "+r.URL.Path)
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) list(keep func(*NApp) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stateStatus != http.StatusOK {
			http.Error(w, "state unavailable", s.stateStatus)
			return
		}
		pairs := [][]string{}
		for _, n := range s.napps {
			if keep(n) {
				pairs = append(pairs, []string{n.Namespace, n.Name})
			}
		}
		sort.Slice(pairs, func(i, j int) bool {
			return pairs[i][0]+"/"+pairs[i][1] < pairs[j][0]+"/"+pairs[j][1]
		})
		writeJSON(w, http.StatusOK, map[string]any{"napps": pairs})
	}
}

func (s *Server) metadata(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.napps[chi.URLParam(r, "ns")+"/"+chi.URLParam(r, "name")]
	if !ok || !n.Installed {
		writeJSON(w, http.StatusBadRequest, map[string]string{"response": "napp not installed"})
		return
	}
	key := chi.URLParam(r, "key")
	writeJSON(w, http.StatusOK, map[string]any{key: n.Meta[key]})
}

func (s *Server) lifecycle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "ns") + "/" + chi.URLParam(r, "name")
	n, known := s.napps[id]
	installed := known && n.Installed

	switch op := chi.URLParam(r, "op"); op {
	case "enable", "disable", "uninstall":
		if !installed {
			writeJSON(w, http.StatusBadRequest, map[string]string{"response": "napp not installed"})
			return
		}
		switch op {
		case "enable":
			n.Enabled = true
		case "disable":
			n.Enabled = false
		default:
			n.Installed, n.Enabled = false, false
		}
	case "install":
		meta, ok := s.Available[id]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"response": "napp not found on server"})
			return
		}
		if !known {
			n = &NApp{Namespace: chi.URLParam(r, "ns"), Name: chi.URLParam(r, "name")}
			s.napps[id] = n
		}
		n.Installed, n.Meta = true, meta
	default:
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": "ok"})
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := "all"
	if ns := chi.URLParam(r, "ns"); ns != "" {
		target = ns + "/" + chi.URLParam(r, "name")
		if n, ok := s.napps[target]; !ok || !n.Enabled {
			http.Error(w, "napp not enabled", http.StatusBadRequest)
			return
		}
	}
	s.reloads = append(s.reloads, target)
	writeJSON(w, http.StatusOK, "reloaded")
}

func (s *Server) web(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.webStatus
	s.mu.Unlock()
	if status != http.StatusOK {
		http.Error(w, "web update failed", status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"version": chi.URLParam(r, "version")})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

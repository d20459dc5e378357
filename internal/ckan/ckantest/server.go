// Package ckantest runs an in-memory CKAN action API for tests: enough of
// resource_show, package_list, package_show, and the datastore actions to
// exercise the loader end to end without a CKAN instance, plus a plain
// file endpoint so resource URLs resolve against the same server.
package ckantest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/ckanloader/internal/ckan"
)

// APIKey is the credential the server accepts on action calls.
const APIKey = "ckantest-api-key"

// Call records one action invocation the server handled.
type Call struct {
	Action string
	Params map[string]any
}

// TableState is the datastore table held for one resource.
type TableState struct {
	Fields  []map[string]any
	Records []map[string]any
}

type forcedError struct {
	status int
	errObj map[string]any
}

type fileEntry struct {
	contentType string
	body        []byte
}

// Server is a fake CKAN instance. Create one with New and stop it with
// Close; all methods are safe for concurrent use.
type Server struct {
	httpServer *httptest.Server

	mu         sync.Mutex
	resources  map[string]map[string]any
	packages   map[string]map[string]any
	packageIDs []string
	tables     map[string]*TableState
	calls      []Call
	failures   map[string]forcedError
	files      map[string]fileEntry
}

// New starts a fake CKAN server.
func New() *Server {
	s := &Server{
		resources: make(map[string]map[string]any),
		packages:  make(map[string]map[string]any),
		tables:    make(map[string]*TableState),
		failures:  make(map[string]forcedError),
		files:     make(map[string]fileEntry),
	}

	r := chi.NewRouter()
	r.Post("/api/3/action/{action}", s.handleAction)
	r.Get("/files/{name}", s.handleFile)
	s.httpServer = httptest.NewServer(r)
	return s
}

// Close shuts the server down.
func (s *Server) Close() {
	s.httpServer.Close()
}

// URL is the server's base URL.
func (s *Server) URL() string {
	return s.httpServer.URL
}

// Client returns an action client pointed at this server with the accepted
// API key.
func (s *Server) Client() *ckan.Client {
	return ckan.NewClient(s.URL(), APIKey, 10*time.Second)
}

// AddResource registers a resource record and returns its generated ID.
func (s *Server) AddResource(url string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[id] = map[string]any{"id": id, "url": url}
	return id
}

// AddFile serves body at /files/<name> with the given Content-Type and
// registers a resource pointing at it. It returns the resource ID.
func (s *Server) AddFile(name, contentType string, body []byte) string {
	s.mu.Lock()
	s.files[name] = fileEntry{contentType: contentType, body: body}
	s.mu.Unlock()
	return s.AddResource(s.URL() + "/files/" + name)
}

// AddPackage registers a package whose resources are the already-added
// resource IDs, in order, and returns the package name.
func (s *Server) AddPackage(name string, resourceIDs ...string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	resources := make([]map[string]any, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		if res, ok := s.resources[id]; ok {
			resources = append(resources, res)
		}
	}
	s.packages[name] = map[string]any{"id": name, "name": name, "resources": resources}
	s.packageIDs = append(s.packageIDs, name)
	return name
}

// FailAction makes the next calls to action fail with the given status and
// error object until cleared with an empty status.
func (s *Server) FailAction(action string, status int, errObj map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, action)
		return
	}
	s.failures[action] = forcedError{status: status, errObj: errObj}
}

// Calls returns the recorded invocations of one action, in order.
func (s *Server) Calls(action string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Table returns a copy of the datastore table for a resource, or nil when
// none exists.
func (s *Server) Table(resourceID string) *TableState {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[resourceID]
	if !ok {
		return nil
	}
	cp := &TableState{
		Fields:  append([]map[string]any(nil), t.Fields...),
		Records: append([]map[string]any(nil), t.Records...),
	}
	return cp
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	entry, ok := s.files[chi.URLParam(r, "name")]
	s.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	if entry.contentType != "" {
		w.Header().Set("Content-Type", entry.contentType)
	}
	w.Write(entry.body)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	if r.Header.Get("Authorization") != APIKey {
		writeError(w, http.StatusForbidden, map[string]any{
			"__type":  "Authorization Error",
			"message": "Access denied",
		})
		return
	}

	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, map[string]any{
			"__type":  "Validation Error",
			"message": "Invalid request body",
		})
		return
	}

	s.mu.Lock()
	s.calls = append(s.calls, Call{Action: action, Params: params})
	forced, hasForced := s.failures[action]
	s.mu.Unlock()
	if hasForced {
		writeError(w, forced.status, forced.errObj)
		return
	}

	switch action {
	case "resource_show":
		s.resourceShow(w, params)
	case "package_list":
		s.packageList(w)
	case "package_show":
		s.packageShow(w, params)
	case "datastore_delete":
		s.datastoreDelete(w, params)
	case "datastore_create":
		s.datastoreCreate(w, params)
	case "datastore_upsert":
		s.datastoreUpsert(w, params)
	default:
		writeError(w, http.StatusBadRequest, map[string]any{
			"message": "Action name not known: " + action,
		})
	}
}

func (s *Server) resourceShow(w http.ResponseWriter, params map[string]any) {
	id, _ := params["id"].(string)
	s.mu.Lock()
	res, ok := s.resources[id]
	s.mu.Unlock()
	if !ok {
		writeNotFound(w)
		return
	}
	writeResult(w, res)
}

func (s *Server) packageList(w http.ResponseWriter) {
	s.mu.Lock()
	ids := append([]string(nil), s.packageIDs...)
	s.mu.Unlock()
	writeResult(w, ids)
}

func (s *Server) packageShow(w http.ResponseWriter, params map[string]any) {
	id, _ := params["id"].(string)
	s.mu.Lock()
	pkg, ok := s.packages[id]
	s.mu.Unlock()
	if !ok {
		writeNotFound(w)
		return
	}
	writeResult(w, pkg)
}

func (s *Server) datastoreDelete(w http.ResponseWriter, params map[string]any) {
	id, _ := params["resource_id"].(string)
	s.mu.Lock()
	_, ok := s.tables[id]
	if ok {
		delete(s.tables, id)
	}
	s.mu.Unlock()
	if !ok {
		writeNotFound(w)
		return
	}
	writeResult(w, map[string]any{"resource_id": id})
}

func (s *Server) datastoreCreate(w http.ResponseWriter, params map[string]any) {
	id, _ := params["resource_id"].(string)
	if id == "" {
		writeError(w, http.StatusBadRequest, map[string]any{
			"__type":      "Validation Error",
			"resource_id": []string{"Missing value"},
		})
		return
	}
	var fields []map[string]any
	if raw, ok := params["fields"].([]any); ok {
		for _, f := range raw {
			if m, ok := f.(map[string]any); ok {
				fields = append(fields, m)
			}
		}
	}
	s.mu.Lock()
	s.tables[id] = &TableState{Fields: fields}
	s.mu.Unlock()
	writeResult(w, map[string]any{"resource_id": id, "fields": fields})
}

func (s *Server) datastoreUpsert(w http.ResponseWriter, params map[string]any) {
	id, _ := params["resource_id"].(string)
	s.mu.Lock()
	table, ok := s.tables[id]
	if ok {
		if raw, isList := params["records"].([]any); isList {
			for _, rec := range raw {
				if m, isMap := rec.(map[string]any); isMap {
					table.Records = append(table.Records, m)
				}
			}
		}
	}
	s.mu.Unlock()
	if !ok {
		writeNotFound(w)
		return
	}
	writeResult(w, map[string]any{"resource_id": id})
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"help":    "",
		"success": true,
		"result":  result,
	})
}

func writeError(w http.ResponseWriter, status int, errObj map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"help":    "",
		"success": false,
		"error":   errObj,
	})
}

func writeNotFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, map[string]any{
		"__type":  "Not Found Error",
		"message": "Not found",
	})
}

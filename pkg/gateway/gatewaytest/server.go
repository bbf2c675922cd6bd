// Package gatewaytest provides an in-process fake of the gateway config RPC
// endpoint for tests.
package gatewaytest

import (
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// Server is a fake gateway. config.get serves its document and config.patch
// deep-merges into it.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	config    map[string]any
	token     string
	rejected  map[string]bool
	down      bool
	failPatch bool
	disabled  map[string]bool
	calls     map[string]int
}

// NewServer starts a fake gateway serving config. It is closed when the test ends.
func NewServer(t *testing.T, config string) *Server {
	t.Helper()

	s := &Server{
		rejected: map[string]bool{},
		disabled: map[string]bool{},
		calls:    map[string]int{},
	}
	if err := json.Unmarshal([]byte(config), &s.config); err != nil {
		t.Fatalf("invalid fake gateway config: %v", err)
	}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// RequireToken makes every call require the bearer token.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Reject makes config.patch refuse id with an unknown_model error.
func (s *Server) Reject(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejected[id] = true
}

// SetDown makes every call fail with HTTP 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// SetFailPatch makes config.patch fail with a generic envelope error.
func (s *Server) SetFailPatch(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failPatch = fail
}

// Disable makes method answer 404 with an unknown_method error, like a
// gateway version that does not implement it.
func (s *Server) Disable(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled[method] = true
}

// Primary returns agents.defaults.model.primary from the fake's config.
func (s *Server) Primary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, _ := json.Marshal(s.config)
	return gjson.GetBytes(data, "agents.defaults.model.primary").String()
}

// CallCount returns how many times method was called.
func (s *Server) CallCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid envelope")
		return
	}
	s.calls[req.Method]++

	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeError(w, http.StatusUnauthorized, "", "unauthorized")
		return
	}
	if s.down {
		writeError(w, http.StatusServiceUnavailable, "", "gateway restarting")
		return
	}

	if s.disabled[req.Method] {
		writeError(w, http.StatusNotFound, "unknown_method", "unknown method "+req.Method)
		return
	}

	switch req.Method {
	case "config.get":
		writeResult(w, map[string]any{"config": s.config, "hash": "test"})
	case "config.patch":
		if s.failPatch {
			writeError(w, http.StatusOK, "internal", "patch failed")
			return
		}
		var patch map[string]any
		if err := json.Unmarshal(req.Params, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid patch")
			return
		}
		if model := gjson.GetBytes(req.Params, "agents.defaults.model.primary").String(); s.rejected[model] {
			writeError(w, http.StatusOK, "unknown_model", "Unknown model: "+model)
			return
		}
		merge(s.config, patch)
		writeResult(w, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "unknown_method", "unknown method "+req.Method)
	}
}

func merge(dst, patch map[string]any) {
	for k, v := range patch {
		if pv, ok := v.(map[string]any); ok {
			if dv, ok := dst[k].(map[string]any); ok {
				merge(dv, pv)
				continue
			}
			dst[k] = maps.Clone(pv)
			continue
		}
		dst[k] = v
	}
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"message": message}
	if code != "" {
		body["code"] = code
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"error": body})
}

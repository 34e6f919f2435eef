package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/attachkit/internal/actions"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/platform"
	"github.com/soyeahso/attachkit/internal/routing"
)

// EventAttachmentSent is pushed to every client when a payload is delivered.
const EventAttachmentSent = routing.EventAttachmentSent

// safeConfigPrefixes lists config path prefixes that can be read and
// written via RPC. All other paths are denied by default (allowlist).
var safeConfigPrefixes = []string{
	"gateway.port",
	"gateway.bind",
	"gateway.customBindHost",
	"gateway.allowedOrigins",
	"logging",
	"storage.backend",
	"storage.naming",
	"storage.maxBytes",
	"permissions",
}

func isAllowedConfigPath(key string) bool {
	for _, prefix := range safeConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// actionTimeout bounds one actions.run request, upload included.
const actionTimeout = 2 * time.Minute

// defaultListLimit applies when a list RPC omits limit.
const defaultListLimit = 50

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /media/{name}", s.handleMedia)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("config.get", s.rpcConfigGet)
	s.Handle("config.set", s.rpcConfigSet)
	s.Handle("channels.status", s.rpcChannelsStatus)
	s.Handle("actions.run", s.rpcActionsRun)
	s.Handle("outbox.list", s.rpcOutboxList)
	s.Handle("uploads.list", s.rpcUploadsList)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
		Backend: s.backend(),
	})
}

func (s *Server) backend() string {
	if s.cfg.Storage.Backend == "" {
		return "disk"
	}
	return s.cfg.Storage.Backend
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	s.mu.RLock()
	raw := s.configRaw
	s.mu.RUnlock()

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	val, ok := getValueAtPathRPC(raw, path)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

type configSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) rpcConfigSet(rc *RequestContext) {
	var p configSetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "cannot modify config path: "+p.Key)
		return
	}

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	setValueAtPathRPC(s.configRaw, path, p.Value)
	s.mu.Unlock()

	rc.Respond(map[string]any{"key": p.Key, "value": p.Value})
}

func (s *Server) rpcChannelsStatus(rc *RequestContext) {
	if s.channels != nil {
		rc.Respond(map[string]any{"channels": s.channels.Status()})
		return
	}
	rc.Respond(map[string]any{"channels": []any{}})
}

type actionsRunParams struct {
	Choice string `json:"choice"`
	URI    string `json:"uri,omitempty"`
}

// rpcActionsRun runs one attachment flow. Library and camera choices take the
// image reference from the uri param. References outside the reference
// policy end the flow as permission_denied.
func (s *Server) rpcActionsRun(rc *RequestContext) {
	if s.controls == nil {
		rc.RespondError("unavailable", "attachment actions are not configured")
		return
	}

	var p actionsRunParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	choice, ok := domain.ParseChoice(p.Choice)
	if !ok {
		rc.RespondError("invalid_params", "unknown choice: "+p.Choice)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
	defer cancel()

	picker := platform.RefPicker{URI: p.URI, Policy: s.refs}
	res := s.controls(picker).Run(ctx, choice)
	if res.Outcome == actions.PermissionDenied && p.URI != "" {
		s.log.Warn().Str("choice", choice.String()).Str("uri", p.URI).Msg("attachment request denied")
	}
	rc.Respond(res)
}

type listParams struct {
	Limit int `json:"limit,omitempty"`
}

func (p listParams) limit() int {
	if p.Limit <= 0 {
		return defaultListLimit
	}
	return p.Limit
}

func (s *Server) rpcOutboxList(rc *RequestContext) {
	if s.outbox == nil {
		rc.Respond(map[string]any{"entries": []any{}})
		return
	}
	var p listParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	entries, err := s.outbox.List(context.Background(), p.limit())
	if err != nil {
		rc.RespondError("internal", err.Error())
		return
	}
	rc.Respond(map[string]any{"entries": entries})
}

func (s *Server) rpcUploadsList(rc *RequestContext) {
	if s.uploads == nil {
		rc.Respond(map[string]any{"uploads": []any{}})
		return
	}
	var p listParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	records, err := s.uploads.List(context.Background(), p.limit())
	if err != nil {
		rc.RespondError("internal", err.Error())
		return
	}
	rc.Respond(map[string]any{"uploads": records})
}

// Helpers that mirror config.ParseConfigPath / GetValueAtPath on raw maps.

func parseConfigPathForRPC(raw string) ([]string, error) {
	if raw == "" {
		return nil, ErrEmptyConfigPath
	}
	var parts []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '.' {
			if i == start {
				return nil, ErrEmptyConfigPath
			}
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	return parts, nil
}

func getValueAtPathRPC(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setValueAtPathRPC(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}

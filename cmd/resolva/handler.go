package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-mizutani/resolva"
)

type resolveRequest struct {
	Query    string `json:"query"`
	Strategy string `json:"strategy,omitempty"`
}

type compareRequest struct {
	Query      string   `json:"query"`
	Strategies []string `json:"strategies,omitempty"`
}

type toolRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"strategies": s.engine.Strategies(),
	})
}

func (s *server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	specs := s.engine.Specs()
	out := make([]map[string]any, 0, len(specs))
	for _, spec := range specs {
		params := map[string]any{}
		for name, p := range spec.Parameters {
			entry := map[string]any{
				"type":        string(p.Type),
				"description": p.Description,
			}
			if len(p.Enum) > 0 {
				entry["enum"] = p.Enum
			}
			if p.Default != nil {
				entry["default"] = p.Default
			}
			params[name] = entry
		}
		out = append(out, map[string]any{
			"name":        spec.Name,
			"description": spec.Description,
			"parameters":  params,
			"required":    spec.Required,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	var answer *resolva.Answer
	var err error
	if req.Strategy != "" {
		answer, err = s.engine.ResolveWith(r.Context(), req.Query, req.Strategy)
	} else {
		answer, err = s.engine.Resolve(r.Context(), req.Query)
	}
	if err != nil {
		s.logger.Error("resolve failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, errors.New("query is required"))
		return
	}

	strategies := req.Strategies
	if len(strategies) == 0 {
		strategies = s.engine.Strategies()
	}

	comparison, err := s.engine.Compare(r.Context(), req.Query, strategies...)
	if err != nil {
		s.logger.Error("compare failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, comparison)
}

func (s *server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, errors.New("tool is required"))
		return
	}

	result, err := s.engine.ExecuteTool(r.Context(), req.Tool, req.Args)
	if err != nil {
		s.logger.Error("tool execution failed", "tool", req.Tool, "error", err)
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tool":   req.Tool,
		"result": result,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, resolva.ErrInvalidArgument),
		errors.Is(err, resolva.ErrUnknownTool),
		errors.Is(err, resolva.ErrUnknownStrategy):
		return http.StatusBadRequest
	case errors.Is(err, resolva.ErrSessionTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

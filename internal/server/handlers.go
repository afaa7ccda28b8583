package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jonathan/taskhub/internal/catalog"
	"github.com/jonathan/taskhub/internal/estimate"
	"github.com/jonathan/taskhub/internal/preferences"
	"github.com/jonathan/taskhub/internal/results"
	"github.com/jonathan/taskhub/internal/schemas"
	"github.com/jonathan/taskhub/internal/server/middleware"
	"github.com/jonathan/taskhub/internal/types"
)

const maxBodyBytes = 1 << 20

// ProviderModels is one provider group in the /models response.
type ProviderModels struct {
	Provider string                  `json:"provider"`
	Models   []types.ModelDescriptor `json:"models"`
}

// TaskInfo describes a task type and its model selection.
type TaskInfo struct {
	ID            types.TaskType  `json:"id"`
	Name          string          `json:"name"`
	Input         types.InputKind `json:"input"`
	DefaultModel  string          `json:"default_model"`
	SelectedModel string          `json:"selected_model"`
}

// EstimateResponse is a quote plus the balance check outcome when a balance was sent.
type EstimateResponse struct {
	types.Quote
	Sufficient *bool `json:"sufficient,omitempty"`
}

// NormalizeResponse wraps a rendered view with its kind.
type NormalizeResponse struct {
	Kind string       `json:"kind"`
	View results.View `json:"view"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModels(w http.ResponseWriter, _ *http.Request) {
	grouped := s.catalog.ListAll()
	out := make([]ProviderModels, 0, len(grouped))
	for _, provider := range s.catalog.Providers() {
		out = append(out, ProviderModels{Provider: provider, Models: grouped[provider]})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	store := s.storeFor(r.Context(), userID)

	out := make([]TaskInfo, 0, len(types.AllTasks))
	for _, task := range types.AllTasks {
		out = append(out, TaskInfo{
			ID:            task,
			Name:          task.DisplayName(),
			Input:         task.Input(),
			DefaultModel:  catalog.TaskDefault(task),
			SelectedModel: store.Get(task),
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req types.EstimateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errResponse(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}

	model := req.Model
	if model == "" {
		userID, err := middleware.GetUserID(r)
		if err != nil {
			s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		model = s.storeFor(r.Context(), userID).Get(req.Task)
	}

	quote := s.estimator.Quote(req.Task, req.ContentSize, model)
	resp := EstimateResponse{Quote: quote}

	if req.Balance != nil {
		err := estimate.CheckBalance(quote.Credits, *req.Balance)
		ok := err == nil
		resp.Sufficient = &ok
		if err != nil {
			s.jsonResponse(w, http.StatusPaymentRequired, map[string]any{
				"error":     "insufficient_credits",
				"message":   err.Error(),
				"required":  quote.Credits,
				"available": *req.Balance,
				"quote":     quote,
			})
			return
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.jsonResponse(w, http.StatusOK, s.storeFor(r.Context(), userID).Snapshot())
}

func (s *Server) handleSetPreference(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	task := types.TaskType(r.PathValue("task"))
	if !task.Valid() {
		s.errResponse(w, &preferences.ErrUnknownTask{Task: task})
		return
	}

	var req types.SetPreferenceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errResponse(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.errResponse(w, &ErrValidation{Field: "model", Message: err.Error()})
		return
	}

	store := s.storeFor(r.Context(), userID)
	if err := store.Set(r.Context(), task, req.Model); err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, store.Snapshot())
}

func (s *Server) handleResetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	store := s.storeFor(r.Context(), userID)
	if err := store.Reset(r.Context()); err != nil {
		s.errResponse(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, store.Snapshot())
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.errResponse(w, err)
		return
	}

	if r.URL.Query().Get("strict") == "true" {
		if err := schemas.ValidateAnalysisResult(body); err != nil {
			var ve *schemas.ValidationError
			if errors.As(err, &ve) {
				s.jsonResponse(w, http.StatusBadRequest, map[string]any{
					"error":  "invalid_request",
					"fields": ve.Errors,
				})
				return
			}
			s.errResponse(w, &ErrValidation{Field: "body", Message: err.Error()})
			return
		}
	}

	view, err := s.normalizer.RenderJSON(body)
	if err != nil {
		s.errResponse(w, &ErrValidation{Field: "body", Message: err.Error()})
		return
	}
	s.jsonResponse(w, http.StatusOK, NormalizeResponse{Kind: view.Kind(), View: view})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &ErrBodyTooLarge{Limit: tooLarge.Limit}
		}
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) error {
	body, err := readBody(w, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	return nil
}

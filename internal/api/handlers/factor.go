package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/xb1002/FactorFrameworkV2/internal/admission"
	"github.com/xb1002/FactorFrameworkV2/internal/contracts"
	"github.com/xb1002/FactorFrameworkV2/internal/evaluation"
	"github.com/xb1002/FactorFrameworkV2/internal/library"
	"github.com/xb1002/FactorFrameworkV2/pkg/logger"
)

// FactorService is the part of library.Service the handlers use.
type FactorService interface {
	Candidates() []string
	Evaluators() []string
	LoadPanel(ctx context.Context) (*contracts.Panel, error)
	Evaluate(ctx context.Context, name string, panel *contracts.Panel, horizons []int) (*library.Outcome, error)
	Entries(ctx context.Context) ([]library.FactorEntry, error)
	Entry(ctx context.Context, name, version string) (*library.FactorEntry, error)
}

// FactorHandler serves evaluation and library endpoints
type FactorHandler struct {
	service FactorService
	logger  *logger.Logger
}

// NewFactorHandler creates a new factor handler
func NewFactorHandler(service FactorService, log *logger.Logger) *FactorHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &FactorHandler{
		service: service,
		logger:  log.WithComponent("api"),
	}
}

// ListEvaluators returns the registered evaluator names
// GET /api/evaluators
func (h *FactorHandler) ListEvaluators(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"evaluators": h.service.Evaluators(),
	})
}

// FactorsResponse lists the library and the evaluable candidates
type FactorsResponse struct {
	Library    []library.FactorEntry `json:"library"`
	Candidates []string              `json:"candidates"`
}

// ListFactors returns library entries and profile candidates
// GET /api/factors
func (h *FactorHandler) ListFactors(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.Entries(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list library")
		respondError(w, http.StatusInternalServerError, "Failed to list factor library")
		return
	}
	if entries == nil {
		entries = []library.FactorEntry{}
	}

	respondJSON(w, http.StatusOK, FactorsResponse{
		Library:    entries,
		Candidates: h.service.Candidates(),
	})
}

// GetFactor returns one library entry
// GET /api/factors/{name}?version=v1
func (h *FactorHandler) GetFactor(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	version := r.URL.Query().Get("version")

	entry, err := h.service.Entry(r.Context(), name, version)
	if errors.Is(err, library.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Factor not in library: "+name)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("factor", name).Error("Failed to load factor")
		respondError(w, http.StatusInternalServerError, "Failed to load factor")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// EvaluateRequest asks for one candidate evaluation
type EvaluateRequest struct {
	Factor    string `json:"factor"`
	Horizons  []int  `json:"horizons,omitempty"` // default: profile horizons
	Artifacts bool   `json:"artifacts,omitempty"`
}

// EvaluateResponse carries per-horizon results and the admission decision
type EvaluateResponse struct {
	Factor   string                 `json:"factor"`
	Decision admission.Decision     `json:"decision"`
	Results  []contracts.EvalRecord `json:"results"`
}

// Evaluate evaluates a candidate without admitting it
// POST /api/evaluate
func (h *FactorHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Factor == "" {
		respondError(w, http.StatusBadRequest, "factor is required")
		return
	}
	if len(req.Horizons) > 0 {
		if err := evaluation.ValidateHorizons(req.Horizons); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	panel, err := h.service.LoadPanel(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load panel")
		respondError(w, http.StatusInternalServerError, "Failed to load panel")
		return
	}

	out, err := h.service.Evaluate(ctx, req.Factor, panel, req.Horizons)
	if err != nil {
		h.respondEvalError(w, req.Factor, err)
		return
	}

	resp := EvaluateResponse{
		Factor:   out.Factor,
		Decision: out.Decision,
		Results:  make([]contracts.EvalRecord, 0, len(out.Results)),
	}
	for _, hz := range evaluation.SortedHorizons(out.Results) {
		resp.Results = append(resp.Results, out.Results[hz].Record(req.Artifacts))
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *FactorHandler) respondEvalError(w http.ResponseWriter, factor string, err error) {
	var (
		schemaErr  *contracts.SchemaError
		horizonErr *contracts.InvalidHorizonError
	)
	switch {
	case errors.Is(err, library.ErrUnknownFactor):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &schemaErr), errors.As(err, &horizonErr):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.WithError(err).WithField("factor", factor).Error("Evaluation failed")
		respondError(w, http.StatusInternalServerError, "Evaluation failed")
	}
}

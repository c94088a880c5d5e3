package api

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/nvalden/numlab-api/internal/api/shared"
	"github.com/nvalden/numlab-api/internal/domain"
	"github.com/nvalden/numlab-api/internal/service"
)

// RunHandler handles solver-run API requests.
type RunHandler struct {
	runService service.RunService
	validator  *validator.Validate
}

// NewRunHandler creates a new RunHandler with the given dependencies.
func NewRunHandler(runService service.RunService) *RunHandler {
	return &RunHandler{
		runService: runService,
		validator:  validator.New(),
	}
}

// runResponse converts a domain run into its API representation.
func runResponse(run *domain.Run) RunResponse {
	return RunResponse{
		ID:        run.ID,
		Algorithm: run.Algorithm,
		Params:    run.Params,
		Status:    string(run.Status),
		Result:    run.Result,
		Trace:     run.Trace,
		Error:     run.Error,
		CreatedAt: run.CreatedAt,
		UpdatedAt: run.UpdatedAt,
	}
}

// CreateRun handles POST /runs: record a run and schedule it for
// background execution. The response carries the pending run; clients
// poll GET /runs/{id} for the result.
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateRunRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	run, err := h.runService.CreateRun(r.Context(), userID, req.Algorithm, req.Params)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, runResponse(run))
}

// GetRun handles GET /runs/{id}.
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	userID, runID, ok := handleUserIDAndPathUUID(w, r, "id", nil)
	if !ok {
		return
	}

	run, err := h.runService.GetRun(r.Context(), userID, runID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, runResponse(run))
}

// ListRuns handles GET /runs with optional limit and offset query
// parameters.
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	limit := parseIntQuery(r, "limit", service.DefaultRunPageSize)
	offset := parseIntQuery(r, "offset", 0)

	runs, err := h.runService.ListRuns(r.Context(), userID, limit, offset)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	resp := RunListResponse{
		Runs:   make([]RunResponse, 0, len(runs)),
		Limit:  limit,
		Offset: offset,
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runResponse(run))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// ListAlgorithms handles GET /algorithms.
func (h *RunHandler) ListAlgorithms(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, AlgorithmsResponse{
		Algorithms: h.runService.Algorithms(),
	})
}

// parseIntQuery reads a non-negative integer query parameter, falling
// back to def when absent or malformed.
func parseIntQuery(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}

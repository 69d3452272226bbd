package ui

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"enemtri/app"
	"enemtri/domain/core"
	"enemtri/domain/exam"
	apperrors "enemtri/internal/errors"
	"enemtri/internal/report"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleCreateSimulation runs a full simulation for the posted attempt.
func (a *App) handleCreateSimulation(w http.ResponseWriter, r *http.Request) {
	var req app.SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, apperrors.InvalidInput("request body is not valid JSON"))
		return
	}

	outcome, err := a.service.Run(r.Context(), req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, outcome)
}

// handleSimulationReport renders the current attempt's report. The default
// response is HTML; format=markdown returns the raw document.
func (a *App) handleSimulationReport(w http.ResponseWriter, r *http.Request) {
	outcome, err := a.service.RunFromHistory(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}

	data := report.Data{
		Year:           outcome.ReferenceYear,
		Result:         outcome.Result,
		Factors:        outcome.Factors,
		PreviousScores: outcome.Comparison,
	}
	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(a.reports.Markdown(data)))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(a.reports.HTML(data))
}

// handleAreaScore estimates a single area score from ?correct=N.
func (a *App) handleAreaScore(w http.ResponseWriter, r *http.Request) {
	area, correct, confidence, err := a.areaQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	estimate, err := a.service.EstimateArea(r.Context(), area, correct, confidence)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}

// handleAreaInterval returns only the confidence interval for an area.
func (a *App) handleAreaInterval(w http.ResponseWriter, r *http.Request) {
	area, correct, confidence, err := a.areaQuery(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	estimate, err := a.service.EstimateArea(r.Context(), area, correct, confidence)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if estimate.Interval == nil {
		a.writeError(w, core.ErrNoData)
		return
	}
	writeJSON(w, http.StatusOK, estimate.Interval)
}

// handleAreaFactors returns the conversion factor evolution for an area.
func (a *App) handleAreaFactors(w http.ResponseWriter, r *http.Request) {
	area, err := parseArea(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	points, err := a.service.FactorEvolution(r.Context(), area)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"area": area, "factors": points})
}

// handleStatistics returns the stored statistics for one year.
func (a *App) handleStatistics(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		a.writeError(w, apperrors.InvalidInput("year must be an integer"))
		return
	}

	record, err := a.service.Statistics(r.Context(), year)
	if err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// areaQuery parses the common {area} + ?correct + ?confidence inputs.
func (a *App) areaQuery(r *http.Request) (exam.Area, int, float64, error) {
	area, err := parseArea(r)
	if err != nil {
		return "", 0, 0, err
	}

	correct, err := strconv.Atoi(r.URL.Query().Get("correct"))
	if err != nil {
		return "", 0, 0, apperrors.InvalidInput("correct must be an integer")
	}

	confidence := 0.0
	if raw := r.URL.Query().Get("confidence"); raw != "" {
		confidence, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", 0, 0, apperrors.InvalidInput("confidence must be a number")
		}
	}
	return area, correct, confidence, nil
}

func parseArea(r *http.Request) (exam.Area, error) {
	return exam.ParseArea(chi.URLParam(r, "area"))
}

// writeError maps domain and application errors onto HTTP statuses.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrLengthMismatch),
		errors.Is(err, core.ErrUnsupportedArea):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrUnknownArea),
		errors.Is(err, core.ErrNoData):
		status = http.StatusNotFound
	default:
		switch apperrors.GetCode(err) {
		case apperrors.CodeInvalidInput, apperrors.CodeValidationError:
			status = http.StatusBadRequest
		case apperrors.CodeNotFound:
			status = http.StatusNotFound
		case apperrors.CodeUnsupported:
			status = http.StatusUnprocessableEntity
		}
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: apperrors.GetCode(err)})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

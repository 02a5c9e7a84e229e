package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/contracts"
	"github.com/viralforge/mesh/services/financial-rails/M15-campaign-funding-service/internal/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) startProject(w http.ResponseWriter, r *http.Request) {
	var req contracts.StartProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	project, err := h.service.StartProject(r.Context(), actor, application.StartProjectInput{
		TargetAmount: req.TargetAmount,
		Duration:     time.Duration(req.DurationSeconds) * time.Second,
	})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "campaign started", toProjectResponse(project))
}

func (h *Handler) contribute(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	var req contracts.ContributeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid json body", requestIDFromContext(r.Context()))
		return
	}
	actor := actorFromContext(r.Context())
	contribution, err := h.service.Contribute(r.Context(), actor, application.ContributeInput{
		ProjectID: projectID,
		Amount:    req.Amount,
	})
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusCreated, "contribution recorded", contracts.ContributionResponse{
		ProjectID:   contribution.ProjectID,
		Contributor: contribution.Contributor,
		Amount:      contribution.Amount,
		Position:    contribution.Position,
	})
}

func (h *Handler) claimFunds(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	actor := actorFromContext(r.Context())
	project, err := h.service.ClaimFunds(r.Context(), actor, projectID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "funds claimed", toProjectResponse(project))
}

func (h *Handler) repayContributors(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	actor := actorFromContext(r.Context())
	batch, err := h.service.RepayContributors(r.Context(), actor, projectID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "refund batch processed", contracts.RepayResponse{
		ProjectID: batch.ProjectID,
		FromIndex: batch.FromIndex,
		ToIndex:   batch.ToIndex,
		PaidCount: len(batch.Payments),
		Done:      batch.Done,
	})
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	project, err := h.service.GetProject(r.Context(), projectID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "project", toProjectResponse(project))
}

func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	progress, err := h.service.GetProgress(r.Context(), projectID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "progress", contracts.ProgressResponse{
		ProjectID:    projectID,
		RaisedAmount: progress.RaisedAmount,
		TargetAmount: progress.TargetAmount,
	})
}

func (h *Handler) getContribution(w http.ResponseWriter, r *http.Request) {
	projectID, ok := projectIDParam(w, r)
	if !ok {
		return
	}
	contributor := chi.URLParam(r, "contributor")
	contribution, err := h.service.GetContribution(r.Context(), projectID, contributor)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "contribution", contracts.ContributionResponse{
		ProjectID:   contribution.ProjectID,
		Contributor: contribution.Contributor,
		Amount:      contribution.Amount,
		Position:    contribution.Position,
	})
}

func (h *Handler) getToken(w http.ResponseWriter, r *http.Request) {
	token := h.service.TokenIdentity()
	writeSuccess(w, http.StatusOK, "token", contracts.TokenResponse{
		Symbol:   token.Symbol,
		Address:  token.Address,
		Decimals: token.Decimals,
	})
}

func projectIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	raw := chi.URLParam(r, "projectID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid project id", requestIDFromContext(r.Context()))
		return 0, false
	}
	return id, true
}

func toProjectResponse(project domain.Project) contracts.ProjectResponse {
	return contracts.ProjectResponse{
		ProjectID:            project.ProjectID,
		TargetAmount:         project.TargetAmount,
		RaisedAmount:         project.RaisedAmount,
		Deadline:             project.Deadline.Format(time.RFC3339),
		IsActive:             project.IsActive,
		LastContributorIndex: project.LastContributorIndex,
		ContributorCount:     project.ContributorCount,
	}
}

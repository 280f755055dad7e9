package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"loan-tracker/internal/api/handler/dto"
	"loan-tracker/internal/domain/client"
	"loan-tracker/internal/pkg/apperrors"
)

type ClientHandler struct {
	service client.ClientService
	logger  *slog.Logger
}

func NewClientHandler(s client.ClientService, l *slog.Logger) *ClientHandler {
	if s == nil {
		panic("client service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &ClientHandler{
		service: s,
		logger:  l.With("component", "ClientHandler"),
	}
}

// logServiceError logs not-found and validation failures at warn level, the rest at error.
func (h *ClientHandler) logServiceError(r *http.Request, msg string, err error) {
	level := slog.LevelError
	if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrValidation) ||
		errors.Is(err, apperrors.ErrAlreadyExists) || errors.Is(err, client.ErrClientHasActiveLoans) {
		level = slog.LevelWarn
	}
	h.logger.Log(r.Context(), level, msg, slog.Any("error", err))
}

// CreateClient handles POST /clients
// @Summary Register a client
// @Description Creates an active client. The document must be unique.
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body dto.ClientRequest true "Client details"
// @Success 201 {object} dto.ClientResponse "Client successfully created"
// @Failure 400 {object} dto.ErrorResponse "Missing required fields"
// @Failure 409 {object} dto.ErrorResponse "Document already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients [post]
// @Security BearerAuth
func (h *ClientHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req dto.ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.CreateClient(r.Context(), req.Details())
	if err != nil {
		h.logServiceError(r, "Service failed to create client", err)
		respondError(w, err)
		return
	}

	resp := dto.NewClientResponse(created)
	h.logger.InfoContext(r.Context(), "Client created successfully", slog.String("clientID", resp.ID))
	respondJSON(w, http.StatusCreated, resp)
}

// GetClient handles GET /clients/{clientID}
// @Summary Retrieve client details
// @Tags Clients
// @Produce json
// @Param clientID path string true "Client ID"
// @Success 200 {object} dto.ClientResponse "Client details retrieved"
// @Failure 400 {object} dto.ErrorResponse "Invalid client ID format"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients/{clientID} [get]
// @Security BearerAuth
func (h *ClientHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuidFromURL(r, "clientID")
	if err != nil {
		respondError(w, err)
		return
	}

	c, err := h.service.GetClient(r.Context(), clientID)
	if err != nil {
		h.logServiceError(r, "Service failed to get client", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewClientResponse(c))
}

// ListClients handles GET /clients
// @Summary List clients
// @Description Lists clients, most recently registered first. With active=true only active clients are returned.
// @Tags Clients
// @Produce json
// @Param active query bool false "Only active clients" Example(true)
// @Success 200 {array} dto.ClientResponse "List of clients"
// @Failure 400 {object} dto.ErrorResponse "Invalid query parameter"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients [get]
// @Security BearerAuth
func (h *ClientHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, fmt.Errorf("%w: invalid active flag: %s", apperrors.ErrInvalidArgument, raw))
			return
		}
		activeOnly = v
	}

	clients, err := h.service.ListClients(r.Context(), activeOnly)
	if err != nil {
		h.logServiceError(r, "Service failed to list clients", err)
		respondError(w, err)
		return
	}

	h.logger.DebugContext(r.Context(), "Clients listed", slog.Int("count", len(clients)))
	respondJSON(w, http.StatusOK, dto.NewClientResponses(clients))
}

// UpdateClient handles PUT /clients/{clientID}
// @Summary Update client details
// @Tags Clients
// @Accept json
// @Produce json
// @Param clientID path string true "Client ID"
// @Param request body dto.ClientRequest true "Client details"
// @Success 200 {object} dto.ClientResponse "Client updated"
// @Failure 400 {object} dto.ErrorResponse "Invalid client ID or payload"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 409 {object} dto.ErrorResponse "Document already registered"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients/{clientID} [put]
// @Security BearerAuth
func (h *ClientHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuidFromURL(r, "clientID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.ClientRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	updated, err := h.service.UpdateClient(r.Context(), clientID, req.Details())
	if err != nil {
		h.logServiceError(r, "Service failed to update client", err)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewClientResponse(updated))
}

// DeactivateClient handles PUT /clients/{clientID}/deactivate
// @Summary Deactivate a client
// @Description Deactivated clients cannot take new loans. Existing loans are unaffected.
// @Tags Clients
// @Param clientID path string true "Client ID"
// @Success 204 "Client deactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid client ID format"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients/{clientID}/deactivate [put]
// @Security BearerAuth
func (h *ClientHandler) DeactivateClient(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

// ReactivateClient handles PUT /clients/{clientID}/reactivate
// @Summary Reactivate a client
// @Tags Clients
// @Param clientID path string true "Client ID"
// @Success 204 "Client reactivated"
// @Failure 400 {object} dto.ErrorResponse "Invalid client ID format"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients/{clientID}/reactivate [put]
// @Security BearerAuth
func (h *ClientHandler) ReactivateClient(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *ClientHandler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	clientID, err := uuidFromURL(r, "clientID")
	if err != nil {
		respondError(w, err)
		return
	}

	if active {
		err = h.service.ReactivateClient(r.Context(), clientID)
	} else {
		err = h.service.DeactivateClient(r.Context(), clientID)
	}
	if err != nil {
		h.logServiceError(r, "Service failed to change client status", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Client status changed", slog.String("clientID", clientID.String()), slog.Bool("active", active))
	w.WriteHeader(http.StatusNoContent)
}

// DeleteClient handles DELETE /clients/{clientID}
// @Summary Delete a client
// @Description Clients with active or overdue loans cannot be deleted.
// @Tags Clients
// @Param clientID path string true "Client ID"
// @Success 204 "Client deleted"
// @Failure 400 {object} dto.ErrorResponse "Invalid client ID format"
// @Failure 409 {object} dto.ErrorResponse "Client still has active or overdue loans"
// @Failure 404 {object} dto.ErrorResponse "Client not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /clients/{clientID} [delete]
// @Security BearerAuth
func (h *ClientHandler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuidFromURL(r, "clientID")
	if err != nil {
		respondError(w, err)
		return
	}

	if err := h.service.DeleteClient(r.Context(), clientID); err != nil {
		h.logServiceError(r, "Service failed to delete client", err)
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Client deleted", slog.String("clientID", clientID.String()))
	w.WriteHeader(http.StatusNoContent)
}

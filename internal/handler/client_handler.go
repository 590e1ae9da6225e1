package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"timetrack/internal/auth"
	"timetrack/internal/service"
)

// ClientHandler handles client directory endpoints.
type ClientHandler struct {
	clientService service.ClientService
}

// NewClientHandler creates a new client handler.
func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// ClientRequest represents a client create or update request.
type ClientRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// ListClients godoc
// @Summary List clients visible to the caller
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Client
// @Router /clients [get]
func (h *ClientHandler) ListClients(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	clients, err := h.clientService.ListClients(c.Request().Context(), p)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, clients)
}

// GetClient godoc
// @Summary Get a client
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} model.Client
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/{id} [get]
func (h *ClientHandler) GetClient(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client ID")
	}

	client, err := h.clientService.GetClient(c.Request().Context(), p, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// CreateClient godoc
// @Summary Create a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClientRequest true "Client data"
// @Success 201 {object} model.Client
// @Failure 400 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /clients [post]
func (h *ClientHandler) CreateClient(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	client, err := h.clientService.CreateClient(c.Request().Context(), p, service.ClientInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, client)
}

// UpdateClient godoc
// @Summary Update a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Param request body ClientRequest true "Client data"
// @Success 200 {object} model.Client
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /clients/{id} [put]
func (h *ClientHandler) UpdateClient(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client ID")
	}

	var req ClientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	client, err := h.clientService.UpdateClient(c.Request().Context(), p, id, service.ClientInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, client)
}

// DeleteClient godoc
// @Summary Delete a client
// @Tags clients
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /clients/{id} [delete]
func (h *ClientHandler) DeleteClient(c echo.Context) error {
	p, err := auth.PrincipalFromContext(c)
	if err != nil {
		return respondError(c, err)
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid client ID")
	}

	if err := h.clientService.DeleteClient(c.Request().Context(), p, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

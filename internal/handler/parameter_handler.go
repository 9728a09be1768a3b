package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/afterschool-match-api/internal/dto"
	"github.com/noah-isme/afterschool-match-api/internal/models"
	appErrors "github.com/noah-isme/afterschool-match-api/pkg/errors"
	"github.com/noah-isme/afterschool-match-api/pkg/response"
)

type parameterService interface {
	List(ctx context.Context) ([]dto.ParameterItem, error)
	Get(ctx context.Context, name string) (*dto.ParameterItem, error)
	Set(ctx context.Context, actor models.Actor, name string, req dto.UpdateParameterRequest) (*dto.ParameterItem, error)
	SetWeights(ctx context.Context, actor models.Actor, req dto.UpdateWeightsRequest) (models.WeightSet, error)
	CurrentWeights(ctx context.Context) (models.WeightSet, error)
}

// ParameterHandler exposes the admin parameter surface.
type ParameterHandler struct {
	service parameterService
}

// NewParameterHandler builds a new handler.
func NewParameterHandler(service parameterService) *ParameterHandler {
	return &ParameterHandler{service: service}
}

// List godoc
// @Summary List parameters
// @Tags Parameters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/parameters [get]
func (h *ParameterHandler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get parameter by name
// @Tags Parameters
// @Produce json
// @Param name path string true "Parameter name"
// @Success 200 {object} response.Envelope
// @Router /admin/parameters/{name} [get]
func (h *ParameterHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Set godoc
// @Summary Create or replace a parameter
// @Tags Parameters
// @Accept json
// @Produce json
// @Param name path string true "Parameter name"
// @Param payload body dto.UpdateParameterRequest true "Parameter payload"
// @Success 200 {object} response.Envelope
// @Router /admin/parameters/{name} [put]
func (h *ParameterHandler) Set(c *gin.Context) {
	var req dto.UpdateParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid parameter payload"))
		return
	}
	item, err := h.service.Set(c.Request.Context(), actorFromContext(c), c.Param("name"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Weights godoc
// @Summary Current matching weights
// @Tags Parameters
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/parameters/weights [get]
func (h *ParameterHandler) Weights(c *gin.Context) {
	set, err := h.service.CurrentWeights(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

// SetWeights godoc
// @Summary Replace all matching weights
// @Tags Parameters
// @Accept json
// @Produce json
// @Param payload body dto.UpdateWeightsRequest true "Weights payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /admin/parameters/weights [put]
func (h *ParameterHandler) SetWeights(c *gin.Context) {
	var req dto.UpdateWeightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid weights payload"))
		return
	}
	set, err := h.service.SetWeights(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, set, nil)
}

package handlers

import (
	"errors"
	"net/http"

	"smart_climate/internal/climate"
	"smart_climate/internal/models"
	"smart_climate/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK         = "ok"
	statusTargetSet  = "target_set"
	statusPresetSet  = "preset_set"
	statusApplied    = "applied"
	statusNotApplied = "accepted_not_applied"

	errListStates      = "failed to load climates"
	errGetState        = "failed to load state"
	errInvalidBodyPref = "invalid body: "
	errDeviceCommand   = "device command failed"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// TemperatureRequest is the payload of POST /climates/{id}/temperature.
type TemperatureRequest struct {
	// Target temperature in Celsius
	Temperature *float64 `json:"temperature" binding:"required" example:"21.5"`
}

// PresetRequest is the payload of POST /climates/{id}/preset.
type PresetRequest struct {
	// Preset name, one of the controller's preset_modes
	Preset string `json:"preset" binding:"required" example:"comfort"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      List climate controllers
// @Tags         climate
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, climates"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/climates [get]
// @Security     BearerAuth
func (h *Handler) listClimates(c *gin.Context) {
	states, err := h.services.Monitoring.ListStates(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListStates, "climate_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(states),
		"climates": states,
	})
}

// @Summary      Get climate state
// @Tags         climate
// @Produce      json
// @Param        id   path      string  true  "Controller id"
// @Success      200  {object}  models.ClimateState
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/climates/{id} [get]
// @Security     BearerAuth
func (h *Handler) getClimate(c *gin.Context) {
	id := c.Param("id")
	st, err := h.services.Monitoring.GetState(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrControllerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "climate_get_state_failed", err, "controller", id)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set target temperature
// @Description  Sets a manual target and re-evaluates both devices. Answers 202 when the target was stored but the indoor sensor is unavailable.
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        id    path      string              true  "Controller id"
// @Param        body  body      TemperatureRequest  true  "Target payload"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Success      202   {object}  map[string]interface{}  "status, warning, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/climates/{id}/temperature [post]
// @Security     BearerAuth
func (h *Handler) setTemperature(c *gin.Context) {
	var req TemperatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	st, err := h.services.Climate.SetTemperature(c.Request.Context(), id, *req.Temperature)
	h.respondWithOperation(c, id, statusTargetSet, st, err)
}

// @Summary      Set preset
// @Description  Selects a preset; its target is chosen from the heating and cooling tables. Unknown presets are rejected.
// @Tags         climate
// @Accept       json
// @Produce      json
// @Param        id    path      string         true  "Controller id"
// @Param        body  body      PresetRequest  true  "Preset payload"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Success      202   {object}  map[string]interface{}  "status, warning, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      502   {object}  map[string]interface{}
// @Router       /api/v1/climates/{id}/preset [post]
// @Security     BearerAuth
func (h *Handler) setPreset(c *gin.Context) {
	var req PresetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	id := c.Param("id")
	st, err := h.services.Climate.SetPreset(c.Request.Context(), id, req.Preset)
	h.respondWithOperation(c, id, statusPresetSet, st, err)
}

// @Summary      Re-evaluate now
// @Tags         climate
// @Produce      json
// @Param        id   path      string  true  "Controller id"
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Success      202  {object}  map[string]interface{}  "status, warning, state"
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      502  {object}  map[string]interface{}
// @Router       /api/v1/climates/{id}/apply [post]
// @Security     BearerAuth
func (h *Handler) applyClimate(c *gin.Context) {
	id := c.Param("id")
	st, err := h.services.Climate.Apply(c.Request.Context(), id)
	h.respondWithOperation(c, id, statusApplied, st, err)
}

// respondWithOperation maps the outcome of a climate operation to a response.
// Sensor and device failures still carry the state, which was changed.
func (h *Handler) respondWithOperation(c *gin.Context, id, status string, st models.ClimateState, err error) {
	switch {
	case err == nil:
		if op, ok := operatorFrom(c); ok && h.log != nil {
			h.log.Infow("climate_operation", "controller", id, "status", status, "actor", op.Username)
		}
		c.JSON(http.StatusOK, gin.H{"status": status, "state": st})
	case errors.Is(err, service.ErrControllerNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, climate.ErrUnknownPreset), errors.Is(err, climate.ErrInvalidTemperature):
		if h.log != nil {
			h.log.Infow("climate_bad_request", "controller", id, "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, climate.ErrSensorUnavailable):
		if h.log != nil {
			h.log.Warnw("climate_not_applied", "controller", id, "err", err)
		}
		c.JSON(http.StatusAccepted, gin.H{"status": statusNotApplied, "warning": err.Error(), "state": st})
	case errors.Is(err, climate.ErrCommandFailed):
		if h.log != nil {
			h.log.Errorw("climate_command_failed", "controller", id, "err", err)
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": errDeviceCommand, "detail": err.Error(), "state": st})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, err.Error(), "climate_operation_failed", err, "controller", id)
	}
}

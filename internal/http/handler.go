package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"claims-service/internal/export"
	"claims-service/internal/http/middleware"
	"claims-service/internal/live"
	"claims-service/internal/model"
	"claims-service/internal/repository"
	"claims-service/internal/service"
)

type Handler struct {
	claimService      *service.ClaimService
	technicianService *service.TechnicianService
	hub               *live.Hub
	log               zerolog.Logger
}

func NewHandler(
	claimService *service.ClaimService,
	technicianService *service.TechnicianService,
	hub *live.Hub,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		claimService:      claimService,
		technicianService: technicianService,
		hub:               hub,
		log:               log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	// el websocket autentica por su cuenta (token en query)
	r.GET("/ws/claims", h.hub.Handle)

	protected := r.Group("/")
	protected.Use(authMiddleware)

	// Administración - acceso completo
	admin := protected.Group("/admin")
	{
		admin.POST("/claims", h.createClaim)
		admin.GET("/claims", h.listClaims)
		admin.GET("/claims/export", h.exportClaims)
		admin.GET("/claims/:id", h.getClaim)
		admin.PUT("/claims/:id", h.editClaim)
		admin.PUT("/claims/:id/assign", h.assignClaim)
		admin.PUT("/claims/:id/cancel", h.cancelClaim)
		admin.PUT("/claims/:id/archive", h.archiveClaim)
		admin.PUT("/claims/:id/restore", h.restoreClaim)
		admin.DELETE("/claims/:id", h.deleteClaim)
		admin.GET("/claims/:id/events", h.claimEvents)
		admin.GET("/technicians", h.listTechnicians)
		// Aprobación de registros
		admin.GET("/pending-users", h.listPendingUsers)
		admin.POST("/pending-users/:id/approve", h.approvePendingUser)
		admin.DELETE("/pending-users/:id", h.rejectPendingUser)
	}

	// Recepción - alta y gestión de reclamos
	reception := protected.Group("/reception")
	{
		reception.POST("/claims", h.createClaim)
		reception.GET("/claims", h.listClaims)
		reception.GET("/claims/export", h.exportClaims)
		reception.GET("/claims/:id", h.getClaim)
		reception.PUT("/claims/:id", h.editClaim)
		reception.PUT("/claims/:id/assign", h.assignClaim)
		reception.PUT("/claims/:id/cancel", h.cancelClaim)
		reception.PUT("/claims/:id/archive", h.archiveClaim)
		reception.PUT("/claims/:id/restore", h.restoreClaim)
		reception.GET("/claims/:id/events", h.claimEvents)
		reception.GET("/technicians", h.listTechnicians)
	}

	technician := protected.Group("/technician")
	{
		technician.GET("/claims", h.listClaims)
		technician.GET("/claims/:id", h.getClaim)
		technician.PUT("/claims/:id/start", h.startClaim)
		technician.PUT("/claims/:id/complete", h.completeClaim)
		technician.POST("/push-token", h.registerPushToken)
	}
}

func (h *Handler) createClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Name         string `json:"name" binding:"required"`
		Phone        string `json:"phone" binding:"required"`
		Address      string `json:"address" binding:"required"`
		Reason       string `json:"reason" binding:"required"`
		TechnicianID string `json:"technician_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	result, err := h.claimService.Create(c.Request.Context(), principal, service.CreateClaimInput{
		Name:         req.Name,
		Phone:        req.Phone,
		Address:      req.Address,
		Reason:       req.Reason,
		TechnicianID: req.TechnicianID,
		ReceivedBy:   principal.Name,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(result))
}

func (h *Handler) getClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	claim, err := h.claimService.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(claim))
}

func (h *Handler) listClaims(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := parseClaimFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	claims, err := h.claimService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(claims))
}

func (h *Handler) exportClaims(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	filter, err := parseClaimFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	claims, err := h.claimService.List(c.Request.Context(), principal, filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="reclamos.csv"`)
	if err := export.WriteClaimsCSV(c.Writer, claims); err != nil {
		h.log.Error().Err(err).Msg("csv export failed")
	}
}

func (h *Handler) editClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	var req struct {
		Name    *string `json:"name"`
		Phone   *string `json:"phone"`
		Address *string `json:"address"`
		Reason  *string `json:"reason"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	err := h.claimService.Edit(c.Request.Context(), principal, id, service.EditClaimInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Reason:  req.Reason,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim updated"}))
}

func (h *Handler) assignClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	var req struct {
		TechnicianID string `json:"technician_id" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.claimService.Assign(c.Request.Context(), principal, id, req.TechnicianID); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim assigned"}))
}

func (h *Handler) startClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	if err := h.claimService.Start(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim in progress"}))
}

func (h *Handler) completeClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	var req struct {
		Resolution string `json:"resolution" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.claimService.Complete(c.Request.Context(), principal, id, req.Resolution); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim completed"}))
}

func (h *Handler) cancelClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	if err := h.claimService.Cancel(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim cancelled"}))
}

func (h *Handler) archiveClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	if err := h.claimService.Archive(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim archived"}))
}

func (h *Handler) restoreClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	if err := h.claimService.Restore(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "claim restored"}))
}

func (h *Handler) deleteClaim(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	if err := h.claimService.Delete(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) claimEvents(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid claim id"))
		return
	}

	events, err := h.claimService.Events(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) listTechnicians(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	onlyAssignable := strings.EqualFold(c.Query("assignable"), "true")

	technicians, err := h.technicianService.List(c.Request.Context(), principal, onlyAssignable)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(technicians))
}

func (h *Handler) listPendingUsers(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	pending, err := h.technicianService.ListPending(c.Request.Context(), principal)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(pending))
}

func (h *Handler) approvePendingUser(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid pending user id"))
		return
	}

	technician, err := h.technicianService.Approve(c.Request.Context(), principal, id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(technician))
}

func (h *Handler) rejectPendingUser(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("invalid pending user id"))
		return
	}

	if err := h.technicianService.Reject(c.Request.Context(), principal, id); err != nil {
		h.handleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) registerPushToken(c *gin.Context) {
	principal, ok := middleware.MustPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorResponse("missing principal"))
		return
	}

	var req struct {
		Token string `json:"token" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if err := h.technicianService.RegisterPushToken(c.Request.Context(), principal, req.Token); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "push token registered"}))
}

func parseClaimFilter(c *gin.Context) (repository.ClaimListFilter, error) {
	filter := repository.ClaimListFilter{}

	archivedParam := strings.TrimSpace(c.Query("archived"))
	if archivedParam != "" {
		archived := strings.EqualFold(archivedParam, "true")
		filter.Archived = &archived
	} else {
		// la vista activa es la vista por defecto
		active := false
		filter.Archived = &active
	}

	status := strings.TrimSpace(c.Query("status"))
	if status != "" {
		cs := model.ClaimStatus(strings.ToUpper(status))
		if !cs.Valid() {
			return filter, errors.New("invalid status")
		}
		filter.Status = &cs
	}

	technicianID := strings.TrimSpace(c.Query("technician_id"))
	if technicianID != "" {
		filter.TechnicianID = &technicianID
	}

	search := strings.TrimSpace(c.Query("search"))
	if search != "" {
		filter.Search = &search
	}

	if raw := strings.TrimSpace(c.Query("created_from")); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return filter, err
		}
		filter.CreatedFrom = &t
	}

	if raw := strings.TrimSpace(c.Query("created_to")); raw != "" {
		t, err := parseTime(raw)
		if err != nil {
			return filter, err
		}
		filter.CreatedTo = &t
	}

	return filter, nil
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrPrecondition):
		c.JSON(http.StatusPreconditionFailed, errorResponse(err.Error()))
	case errors.Is(err, service.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, errorResponse(err.Error()))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

package ingest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ediaudit/internal/acceptance"
	"ediaudit/internal/constants"
	"ediaudit/internal/logger"
	"ediaudit/pkg/errors"
	"ediaudit/pkg/models"
)

type BaseHandler struct {
	Logger logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := errors.ToHTTPStatus(err)
	response := errors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
	Service        Service
	AcceptanceSvc  *acceptance.Service
	AcceptanceRepo acceptance.Repository
}

func NewHandler(service Service, acceptanceSvc *acceptance.Service, acceptanceRepo acceptance.Repository, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler:    BaseHandler{Logger: log},
		Service:        service,
		AcceptanceSvc:  acceptanceSvc,
		AcceptanceRepo: acceptanceRepo,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		ediGroup := v1.Group("/edi")
		{
			ediGroup.POST("/decode", h.DecodeMessage)
			ediGroup.POST("/ingest", h.IngestMessage)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.GET("", h.ListInvoices)
			invoices.GET("/:id", h.GetInvoice)
			invoices.GET("/:id/raw", h.GetRawMessage)
		}

		rules := v1.Group("/rules/acceptance")
		{
			rules.GET("", h.ListRules)
			rules.POST("", h.CreateRule)
			rules.GET("/:id", h.GetRule)
			rules.PUT("/:id", h.UpdateRule)
			rules.DELETE("/:id", h.DeleteRule)
		}
	}
}

// DecodeMessage parses a message and returns segments plus metadata
// without persisting anything.
func (h *Handler) DecodeMessage(c *gin.Context) {
	var req DecodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	parsed, err := h.Service.Decode(c.Request.Context(), req.Message)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, parsed)
}

func (h *Handler) IngestMessage(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	source := req.Source
	if source == "" {
		source = constants.IngestSourceAPI
	}

	env, err := models.NewEnvelopeBuilder().
		WithSource(source).
		WithRaw(req.Message).
		Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	invoice, err := h.Service.Ingest(c.Request.Context(), env)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, invoice)
}

func (h *Handler) ListInvoices(c *gin.Context) {
	filter := ListFilter{
		Source:   c.Query("source"),
		SenderID: c.Query("sender_id"),
		Currency: c.Query("currency"),
	}
	if limit := c.Query("limit"); limit != "" {
		if v, err := strconv.Atoi(limit); err == nil {
			filter.Limit = v
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if v, err := strconv.Atoi(offset); err == nil {
			filter.Offset = v
		}
	}

	invoices, err := h.Service.ListInvoices(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if invoices == nil {
		invoices = []Invoice{}
	}
	c.JSON(http.StatusOK, invoices)
}

func (h *Handler) GetInvoice(c *gin.Context) {
	invoice, err := h.Service.GetInvoice(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) GetRawMessage(c *gin.Context) {
	raw, err := h.Service.GetRawMessage(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, raw)
}

func (h *Handler) ListRules(c *gin.Context) {
	rules, err := h.AcceptanceRepo.ListRules(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if rules == nil {
		rules = []acceptance.Rule{}
	}
	c.JSON(http.StatusOK, rules)
}

func (h *Handler) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.AcceptanceSvc.ValidateExpression(req.Expression); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &acceptance.Rule{
		Name:       req.Name,
		Expression: req.Expression,
		Priority:   req.Priority,
		Enabled:    enabled,
	}

	if err := h.AcceptanceRepo.CreateRule(c.Request.Context(), rule); err != nil {
		h.HandleError(c, err)
		return
	}

	h.reloadRules(c)
	c.JSON(http.StatusCreated, rule)
}

func (h *Handler) GetRule(c *gin.Context) {
	rule, err := h.AcceptanceRepo.GetRule(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, rule)
}

func (h *Handler) UpdateRule(c *gin.Context) {
	var req UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	if err := h.AcceptanceSvc.ValidateExpression(req.Expression); err != nil {
		c.JSON(http.StatusBadRequest, errors.ToErrorResponse(errors.ErrValidation.WithCause(err)))
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &acceptance.Rule{
		ID:         c.Param("id"),
		Name:       req.Name,
		Expression: req.Expression,
		Priority:   req.Priority,
		Enabled:    enabled,
	}

	if err := h.AcceptanceRepo.UpdateRule(c.Request.Context(), rule); err != nil {
		h.HandleError(c, err)
		return
	}

	h.reloadRules(c)
	c.JSON(http.StatusOK, rule)
}

func (h *Handler) DeleteRule(c *gin.Context) {
	if err := h.AcceptanceRepo.DeleteRule(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}

	h.reloadRules(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) reloadRules(c *gin.Context) {
	if err := h.AcceptanceSvc.ReloadRules(c.Request.Context(), true); err != nil {
		h.Logger.WarnwCtx(c.Request.Context(), "Failed to reload rules after change",
			"error", err,
		)
	}
}

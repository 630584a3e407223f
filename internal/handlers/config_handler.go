package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/services"
)

// ConfigHandler handles budget configuration requests
type ConfigHandler struct {
	budgetService services.BudgetServicer
	auditService  services.AuditServicer
}

// NewConfigHandler creates a new ConfigHandler
func NewConfigHandler(budgetService services.BudgetServicer, auditService services.AuditServicer) *ConfigHandler {
	return &ConfigHandler{budgetService: budgetService, auditService: auditService}
}

// UpdateConfigRequest replaces the whole configuration
type UpdateConfigRequest struct {
	NetIncome *decimal.Decimal `json:"net_income" binding:"required"`
	Budgets   models.Budgets   `json:"budgets"`
}

// SetIncomeRequest represents the request body for changing the net income
type SetIncomeRequest struct {
	NetIncome *decimal.Decimal `json:"net_income" binding:"required"`
}

// AddCategoryRequest represents the request body for adding a budget category
type AddCategoryRequest struct {
	Name  string           `json:"name" binding:"required,category_name"`
	Limit *decimal.Decimal `json:"limit" binding:"required"`
}

// SetLimitRequest represents the request body for changing a category limit
type SetLimitRequest struct {
	Limit *decimal.Decimal `json:"limit" binding:"required"`
}

// ConfigResponse wraps a budget configuration
type ConfigResponse struct {
	Config         models.BudgetConfiguration `json:"config"`
	Categories     []string                   `json:"categories"`
	PaymentMethods []string                   `json:"payment_methods"`
}

func newConfigResponse(cfg models.BudgetConfiguration) ConfigResponse {
	return ConfigResponse{
		Config:         cfg,
		Categories:     cfg.CategoryNames(),
		PaymentMethods: models.DefaultPaymentMethods,
	}
}

// GetConfig returns the budget configuration
// @Summary     Get budget configuration
// @Description Net income, category limits, the categories a transaction may use and suggested payment methods
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} ConfigResponse
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /config [get]
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cfg, err := h.budgetService.GetConfig(c.Request.Context(), username)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

// UpdateConfig replaces the budget configuration
// @Summary     Replace budget configuration
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateConfigRequest true "Full configuration"
// @Success     200 {object} ConfigResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /config [put]
func (h *ConfigHandler) UpdateConfig(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	next := models.BudgetConfiguration{NetIncome: *req.NetIncome, Budgets: req.Budgets}
	cfg, err := h.budgetService.UpdateConfig(c.Request.Context(), username, next)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "UPDATE", "config", username, c.ClientIP(), map[string]interface{}{
		"net_income": cfg.NetIncome.String(),
		"categories": cfg.Budgets.Names(),
	})
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

// SetIncome changes the monthly net income
// @Summary     Set net income
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body SetIncomeRequest true "Net income"
// @Success     200 {object} ConfigResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /config/income [put]
func (h *ConfigHandler) SetIncome(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetIncomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cfg, err := h.budgetService.SetIncome(c.Request.Context(), username, *req.NetIncome)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "UPDATE", "income", username, c.ClientIP(), map[string]interface{}{
		"net_income": req.NetIncome.String(),
	})
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

// AddCategory adds a budget category
// @Summary     Add a budget category
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AddCategoryRequest true "Category"
// @Success     201 {object} ConfigResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     409 {object} ErrorResponse "Category exists"
// @Router      /config/categories [post]
func (h *ConfigHandler) AddCategory(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cfg, err := h.budgetService.AddCategory(c.Request.Context(), username, req.Name, *req.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "CREATE", "category", req.Name, c.ClientIP(), map[string]interface{}{
		"limit": req.Limit.String(),
	})
	c.JSON(http.StatusCreated, newConfigResponse(cfg))
}

// SetLimit changes a category limit
// @Summary     Set a category limit
// @Tags        config
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       name    path string          true "Category name"
// @Param       request body SetLimitRequest true "Limit"
// @Success     200 {object} ConfigResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /config/categories/{name} [put]
func (h *ConfigHandler) SetLimit(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req SetLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	name := c.Param("name")
	cfg, err := h.budgetService.SetLimit(c.Request.Context(), username, name, *req.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "UPDATE", "category", name, c.ClientIP(), map[string]interface{}{
		"limit": req.Limit.String(),
	})
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

// RemoveCategory deletes a budget category. Transactions filed under it are kept.
// @Summary     Remove a budget category
// @Tags        config
// @Produce     json
// @Security    BearerAuth
// @Param       name path string true "Category name"
// @Success     200 {object} ConfigResponse
// @Failure     404 {object} ErrorResponse "Category not found"
// @Router      /config/categories/{name} [delete]
func (h *ConfigHandler) RemoveCategory(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	name := c.Param("name")
	cfg, err := h.budgetService.RemoveCategory(c.Request.Context(), username, name)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "DELETE", "category", name, c.ClientIP(), nil)
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

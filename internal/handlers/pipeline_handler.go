package handlers

import (
	"github.com/gin-gonic/gin"

	apperrors "misa/internal/errors"
)

// PipelineHandler accepts statements pushed by automated import jobs. It
// sits behind PipelineAuthMiddleware instead of user tokens.
type PipelineHandler struct {
	transactions *TransactionHandler
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(transactions *TransactionHandler) *PipelineHandler {
	return &PipelineHandler{transactions: transactions}
}

// ImportForUser appends a CSV statement to the named user's ledger
// @Summary     Pipeline import
// @Description Same contract as /transactions/import for the user named in the path.
// @Tags        pipeline
// @Accept      multipart/form-data
// @Produce     json
// @Param       X-API-Key header   string true  "Pipeline API key"
// @Param       username  path     string true  "Target user"
// @Param       file      formData file   true  "CSV statement"
// @Param       classify  formData bool   false "Classify rows without a category"
// @Success     201 {object} services.ImportResult
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Failure     404 {object} ErrorResponse "User not found"
// @Router      /pipeline/users/{username}/import [post]
func (h *PipelineHandler) ImportForUser(c *gin.Context) {
	username := c.Param("username")
	if username == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "username is required"))
		return
	}
	h.transactions.importFor(c, username)
}

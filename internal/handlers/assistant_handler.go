package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/services"
)

// AssistantHandler answers questions about the ledger.
type AssistantHandler struct {
	assistantService services.AssistantServicer
}

// NewAssistantHandler creates a new AssistantHandler.
func NewAssistantHandler(assistantService services.AssistantServicer) *AssistantHandler {
	return &AssistantHandler{assistantService: assistantService}
}

// AskRequest is a question, optionally restricted to one month.
type AskRequest struct {
	Question string `json:"question" binding:"required,max=1000"`
	Year     int    `json:"year" binding:"omitempty,min=1"`
	Month    int    `json:"month" binding:"omitempty,min=1,max=12"`
}

// Ask forwards a question to the financial assistant
// @Summary     Ask the financial assistant
// @Description The answer is always 200: missing data and provider failures are reported in the answer text.
// @Tags        assistant
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AskRequest true "Question"
// @Success     200 {object} services.Answer
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /assistant/ask [post]
func (h *AssistantHandler) Ask(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	var period *models.Period
	if req.Year != 0 || req.Month != 0 {
		if req.Year == 0 || req.Month == 0 {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "year and month must be given together"))
			return
		}
		p, err := models.NewPeriod(req.Year, req.Month)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
		period = &p
	}

	answer, err := h.assistantService.Ask(c.Request.Context(), username, req.Question, period)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

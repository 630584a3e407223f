package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "misa/internal/errors"
	"misa/internal/models"
	"misa/internal/pagination"
	"misa/internal/services"
)

// MaxImportSize caps an uploaded statement.
const MaxImportSize = 5 << 20

// TransactionHandler handles transaction-related requests.
type TransactionHandler struct {
	transactionService services.TransactionServicer
	auditService       services.AuditServicer
	now                func() time.Time
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.TransactionServicer, auditService services.AuditServicer) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService, auditService: auditService, now: time.Now}
}

// CreateTransactionRequest represents the request payload for recording a transaction.
// Leave category empty to have it classified.
type CreateTransactionRequest struct {
	Date     string           `json:"date" binding:"required,iso_date"`
	Concept  string           `json:"concept" binding:"required,max=200"`
	Category string           `json:"category" binding:"omitempty,category_name"`
	Amount   *decimal.Decimal `json:"amount" binding:"required"`
	Method   string           `json:"method" binding:"omitempty,payment_method"`
}

// TransactionInput is one row of a bulk edit. Rows without an id are inserts.
type TransactionInput struct {
	ID          string           `json:"id"`
	Date        string           `json:"date" binding:"required,iso_date"`
	Concept     string           `json:"concept" binding:"required,max=200"`
	Category    string           `json:"category" binding:"omitempty,category_name"`
	Subcategory string           `json:"subcategory" binding:"max=60"`
	Amount      *decimal.Decimal `json:"amount" binding:"required"`
	Method      string           `json:"method" binding:"omitempty,payment_method"`
}

// ReplaceTransactionsRequest carries the full edited ledger of the user.
type ReplaceTransactionsRequest struct {
	Transactions []TransactionInput `json:"transactions" binding:"required,dive"`
}

// ClassifyRequest represents the request body for a classification preview.
type ClassifyRequest struct {
	Concept string `json:"concept" binding:"required,max=200"`
}

// TransactionResponse wraps one transaction.
type TransactionResponse struct {
	Transaction models.Transaction `json:"transaction"`
}

// TransactionListResponse is a page of transactions.
type TransactionListResponse = pagination.PageResponse[models.Transaction]

// CreateTransaction records a manual entry
// @Summary     Record a transaction
// @Description Record an expense. Without a category the concept is classified; a failed classification is stored as Otros / AI_Error.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateTransactionRequest true "Transaction details"
// @Success     201 {object} TransactionResponse "Transaction recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	date, err := models.ParseDate(req.Date)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid date"))
		return
	}

	tx, err := h.transactionService.Record(c.Request.Context(), username, services.RecordInput{
		Date:     date,
		Concept:  req.Concept,
		Category: req.Category,
		Amount:   *req.Amount,
		Method:   req.Method,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, TransactionResponse{Transaction: *tx})
}

// GetTransactions lists the user's transactions
// @Summary     List transactions
// @Description Newest first. year and month restrict the list to one period; a missing one defaults to the current year or month.
// @Tags        transactions
// @Produce     json
// @Security    BearerAuth
// @Param       year      query int    false "Year"
// @Param       month     query int    false "Month (1-12)"
// @Param       category  query string false "Category"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 50, max 500)"
// @Success     200 {object} TransactionListResponse
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /transactions [get]
func (h *TransactionHandler) GetTransactions(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	period, hasPeriod, err := parsePeriod(c, models.PeriodOf(h.now()))
	if err != nil {
		respondWithError(c, err)
		return
	}

	var filter services.TransactionFilter
	if hasPeriod {
		filter.Period = &period
	}
	if category := c.Query("category"); category != "" {
		filter.Category = &category
	}

	result, err := h.transactionService.List(c.Request.Context(), username, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ReplaceTransactions applies a bulk edit
// @Summary     Replace all transactions
// @Description Substitute the user's whole ledger. Rows with an id keep it, rows without one are inserted. Other users' rows are never touched.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ReplaceTransactionsRequest true "Edited ledger"
// @Success     200 {object} map[string]interface{} "Stored ledger"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Storage failure, previous ledger intact"
// @Router      /transactions [put]
func (h *TransactionHandler) ReplaceTransactions(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ReplaceTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	records := make([]models.Transaction, len(req.Transactions))
	for i, in := range req.Transactions {
		date, err := models.ParseDate(in.Date)
		if err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid date in row "+strconv.Itoa(i+1)))
			return
		}
		records[i] = models.Transaction{
			Base:        models.Base{ID: in.ID},
			Owner:       username,
			Date:        date,
			Concept:     in.Concept,
			Category:    in.Category,
			Subcategory: in.Subcategory,
			Amount:      *in.Amount,
			Method:      in.Method,
		}
	}

	stored, err := h.transactionService.ReplaceAll(c.Request.Context(), username, records)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "REPLACE", "transactions", username, c.ClientIP(), map[string]interface{}{
		"count": len(stored),
	})
	c.JSON(http.StatusOK, gin.H{"transactions": stored, "count": len(stored)})
}

// ImportTransactions appends a CSV statement
// @Summary     Import transactions from CSV
// @Description Columns date, concept and amount are required; category, subcategory and method are optional. Any bad row rejects the whole file.
// @Tags        transactions
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       file     formData file true  "CSV statement"
// @Param       classify formData bool false "Classify rows without a category"
// @Success     201 {object} services.ImportResult
// @Failure     400 {object} ErrorResponse "Invalid file"
// @Router      /transactions/import [post]
func (h *TransactionHandler) ImportTransactions(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.importFor(c, username)
}

// importFor handles the multipart upload for username.
func (h *TransactionHandler) importFor(c *gin.Context, username string) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxImportSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "file is required"))
		return
	}

	classify := false
	if raw := c.PostForm("classify"); raw != "" {
		if classify, err = strconv.ParseBool(raw); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid classify flag"))
			return
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}
	defer file.Close()

	result, err := h.transactionService.Import(c.Request.Context(), username, file, classify)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(username, "IMPORT", "transactions", fileHeader.Filename, c.ClientIP(), map[string]interface{}{
		"imported":   result.Imported,
		"classified": result.Classified,
	})
	c.JSON(http.StatusCreated, result)
}

// ClassifyConcept previews a classification
// @Summary     Preview a classification
// @Description Returns the category and subcategory the classifier would assign. Nothing is stored.
// @Tags        transactions
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ClassifyRequest true "Concept"
// @Success     200 {object} ai.Classification
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /transactions/classify [post]
func (h *TransactionHandler) ClassifyConcept(c *gin.Context) {
	username, err := getUsername(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.transactionService.Classify(c.Request.Context(), username, req.Concept)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	bookmodel "library-backend/internal/domains/book/model"
	"library-backend/internal/domains/lending/model"
	"library-backend/internal/domains/lending/service"
	"library-backend/internal/shared/apperror"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

var errInvalidLimit = apperror.BadRequest("limit must be a positive integer")

type LendingHandler struct {
	lending       service.ServiceInterface
	discrepancies service.DiscrepancyServiceInterface
}

func NewLendingHandler(lending service.ServiceInterface, discrepancies service.DiscrepancyServiceInterface) *LendingHandler {
	return &LendingHandler{lending: lending, discrepancies: discrepancies}
}

// ========================================
// LENDING ENDPOINTS
// ========================================

// Borrow handles POST /books/borrow/:id
func (h *LendingHandler) Borrow(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	bookID, ok := request.UUIDParam(c, "id", bookmodel.ErrInvalidBookID)
	if !ok {
		return
	}

	if err := h.lending.Borrow(c.Request.Context(), userID, bookID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully borrowed book", nil)
}

// Return handles POST /books/return/:id
func (h *LendingHandler) Return(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	bookID, ok := request.UUIDParam(c, "id", bookmodel.ErrInvalidBookID)
	if !ok {
		return
	}

	if err := h.lending.Return(c.Request.Context(), userID, bookID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully returned book", nil)
}

// ========================================
// ADMIN ENDPOINTS
// ========================================

// ListDiscrepancies handles GET /admin/discrepancies?status=open&limit=n
func (h *LendingHandler) ListDiscrepancies(c *gin.Context) {
	filter := model.ListFilter{OnlyOpen: c.Query("status") == "open"}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			response.Error(c, errInvalidLimit)
			return
		}
		filter.Limit = limit
	}

	items, err := h.discrepancies.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully fetched discrepancies", items)
}

// ResolveDiscrepancy handles POST /admin/discrepancies/:id/resolve
func (h *LendingHandler) ResolveDiscrepancy(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidDiscrepancyID)
	if !ok {
		return
	}

	var req model.ResolveRequest
	if c.Request.ContentLength > 0 && !request.BindAndValidate(c, &req) {
		return
	}

	adminID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, middleware.ErrAuthRequired)
		return
	}

	resolved, err := h.discrepancies.Resolve(c.Request.Context(), id, &adminID, req.ShouldApply())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, "successfully resolved discrepancy", resolved)
}

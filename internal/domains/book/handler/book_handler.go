package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/domains/book/model"
	"library-backend/internal/domains/book/service"
	"library-backend/internal/shared/request"
	"library-backend/internal/shared/response"
)

type BookHandler struct {
	service service.ServiceInterface
}

func NewBookHandler(service service.ServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// ========================================
// PUBLIC ENDPOINTS
// ========================================

// ListBooks handles GET /books
func (h *BookHandler) ListBooks(c *gin.Context) {
	books, err := h.service.ListBooks(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully fetched books", books)
}

// GetBook handles GET /books/id/:id
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidBookID)
	if !ok {
		return
	}

	book, err := h.service.GetBook(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully fetched book info", book)
}

// FindByTitle handles GET /books/title/:title
func (h *BookHandler) FindByTitle(c *gin.Context) {
	books, err := h.service.FindByTitle(c.Request.Context(), c.Param("title"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully fetched books", books)
}

// FindByAuthor handles GET /books/author/:author
func (h *BookHandler) FindByAuthor(c *gin.Context) {
	books, err := h.service.FindByAuthor(c.Request.Context(), c.Param("author"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully fetched books", books)
}

// ========================================
// ADMIN ENDPOINTS
// ========================================

// CreateBook handles POST /admin/books
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req model.CreateBookRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	book, err := h.service.CreateBook(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "successfully created book", book)
}

// DeleteBook handles DELETE /admin/books/:id
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidBookID)
	if !ok {
		return
	}

	if err := h.service.DeleteBook(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully deleted book", nil)
}

// AdjustStock handles POST /admin/books/:id/stock
func (h *BookHandler) AdjustStock(c *gin.Context) {
	id, ok := request.UUIDParam(c, "id", model.ErrInvalidBookID)
	if !ok {
		return
	}

	var req model.AdjustStockRequest
	if !request.BindAndValidate(c, &req) {
		return
	}

	book, err := h.service.AdjustStock(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, "successfully updated stock", book)
}

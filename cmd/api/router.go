package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"
	"library-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	// Global middlewares
	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	authRequired := middleware.AuthMiddleware(c.JWTManager, c.UserService)

	router.GET("/health", healthCheckHandler(c))

	setupAuthRoutes(router, c, authRequired)
	setupBookRoutes(router, c, authRequired)
	setupUserRoutes(router, c, authRequired)
	setupAdminRoutes(router, c, authRequired)

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(r *gin.Engine, c *container.Container, authRequired gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/register", c.UserHandler.Register)
		auth.POST("/login", c.UserHandler.Login)
		auth.POST("/logout", authRequired, c.UserHandler.Logout)
	}
}

// ========================================
// BOOK ROUTES
// ========================================
func setupBookRoutes(r *gin.Engine, c *container.Container, authRequired gin.HandlerFunc) {
	books := r.Group("/books")
	{
		// Public
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/title/:title", c.BookHandler.FindByTitle)
		books.GET("/author/:author", c.BookHandler.FindByAuthor)
		books.GET("/id/:id", c.BookHandler.GetBook)

		// Lending
		books.POST("/borrow/:id", authRequired, c.LendingHandler.Borrow)
		books.POST("/return/:id", authRequired, c.LendingHandler.Return)
	}
}

// ========================================
// USER ROUTES
// ========================================
func setupUserRoutes(r *gin.Engine, c *container.Container, authRequired gin.HandlerFunc) {
	users := r.Group("/users")
	users.Use(authRequired)
	{
		users.GET("/me", c.UserHandler.AboutMe)
		users.PUT("/me/password", c.UserHandler.ChangePassword)
	}
}

// ========================================
// ADMIN ROUTES
// ========================================
func setupAdminRoutes(r *gin.Engine, c *container.Container, authRequired gin.HandlerFunc) {
	admin := r.Group("/admin")
	admin.Use(authRequired, middleware.AdminMiddleware())

	users := admin.Group("/users")
	{
		users.GET("", c.UserHandler.ListUsers)
		users.GET("/:id", c.UserHandler.GetUser)
		users.POST("", c.UserHandler.CreateUser)
		users.DELETE("/:id", c.UserHandler.DeleteUser)
		users.PUT("/:id/role", c.UserHandler.SetRole)
	}

	books := admin.Group("/books")
	{
		books.POST("", c.BookHandler.CreateBook)
		books.DELETE("/:id", c.BookHandler.DeleteBook)
		books.POST("/:id/stock", c.BookHandler.AdjustStock)
	}

	discrepancies := admin.Group("/discrepancies")
	{
		discrepancies.GET("", c.LendingHandler.ListDiscrepancies)
		discrepancies.POST("/:id/resolve", c.LendingHandler.ResolveDiscrepancy)
	}
}

// ========================================
// HEALTH
// ========================================
func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		checks := c.HealthCheck(ctx.Request.Context())

		for _, state := range checks {
			if state != "ok" {
				response.Success(ctx, http.StatusServiceUnavailable, "unhealthy", checks)
				return
			}
		}
		response.Success(ctx, http.StatusOK, "healthy", checks)
	}
}

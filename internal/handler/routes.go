package handler

import (
	"net/http"

	"github.com/dafibh/fortuna/fortuna-backend/internal/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all API routes (SPEC_FULL.md §5 HTTP surface).
// There is no auth layer in this domain: /forecast and /import/statement
// are guarded only by a per-client-IP rate limiter.
func RegisterRoutes(
	e *echo.Echo,
	rateLimiter *middleware.RateLimiter,
	forecastHandler *ForecastHandler,
	statementHandler *StatementHandler,
	ledgerHandler *LedgerHandler,
	websocketHandler *WebSocketHandler,
) {
	e.GET("/health", healthCheck)
	e.GET("/healthz", healthCheck)

	e.GET("/ws", websocketHandler.HandleWS)

	e.GET("/swagger/openapi3.json", ServeOpenAPI3Spec)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api/v1")

	rateLimited := middleware.RateLimitMiddleware(rateLimiter)

	api.POST("/forecast", forecastHandler.Forecast, rateLimited)
	api.POST("/import/statement", statementHandler.Import, rateLimited)

	ledgers := api.Group("/ledgers")
	ledgers.POST("", ledgerHandler.Create)
	ledgers.GET("", ledgerHandler.List)
	ledgers.GET("/:id", ledgerHandler.Get)
	ledgers.PUT("/:id", ledgerHandler.Update)
	ledgers.DELETE("/:id", ledgerHandler.Delete)
}

func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package internal

import (
	"ecgd/internal/controllers"
	"ecgd/internal/providers"
	"net/http"
)

func InitRoutes(
	apiController *controllers.ApiController,
	historyController *controllers.HistoryController,
	adminController *controllers.AdminController,
	healthController *controllers.HealthController,
	auth *providers.AuthMiddleware,
) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()
	user := func(h http.HandlerFunc) http.Handler { return auth.Require(h) }

	routers.Get("/health", http.HandlerFunc(healthController.Health))

	routers.Post("/api/ml/predict", user(apiController.Predict))
	routers.Post("/api/ai/analyze", user(apiController.Predict))
	routers.Get("/api/ml/classes", http.HandlerFunc(apiController.Classes))
	routers.Get("/api/ai/model-info", http.HandlerFunc(apiController.ModelInfo))

	routers.Post("/api/measurements", user(apiController.CreateMeasurement))
	routers.Put("/api/measurements/{id}", user(apiController.AnnotateMeasurement))

	routers.Get("/api/history", user(historyController.List))
	routers.Get("/api/history/stats/summary", user(historyController.Summary))
	routers.Get("/api/history/{id}", user(historyController.Get))
	routers.Delete("/api/history/{id}", user(historyController.Delete))

	routers.Delete("/api/admin/users/{id}/measurements",
		auth.RequireRole(providers.RoleAdmin, http.HandlerFunc(adminController.PurgeUserMeasurements)))
	return routers
}

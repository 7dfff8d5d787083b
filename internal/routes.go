package internal

import (
	"net/http"

	"chargersim/internal/controllers"
	"chargersim/internal/providers"
)

func InitRoutes(apiController *controllers.ApiController) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/status", http.HandlerFunc(apiController.GetStatus))
	routers.Get("/rfids", http.HandlerFunc(apiController.GetRfids))
	routers.Post("/rfids", http.HandlerFunc(apiController.AddRfid))
	routers.Put("/rfids/sync", http.HandlerFunc(apiController.SyncRfids))
	routers.Delete("/rfids/{rfidId}", http.HandlerFunc(apiController.DeleteRfid))
	routers.Post("/simulate-rfid/{rfidId}", http.HandlerFunc(apiController.SimulateRfid))
	routers.Get("/sessions", http.HandlerFunc(apiController.GetSessions))
	routers.Get("/sessions/active", http.HandlerFunc(apiController.GetActiveSession))
	routers.Get("/sessions/unsynced", http.HandlerFunc(apiController.GetUnsyncedSessions))
	routers.Post("/sessions/ack", http.HandlerFunc(apiController.AckSessions))
	routers.Post("/sessions/start", http.HandlerFunc(apiController.StartSession))
	routers.Post("/sessions/stop", http.HandlerFunc(apiController.StopSession))
	return routers
}

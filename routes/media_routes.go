package routes

import (
	"carechat_server/controllers"
	"carechat_server/middleware"

	"github.com/gorilla/mux"
)

// RegisterMediaRoutes sets up attachment upload routes under /api
func RegisterMediaRoutes(r *mux.Router, media controllers.MediaAPI, jwtSecret string) {
	controller := controllers.NewMediaController(media)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	api.HandleFunc("/media/upload-url", controller.HandleCreateUploadURL).Methods("POST")
}

package routes

import (
	"carechat_server/controllers"
	"carechat_server/middleware"

	"github.com/gorilla/mux"
)

// RegisterRoomRoutes sets up room directory routes under /api
func RegisterRoomRoutes(r *mux.Router, chat controllers.ChatAPI, jwtSecret string) {
	controller := controllers.NewRoomController(chat)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	api.HandleFunc("/rooms", controller.HandleCreateRoom).Methods("POST")
	api.HandleFunc("/rooms", controller.HandleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{roomId}", controller.HandleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/archive", controller.HandleArchiveRoom).Methods("PATCH")
}

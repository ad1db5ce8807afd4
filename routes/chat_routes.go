package routes

import (
	"carechat_server/controllers"
	"carechat_server/middleware"

	"github.com/gorilla/mux"
)

// RegisterChatRoutes sets up message-level routes under /api
func RegisterChatRoutes(r *mux.Router, chat controllers.ChatAPI, jwtSecret string) {
	controller := controllers.NewChatController(chat)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(jwtSecret))

	api.HandleFunc("/messages", controller.HandleSendMessage).Methods("POST")
	api.HandleFunc("/messages/{messageId}", controller.HandleEditMessage).Methods("PUT")
	api.HandleFunc("/messages/{messageId}", controller.HandleDeleteMessage).Methods("DELETE")
	api.HandleFunc("/messages/{messageId}/reactions", controller.HandleAddReaction).Methods("POST")
	api.HandleFunc("/messages/{messageId}/reactions", controller.HandleRemoveReaction).Methods("DELETE")
	api.HandleFunc("/rooms/{roomId}/messages", controller.HandleGetMessages).Methods("GET")
	api.HandleFunc("/rooms/{roomId}/read", controller.HandleMarkRead).Methods("POST")
	api.HandleFunc("/unread-count", controller.HandleUnreadCount).Methods("GET")
}

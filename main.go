package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"carechat_server/config"
	"carechat_server/routes"
	"carechat_server/services"
	"carechat_server/socket"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize DynamoDB client and service
	log.Println("Initializing DynamoDB client...")
	dynamoClient := services.InitializeDynamoDBClient(cfg.AWSRegion)
	dynamoService := &services.DynamoService{Client: dynamoClient}
	log.Println("DynamoDB client initialized.")

	// Initialize Services
	profileService := &services.UserProfileService{Dynamo: dynamoService}
	roomService := &services.RoomService{Dynamo: dynamoService}
	messageService := &services.MessageService{Dynamo: dynamoService}
	readTracker := &services.ReadTracker{Rooms: roomService, Messages: messageService}
	mediaService := services.NewMediaService(cfg.AWSRegion, cfg.S3Bucket)

	// The gateway doubles as the broadcaster for REST-originated writes,
	// so it exists before the chat service and gets the service attached
	// afterwards.
	gateway := socket.NewGateway(cfg.JWTSecret, profileService)
	chatService := services.NewChatService(roomService, messageService, readTracker, profileService, services.LogNotifier{}, gateway)
	gateway.AttachChat(chatService)

	go func() {
		if err := gateway.Serve(); err != nil {
			log.Fatalf("Socket server error: %v", err)
		}
	}()
	defer gateway.Close()

	// Initialize the router
	r := mux.NewRouter()

	// Register a welcome route
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "Welcome to CareChat")
	}).Methods("GET")

	// Register a health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		response := map[string]string{"status": "healthy"}
		json.NewEncoder(w).Encode(response)
	}).Methods("GET")

	// Mount the realtime gateway
	r.PathPrefix("/socket.io/").Handler(gateway.Handler())

	// Register routes
	routes.RegisterRoomRoutes(r, chatService, cfg.JWTSecret)
	routes.RegisterChatRoutes(r, chatService, cfg.JWTSecret)
	routes.RegisterMediaRoutes(r, mediaService, cfg.JWTSecret)

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	// Start the HTTP server
	log.Printf("Starting server on port %s...\n", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, corsHandler))
}

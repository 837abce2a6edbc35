package main

import (
	"log"
	"os"

	"parking-backend/internal/database"
	"parking-backend/internal/handler"
	"parking-backend/internal/mailer"
	"parking-backend/internal/middleware"
	"parking-backend/internal/repository"
	"parking-backend/internal/service"
	"parking-backend/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
)

// @title           Parking Slot Allocation API
// @version         1.0
// @description     Parking slot registry, vehicle directory and slot request lifecycle with admin approval.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// SMTP is optional; a nil mailer disables approval emails
	mail := mailer.New(mailer.ConfigFromEnv())
	var notifier service.ApprovalNotifier
	if mail != nil {
		notifier = mail
	} else {
		log.Println("SMTP not configured, approval emails disabled")
	}

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	requestRepo := repository.NewSlotRequestRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	generator := service.NewSlotNumberGenerator(slotRepo)

	userService := service.NewUserService(userRepo, auditRepo)
	vehicleService := service.NewVehicleService(vehicleRepo, auditRepo, txManager)
	slotService := service.NewSlotService(slotRepo, requestRepo, auditRepo, txManager, generator, wsHub)
	requestService := service.NewSlotRequestService(requestRepo, slotRepo, vehicleRepo, auditRepo, txManager, slotService, notifier, wsHub)
	auditService := service.NewAuditService(auditRepo)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	vehicleHandler := handler.NewVehicleHandler(vehicleService)
	slotHandler := handler.NewSlotHandler(slotService)
	requestHandler := handler.NewRequestHandler(requestService)
	auditHandler := handler.NewAuditHandler(auditService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Throttle per client IP
	router.Use(middleware.RateLimit(rate.Limit(20), 40))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	api := router.Group("/api")
	userHandler.RegisterRoutes(api)
	vehicleHandler.RegisterRoutes(api)
	slotHandler.RegisterRoutes(api)
	requestHandler.RegisterRoutes(api)
	auditHandler.RegisterRoutes(api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

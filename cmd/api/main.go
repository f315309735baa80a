package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/anjiri1684/agency_messaging/database"
	"github.com/anjiri1684/agency_messaging/events"
	"github.com/anjiri1684/agency_messaging/handlers"
	"github.com/anjiri1684/agency_messaging/jobs"
	applogger "github.com/anjiri1684/agency_messaging/logger"
	"github.com/anjiri1684/agency_messaging/middleware"
	"github.com/anjiri1684/agency_messaging/routes"
	"github.com/anjiri1684/agency_messaging/services"
	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("🔥 Failed to load configuration: %v", err)
	}
	if err := applogger.Setup(cfg.Logger); err != nil {
		log.Fatalf("🔥 Failed to set up logging: %v", err)
	}
	if cfg.Auth.JWTSecret == "" {
		log.Fatal("🔥 auth.jwt_secret is not set")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("🔥 Failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("🔥 Failed to migrate database: %v", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.NATS.Enabled {
		natsPublisher, err := events.NewNatsPublisher(cfg.NATS)
		if err != nil {
			log.Fatalf("🔥 Failed to connect to NATS: %v", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	users := services.NewUserService(db)
	conversations := services.NewConversationService(services.Deps{
		DB:        db,
		Options:   services.OptionsFrom(cfg.Messaging),
		Publisher: publisher,
	})
	messages := services.NewMessageService(conversations)

	c := cron.New()
	if err := jobs.Schedule(c, cfg.Jobs.GaugeSchedule, conversations); err != nil {
		log.Fatalf("🔥 %v", err)
	}
	c.Start()
	jobs.RecordMessagingGauges(conversations)
	log.Println("✅ Messaging gauge job scheduled successfully.")

	app := routes.NewApp(cfg.Server)
	routes.PublicRoutes(app, cfg.Metrics)
	routes.MessagingRoutes(app,
		handlers.NewMessagingHandler(conversations, messages),
		middleware.Protected(cfg.Auth.JWTSecret),
		middleware.Identify(users),
	)

	go func() {
		log.Printf("✅ Server is running on %s", cfg.Server.Addr)
		if err := app.Listen(cfg.Server.Addr); err != nil {
			log.Fatalf("🔥 Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Error shutting down Fiber: %v", err)
	}
	<-c.Stop().Done()
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Println("Server gracefully stopped")
}

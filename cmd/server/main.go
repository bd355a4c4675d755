package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"

	config "github.com/glevi2004/organically-sub001/configs"
	"github.com/glevi2004/organically-sub001/internal/api/handlers"
	job "github.com/glevi2004/organically-sub001/internal/jobs"
	"github.com/glevi2004/organically-sub001/internal/queue"
	"github.com/glevi2004/organically-sub001/internal/repository"
	"github.com/glevi2004/organically-sub001/internal/service"
	"github.com/glevi2004/organically-sub001/internal/stepcache"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Organization-ID",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	postRepo := repository.NewPostRepository(db)
	postMediaRepo := repository.NewPostMediaRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	publishHistoryRepo := repository.NewPublishHistoryRepository(db)

	dispatcher := queue.NewDispatcher(client)
	stepCache := stepcache.NewRedisCache(redisClient, cfg.StepCacheTTL)

	r2Service := service.NewR2Service(*cfg)
	instagramService := service.NewInstagramService(*cfg)
	publishService := service.NewPublishService(*cfg, postRepo, postMediaRepo, channelRepo, publishHistoryRepo, instagramService, stepCache)
	postService := service.NewPostService(db, postRepo, postMediaRepo, dispatcher)
	mediaService := service.NewMediaService(mediaAssetRepo, r2Service)

	api := app.Group("/api")

	post := handlers.NewPostHandler(postService, publishService)
	api.Post("/posts/create", post.CreatePost)
	api.Post("/posts/schedule", post.SchedulePost)
	api.Post("/posts/cancel", post.CancelSchedule)
	api.Post("/posts/publish", post.PublishNow)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	media := handlers.NewMediaHandler(mediaService)
	api.Post("/media/upload", media.UploadMedia)
	api.Get("/media", media.ListMedia)

	channel := handlers.NewChannelHandler(channelRepo)
	api.Get("/channels", channel.ListChannels)

	// cron jobs
	recoveryJob := job.NewScheduleRecoveryJob(*cfg, postRepo, publishHistoryRepo, dispatcher)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", recoveryJob.Run)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: cfg.WorkerConcurrency,
		})

		worker := queue.NewWorker(publishService)

		log.Println("Starting the Asynq server...")
		if err := server.Run(worker.Handler()); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}

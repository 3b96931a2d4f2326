package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"blog-backend/configs"
	"blog-backend/database"
	_ "blog-backend/docs"
	"blog-backend/internal/handlers"
	"blog-backend/internal/logger"
	"blog-backend/internal/repository"
	"blog-backend/internal/routes"
	"blog-backend/services"
)

// @title blog-backend API
// @version 1.0
// @description Blogging platform backend
func main() {
	cfg, err := configs.Load()
	if err != nil {
		log.Fatal("config: ", err)
	}
	slog := logger.Default()

	client, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("mongo: ", err)
	}
	defer database.Disconnect(client)

	db := client.Database(cfg.MongoDB)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureIndexes(ctx, db); err != nil {
		cancel()
		log.Fatal("indexes: ", err)
	}
	cancel()

	posts := repository.NewMongoPostStore(db)
	comments := repository.NewMongoCommentStore(db)
	users := repository.NewMongoUserStore(db)
	stats := repository.NewMongoStatsStore(db)
	txn := repository.NewMongoTxnRunner(client, cfg.Transactions)

	authService := services.NewAuthService(users, cfg.JWTSecret, cfg.JWTTTL, cfg.BcryptCost)
	commentService := services.NewCommentService(posts, comments, users, txn, cfg, slog)
	reconcileService := services.NewReconcileService(posts, comments, users, slog)
	likeService := services.NewLikeService(posts)
	postService := services.NewPostService(posts, comments, users, commentService, slog)

	stopSweep, err := reconcileService.Schedule(cfg.ReconcileSchedule)
	if err != nil {
		log.Fatal("reconcile schedule: ", err)
	}
	defer stopSweep()

	app := fiber.New()
	routes.Register(app, routes.Deps{
		Auth:        &handlers.AuthHandler{Auth: authService},
		Posts:       &handlers.PostHandler{Posts: postService, Likes: likeService},
		Comments:    &handlers.CommentHandler{Comments: commentService, Reconcile: reconcileService},
		Stats:       &handlers.StatsHandler{Stats: stats},
		AuthService: authService,
	})

	slog.Info("server starting", "port", cfg.Port)
	log.Fatal(app.Listen(":" + cfg.Port))
}

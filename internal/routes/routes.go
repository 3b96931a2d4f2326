package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"blog-backend/internal/handlers"
	"blog-backend/internal/middleware"
	"blog-backend/services"
)

type Deps struct {
	Auth     *handlers.AuthHandler
	Posts    *handlers.PostHandler
	Comments *handlers.CommentHandler
	Stats    *handlers.StatsHandler

	AuthService *services.AuthService
}

func Register(app *fiber.App, d Deps) {
	app.Use(middleware.RequestID())
	app.Use(middleware.Metrics())

	app.Get("/health", handlers.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/docs/*", swagger.HandlerDefault)

	requireAuth := middleware.RequireAuth(d.AuthService)
	optionalAuth := middleware.OptionalAuth(d.AuthService)

	auth := app.Group("/api/auth")
	auth.Post("/register", d.Auth.Register)
	auth.Post("/login", d.Auth.Login)

	posts := app.Group("/api/posts")
	posts.Get("/", optionalAuth, d.Posts.List)
	posts.Post("/", requireAuth, d.Posts.Create)
	posts.Get("/:id", optionalAuth, d.Posts.Get)
	posts.Put("/:id", requireAuth, d.Posts.Update)
	posts.Delete("/:id", requireAuth, d.Posts.Delete)
	posts.Post("/:id/tags", requireAuth, d.Posts.AddTag)
	posts.Delete("/:id/tags", requireAuth, d.Posts.RemoveTag)
	posts.Post("/:id/like", requireAuth, d.Posts.ToggleLike)

	posts.Post("/:postId/comments", requireAuth, d.Comments.Create)
	posts.Get("/:postId/comments", d.Comments.List)
	posts.Post("/:postId/reconcile", requireAuth, middleware.RequireAdmin(), d.Comments.ReconcilePost)

	comments := app.Group("/api/comments")
	comments.Put("/:id", requireAuth, d.Comments.Update)
	comments.Delete("/:id", requireAuth, d.Comments.Delete)

	stats := app.Group("/api/stats")
	stats.Get("/top-posts", d.Stats.TopPosts)
	stats.Get("/popular-tags", d.Stats.PopularTags)
	stats.Get("/posts-by-author", d.Stats.PostsByAuthor)
	stats.Get("/avg-comments-per-post", d.Stats.AvgCommentsPerPost)
	stats.Get("/monthly-posts", d.Stats.MonthlyPosts)
}

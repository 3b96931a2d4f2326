package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"blog-backend/dto"
	"blog-backend/internal/repository"
)

type StatsHandler struct {
	Stats repository.StatsStore
}

// GET /api/stats/top-posts?limit=10
func (h *StatsHandler) TopPosts(c *fiber.Ctx) error {
	posts, err := h.Stats.TopPosts(c.Context(), int64(c.QueryInt("limit", 10)))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": posts})
}

// GET /api/stats/popular-tags?limit=20
func (h *StatsHandler) PopularTags(c *fiber.Ctx) error {
	tags, err := h.Stats.PopularTags(c.Context(), int64(c.QueryInt("limit", 20)))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": tags})
}

// GET /api/stats/posts-by-author?limit=50
func (h *StatsHandler) PostsByAuthor(c *fiber.Ctx) error {
	authors, err := h.Stats.PostsByAuthor(c.Context(), int64(c.QueryInt("limit", 50)))
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": authors})
}

// GET /api/stats/avg-comments-per-post
func (h *StatsHandler) AvgCommentsPerPost(c *fiber.Ctx) error {
	avg, err := h.Stats.CommentAverages(c.Context())
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"data": avg})
}

// GET /api/stats/monthly-posts?year=2026
func (h *StatsHandler) MonthlyPosts(c *fiber.Ctx) error {
	year := c.QueryInt("year", time.Now().UTC().Year())
	months, err := h.Stats.MonthlyPosts(c.Context(), year)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dto.MonthlyPostsResp{Year: year, Data: months})
}

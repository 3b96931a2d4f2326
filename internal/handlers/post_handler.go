package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/internal/middleware"
	"blog-backend/internal/repository"
	"blog-backend/model"
	"blog-backend/services"
)

type PostHandler struct {
	Posts *services.PostService
	Likes *services.LikeService
}

// POST /api/posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	var body dto.CreatePostReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	post, err := h.Posts.Create(c.Context(), caller, body)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"post": post})
}

// GET /api/posts?page=1&limit=10&status=&author=&tag=&q=
func (h *PostHandler) List(c *fiber.Ctx) error {
	f := repository.PostFilter{
		Status: c.Query("status"),
		Tag:    c.Query("tag"),
		Query:  c.Query("q"),
		Page:   int64(c.QueryInt("page", 1)),
		Limit:  int64(c.QueryInt("limit", 10)),
	}
	if author := c.Query("author"); author != "" {
		id, err := bson.ObjectIDFromHex(author)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid author id"})
		}
		f.AuthorID = &id
	}

	var caller *model.Caller
	if cl, ok := middleware.CallerFrom(c); ok {
		caller = &cl
	}
	posts, total, err := h.Posts.List(c.Context(), caller, f)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dto.ListPostsResp{
		Data: posts,
		Meta: dto.PageMeta{Total: total, Page: f.Page, Limit: f.Limit},
	})
}

// GET /api/posts/:id
func (h *PostHandler) Get(c *fiber.Ctx) error {
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	var caller *model.Caller
	if cl, ok := middleware.CallerFrom(c); ok {
		caller = &cl
	}
	detail, err := h.Posts.Get(c.Context(), caller, id)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(detail)
}

// PUT /api/posts/:id
func (h *PostHandler) Update(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	var body dto.UpdatePostReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	post, err := h.Posts.Update(c.Context(), caller, id, body)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// DELETE /api/posts/:id?soft=true
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	soft := c.Query("soft") == "true"
	if err := h.Posts.Delete(c.Context(), caller, id, soft); err != nil {
		return respondErr(c, err)
	}
	if soft {
		return c.JSON(fiber.Map{"message": "post archived"})
	}
	return c.JSON(fiber.Map{"message": "post and comments deleted"})
}

// POST /api/posts/:id/tags
func (h *PostHandler) AddTag(c *fiber.Ctx) error {
	return h.tagOp(c, h.Posts.AddTag)
}

// DELETE /api/posts/:id/tags
func (h *PostHandler) RemoveTag(c *fiber.Ctx) error {
	return h.tagOp(c, h.Posts.RemoveTag)
}

type tagFn func(ctx context.Context, caller model.Caller, id bson.ObjectID, tag string) (*model.Post, error)

func (h *PostHandler) tagOp(c *fiber.Ctx, op tagFn) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	var body dto.TagReq
	if err := c.BodyParser(&body); err != nil || body.Tag == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tag required"})
	}
	post, err := op(c.Context(), caller, id, body.Tag)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// POST /api/posts/:id/like
func (h *PostHandler) ToggleLike(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	resp, err := h.Likes.Toggle(c.Context(), id, caller.ID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(resp)
}

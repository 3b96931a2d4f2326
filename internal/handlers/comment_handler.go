package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"blog-backend/dto"
	"blog-backend/internal/middleware"
	"blog-backend/services"
)

type CommentHandler struct {
	Comments  *services.CommentService
	Reconcile *services.ReconcileService
}

// POST /api/posts/:postId/comments
func (h *CommentHandler) Create(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	postID, err := bson.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid post id"})
	}
	var body dto.CreateCommentReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	var parentID *bson.ObjectID
	if body.ParentID != "" {
		pid, err := bson.ObjectIDFromHex(body.ParentID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid parent id"})
		}
		parentID = &pid
	}

	comment, err := h.Comments.Create(c.Context(), postID, caller, body.Text, parentID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"comment": comment})
}

// GET /api/posts/:postId/comments?page=1&limit=20
func (h *CommentHandler) List(c *fiber.Ctx) error {
	postID, err := bson.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid post id"})
	}
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 20))

	comments, total, err := h.Comments.List(c.Context(), postID, page, limit)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dto.ListCommentsResp{
		Data: comments,
		Meta: dto.PageMeta{Total: total, Page: page, Limit: limit},
	})
}

// PUT /api/comments/:id
func (h *CommentHandler) Update(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	var body dto.UpdateCommentReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	comment, err := h.Comments.Update(c.Context(), id, caller, body.Text)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"comment": comment})
}

// DELETE /api/comments/:id
func (h *CommentHandler) Delete(c *fiber.Ctx) error {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	id, err := bson.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid id"})
	}
	if err := h.Comments.Delete(c.Context(), id, caller); err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "comment deleted"})
}

// POST /api/posts/:postId/reconcile (admin)
func (h *CommentHandler) ReconcilePost(c *fiber.Ctx) error {
	postID, err := bson.ObjectIDFromHex(c.Params("postId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid post id"})
	}
	count, err := h.Reconcile.Reconcile(c.Context(), postID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dto.ReconcileResp{PostID: postID.Hex(), Count: count})
}

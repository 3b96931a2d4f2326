package handlers

import (
	"github.com/gofiber/fiber/v2"

	"blog-backend/dto"
	"blog-backend/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.RegisterReq true "credentials"
// @Success 201 {object} dto.AuthResp
// @Failure 409 {object} dto.ErrorResp
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var body dto.RegisterReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	token, user, err := h.Auth.Register(c.Context(), body.Username, body.Email, body.Password)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.AuthResp{Token: token, User: user})
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body dto.LoginReq true "credentials"
// @Success 200 {object} dto.AuthResp
// @Failure 401 {object} dto.ErrorResp
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var body dto.LoginReq
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	token, user, err := h.Auth.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(dto.AuthResp{Token: token, User: user})
}

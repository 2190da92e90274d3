package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/healthhub/healthhub-service/internal/api/dto"
	"github.com/healthhub/healthhub-service/internal/auth"
	"github.com/healthhub/healthhub-service/internal/config"
	"github.com/healthhub/healthhub-service/internal/service"
)

// AuthHandler exposes login, session and one-time token endpoints.
type AuthHandler struct {
	auth   *service.AuthService
	cookie config.AuthConfig
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{auth: authService, cookie: cfg}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	res, err := h.auth.Login(c.UserContext(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		LoginAs:  req.LoginAs,
		Device:   auth.DeviceFromRequest(c),
	})
	if err != nil {
		return err
	}

	h.setRefreshCookie(c, res.RefreshToken, res.RefreshExpiresAt)
	return c.JSON(dto.LoginResponse{
		Message:         "Login successful",
		User:            subjectResponse(res.Subject),
		AccessToken:     res.AccessToken,
		AccessExpiresAt: res.AccessExpiresAt,
	})
}

// Refresh handles POST /auth/token/refresh.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	session, err := h.auth.Refresh(c.UserContext(), c.Cookies(h.cookie.RefreshCookieName))
	if err != nil {
		return err
	}
	return c.JSON(dto.TokenResponse{AccessToken: session.AccessToken, AccessExpiresAt: session.AccessExpiresAt})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(h.cookie.RefreshCookieName)); err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return c.JSON(dto.MessageResponse{Message: "Logged out"})
}

// VerifyAccount handles GET /auth/verify/:id?token=.
func (h *AuthHandler) VerifyAccount(c *fiber.Ctx) error {
	clinician, err := h.auth.VerifyAccount(c.UserContext(), c.Params("id"), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Account verified successfully",
		"name":    clinician.FirstName,
	})
}

// ForgotPassword handles POST /auth/password/forgot.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	err := h.auth.ForgotPassword(c.UserContext(), service.ForgotPasswordInput{
		Email:       req.Email,
		AccountType: req.AccountType,
		Device:      auth.DeviceFromRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Reset instructions have been sent to your email"})
}

// CheckPasswordReset handles GET /auth/password/:id?token=.
func (h *AuthHandler) CheckPasswordReset(c *fiber.Ctx) error {
	subject, err := h.auth.CheckPasswordReset(c.UserContext(), c.Params("id"), c.Query("token"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"message":  "password change allowed",
		"userName": subject.Base().FirstName,
	})
}

// ResetPassword handles POST /auth/password/:id/reset?token=.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	err := h.auth.ResetPassword(c.UserContext(), service.ResetPasswordInput{
		SubjectID: c.Params("id"),
		Token:     c.Query("token"),
		Password:  req.Password,
		Device:    auth.DeviceFromRequest(c),
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Password reset successfully"})
}

func (h *AuthHandler) setRefreshCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.RefreshCookieName,
		Value:    value,
		Expires:  expires,
		MaxAge:   int(h.cookie.RefreshTokenTTL.Seconds()),
		HTTPOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (h *AuthHandler) clearRefreshCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.RefreshCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   h.cookie.CookieSecure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

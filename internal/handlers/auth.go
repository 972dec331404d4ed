package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/mkarpenko/stores_api/internal/hash"
	"github.com/mkarpenko/stores_api/internal/logging"
	"github.com/mkarpenko/stores_api/internal/middleware/auth"
	"github.com/mkarpenko/stores_api/internal/models"
	"github.com/mkarpenko/stores_api/internal/mykafka"
	"github.com/mkarpenko/stores_api/internal/revocation"
	"github.com/mkarpenko/stores_api/internal/service/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.Service
	Registry revocation.Registry
	Producer *mykafka.Producer
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka publish failed", "error", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "username and password are required"})
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not hash password"})
	}

	user := models.User{
		Username:     req.Username,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		// The first account ever created is the admin. Every later account
		// is a plain user.
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			user.Role = models.RoleAdmin
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.JSON(http.StatusConflict, echo.Map{"message": "A user with that name already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred while creating the user"})
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{"message": "User created successfully!"})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
	}

	var user models.User
	if err := h.DB.Where("username = ?", req.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Invalid Credentials!"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred during login"})
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "Invalid Credentials!"})
	}

	isAdmin := user.Role == models.RoleAdmin
	accessToken, err := h.Tokens.IssueAccess(user.ID, isAdmin, true)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create access token"})
	}
	refreshToken, err := h.Tokens.IssueRefresh(user.ID, isAdmin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create refresh token"})
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]any{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Refresh mints a new non-fresh access token for the bearer's subject. The
// admin claim is re-derived from the user record so a role change takes
// effect on the next refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Signature verification failed", "error": "invalid token"})
	}
	userID, err := claims.UserID()
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Signature verification failed", "error": "invalid token"})
	}

	var user models.User
	if err := h.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Signature verification failed", "error": "invalid token"})
	}

	accessToken, err := h.Tokens.IssueAccess(user.ID, user.Role == models.RoleAdmin, false)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "could not create access token"})
	}

	return c.JSON(http.StatusOK, echo.Map{"access_token": accessToken})
}

func (h *AuthHandler) Logout(c echo.Context) error {
	claims := auth.ClaimsFrom(c)
	if claims == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Signature verification failed", "error": "invalid token"})
	}

	expiresAt := time.Now()
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	ctx := c.Request().Context()
	if err := h.Registry.Revoke(ctx, claims.ID, expiresAt); err != nil {
		logging.FromContext(ctx).Error("revoke failed", "jti", claims.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "An error occurred during logout"})
	}

	h.publish(c, claims.Subject, map[string]any{
		"type": "user_logged_out",
		"jti":  claims.ID,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Successfully logged out"})
}

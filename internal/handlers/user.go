package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/Skotchmaster/digital_store/internal/hash"
	"github.com/Skotchmaster/digital_store/internal/jwtmiddleware"
	"github.com/Skotchmaster/digital_store/internal/logging"
	"github.com/Skotchmaster/digital_store/internal/models"
	"github.com/Skotchmaster/digital_store/internal/mykafka"
)

type UserHandler struct {
	DB        *gorm.DB
	Producer  *mykafka.Producer
	JWTSecret []byte
}

func (h *UserHandler) GenerateToken(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.token")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("token_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		l.Warn("token_failed", "status", 400, "reason", "email and password are required")
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("token_failed", "status", 400, "reason", "invalid email or password")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid email or password")
		}
		l.Error("token_failed", "status", 500, "reason", "cannot load user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot generate token")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("token_failed", "status", 400, "reason", "invalid email or password")
		return echo.NewHTTPError(http.StatusBadRequest, "invalid email or password")
	}

	token, err := jwtmiddleware.SignToken(user.ID, user.Email, h.JWTSecret)
	if err != nil {
		l.Error("token_failed", "status", 500, "reason", "cannot sign token", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot generate token")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("token_success", "userID", user.ID)
	return c.JSON(http.StatusOK, echo.Map{"token": token})
}

func (h *UserHandler) GetUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.get")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("user_get_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("user_get_failed", "status", 404, "reason", "user not found")
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("user_get_failed", "status", 500, "reason", "cannot get user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get user")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":        user.ID,
		"firstname": user.Firstname,
		"surname":   user.Surname,
		"email":     user.Email,
	})
}

func (h *UserHandler) CreateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.create")

	var req struct {
		Firstname       string `json:"firstname"`
		Surname         string `json:"surname"`
		Email           string `json:"email"`
		Password        string `json:"password"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("user_create_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Firstname == "" || req.Surname == "" || req.Email == "" ||
		req.Password == "" || req.ConfirmPassword == "" {
		l.Warn("user_create_failed", "status", 400, "reason", "incomplete data")
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete data")
	}
	if req.Password != req.ConfirmPassword {
		l.Warn("user_create_failed", "status", 400, "reason", "passwords do not match")
		return echo.NewHTTPError(http.StatusBadRequest, "passwords do not match")
	}

	var existing models.User
	err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&existing).Error
	switch {
	case err == nil:
		l.Warn("user_create_failed", "status", 400, "reason", "email already registered")
		return echo.NewHTTPError(http.StatusBadRequest, "email already registered")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		l.Error("user_create_failed", "status", 500, "reason", "cannot check email", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
	}

	// the hash is derived once here, plain updates never touch it
	passwordHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("user_create_failed", "status", 500, "reason", "cannot hash password", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
	}

	user := models.User{
		Firstname:    req.Firstname,
		Surname:      req.Surname,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
		l.Error("user_create_failed", "status", 500, "reason", "cannot create user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot create user")
	}

	publish(c, h.Producer, "user_events", fmt.Sprint(user.ID), map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("user_create_success", "userID", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{"message": "user created"})
}

func (h *UserHandler) UpdateUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.update")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("user_update_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var req struct {
		Firstname string `json:"firstname"`
		Surname   string `json:"surname"`
		Email     string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("user_update_failed", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Firstname == "" || req.Surname == "" || req.Email == "" {
		l.Warn("user_update_failed", "status", 400, "reason", "incomplete data")
		return echo.NewHTTPError(http.StatusBadRequest, "incomplete data")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("user_update_failed", "status", 404, "reason", "user not found")
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("user_update_failed", "status", 500, "reason", "cannot load user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update user")
	}

	user.Firstname = req.Firstname
	user.Surname = req.Surname
	user.Email = req.Email

	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("user_update_failed", "status", 500, "reason", "cannot save user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update user")
	}

	l.Info("user_update_success", "userID", user.ID)
	return c.NoContent(http.StatusNoContent)
}

func (h *UserHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "user.delete")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		l.Warn("user_delete_failed", "status", 400, "reason", "id is not an integer", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "id must be an integer")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("user_delete_failed", "status", 404, "reason", "user not found")
			return echo.NewHTTPError(http.StatusNotFound, "user not found")
		}
		l.Error("user_delete_failed", "status", 500, "reason", "cannot load user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete user")
	}

	if err := h.DB.WithContext(ctx).Delete(&user).Error; err != nil {
		l.Error("user_delete_failed", "status", 500, "reason", "cannot delete user", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete user")
	}

	l.Info("user_delete_success", "userID", id)
	return c.NoContent(http.StatusNoContent)
}

package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

type AuthController struct {
	users *services.UserService
}

func NewAuthController(users *services.UserService) *AuthController {
	return &AuthController{users: users}
}

type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

type SetPasswordRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Code     string `json:"code" binding:"required,len=6,numeric"`
	Password string `json:"password" binding:"required,min=8"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

func (ac *AuthController) Register(c *gin.Context) {
	var req services.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	result, err := ac.users.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Registration successful", result)
}

func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := ac.users.Login(c.Request.Context(), req.Email, req.Password, req.RememberMe)
	if err != nil {
		logger.Debug("Login rejected", map[string]interface{}{"email": req.Email, "error": err.Error()})
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Login successful", result)
}

func (ac *AuthController) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ac.users.SetPassword(c.Request.Context(), req.Email, req.Code, req.Password); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Password updated", nil)
}

func (ac *AuthController) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := ac.users.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		logger.WithError(err, "auth_controller").Error("Forgot password failed")
	}
	respondSuccess(c, http.StatusOK, "If the account exists, a code has been sent", nil)
}

func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.users.Get(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", user)
}

func (ac *AuthController) UpdateMe(c *gin.Context) {
	var req services.ProfileUpdate
	if !bindJSON(c, &req) {
		return
	}
	user, err := ac.users.UpdateProfile(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Profile updated", user)
}

func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	err := ac.users.ChangePassword(c.Request.Context(), middleware.CurrentUserID(c), req.CurrentPassword, req.NewPassword)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Password changed successfully", nil)
}

// DeleteMe requires an OTP-elevated token.
func (ac *AuthController) DeleteMe(c *gin.Context) {
	if err := ac.users.DeleteSelf(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Account deleted", nil)
}

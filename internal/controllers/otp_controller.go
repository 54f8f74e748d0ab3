package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/services"
)

type OTPController struct {
	otp *services.OTPService
}

func NewOTPController(otp *services.OTPService) *OTPController {
	return &OTPController{otp: otp}
}

type VerifyOTPRequest struct {
	Code string `json:"code" binding:"required,len=6,numeric"`
}

func (oc *OTPController) Send(c *gin.Context) {
	if err := oc.otp.SendStepUp(c.Request.Context(), middleware.CurrentUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Verification code sent", nil)
}

// Verify exchanges a code for a short-lived elevated token.
func (oc *OTPController) Verify(c *gin.Context) {
	var req VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}
	token, expiresAt, err := oc.otp.VerifyStepUp(c.Request.Context(), middleware.CurrentUserID(c), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Code verified", gin.H{
		"token":     token,
		"expiresAt": expiresAt,
	})
}

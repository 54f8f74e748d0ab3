package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/services"
)

type RefundController struct {
	refunds *services.RefundService
}

func NewRefundController(refunds *services.RefundService) *RefundController {
	return &RefundController{refunds: refunds}
}

func (rc *RefundController) Create(c *gin.Context) {
	var req services.RefundInput
	if !bindJSON(c, &req) {
		return
	}
	refund, err := rc.refunds.Request(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Refund requested", refund)
}

func (rc *RefundController) List(c *gin.Context) {
	filter := services.RefundFilter{Status: models.RefundStatus(c.Query("status"))}
	page, err := rc.refunds.List(c.Request.Context(), actorFrom(c), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (rc *RefundController) Approve(c *gin.Context) {
	refund, err := rc.refunds.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Refund approved", refund)
}

func (rc *RefundController) Reject(c *gin.Context) {
	var req ReasonRequest
	if !bindJSON(c, &req) {
		return
	}
	refund, err := rc.refunds.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Refund rejected", refund)
}

package controllers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/pdf"
	"github.com/utleieskade/backend/internal/services"
)

type PaymentController struct {
	payments *services.PaymentService
	payouts  *services.PayoutService
}

func NewPaymentController(payments *services.PaymentService, payouts *services.PayoutService) *PaymentController {
	return &PaymentController{payments: payments, payouts: payouts}
}

type IntentRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	CaseID string           `json:"caseId"`
}

type ReasonRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (pc *PaymentController) CreateIntent(c *gin.Context) {
	var req IntentRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	intent, err := pc.payments.CreateIntent(c.Request.Context(), actorFrom(c), req.Amount, req.CaseID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment intent created", intent)
}

func (pc *PaymentController) Confirm(c *gin.Context) {
	var req services.ConfirmInput
	if !bindJSON(c, &req) {
		return
	}
	result, err := pc.payments.Confirm(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Payment confirmed", result)
}

func (pc *PaymentController) List(c *gin.Context) {
	filter := services.PaymentFilter{
		Status: models.PaymentStatus(c.Query("status")),
		SortBy: c.Query("sortBy"),
		Order:  c.Query("order"),
	}
	page, err := pc.payments.List(c.Request.Context(), actorFrom(c), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (pc *PaymentController) Get(c *gin.Context) {
	payment, err := pc.payments.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", payment)
}

func (pc *PaymentController) Approve(c *gin.Context) {
	payment, err := pc.payments.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment approved", payment)
}

func (pc *PaymentController) Reject(c *gin.Context) {
	var req ReasonRequest
	if !bindJSON(c, &req) {
		return
	}
	payment, err := pc.payments.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payment rejected", payment)
}

func (pc *PaymentController) Receipt(c *gin.Context) {
	payment, found, err := pc.payments.Receipt(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := pdf.PaymentReceipt(&buf, payment, payment.Tenant, found); err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, "kvittering-"+payment.ID+".pdf", &buf)
}

func (pc *PaymentController) ListPayouts(c *gin.Context) {
	filter := services.PayoutFilter{
		InspectorID: c.Query("inspectorId"),
		Status:      models.PayoutStatus(c.Query("status")),
	}
	page, err := pc.payouts.List(c.Request.Context(), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (pc *PaymentController) ApprovePayout(c *gin.Context) {
	payout, err := pc.payouts.Approve(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payout approved", payout)
}

func (pc *PaymentController) RejectPayout(c *gin.Context) {
	var req ReasonRequest
	if !bindJSON(c, &req) {
		return
	}
	payout, err := pc.payouts.Reject(c.Request.Context(), actorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Payout rejected", payout)
}

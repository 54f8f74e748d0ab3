package controllers

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/pdf"
	"github.com/utleieskade/backend/internal/services"
)

// directory serves the staff listing and export endpoints for one role.
type directory struct {
	users *services.UserService
	role  models.UserRole
	title string
}

func (d directory) list(c *gin.Context) {
	filter := services.UserFilter{
		Role:        d.role,
		Status:      models.UserStatus(c.Query("status")),
		Search:      c.Query("search"),
		ExpertiseID: c.Query("expertiseId"),
		SortBy:      c.Query("sortBy"),
		Order:       c.Query("order"),
	}
	page, err := d.users.List(c.Request.Context(), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (d directory) get(c *gin.Context) {
	user, err := d.users.GetWithRole(c.Request.Context(), c.Param("id"), d.role)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", user)
}

func (d directory) exportName(ext string) string {
	return string(d.role) + "s-" + time.Now().Format("20060102") + ext
}

func (d directory) exportCSV(c *gin.Context) {
	users, err := d.users.AllWithRole(c.Request.Context(), d.role)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := services.WriteUsersCSV(&buf, d.role, users); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+d.exportName(".csv")+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func (d directory) exportPDF(c *gin.Context) {
	users, err := d.users.AllWithRole(c.Request.Context(), d.role)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := pdf.UserList(&buf, d.title, users); err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, d.exportName(".pdf"), &buf)
}

type TenantController struct {
	directory
}

func NewTenantController(users *services.UserService) *TenantController {
	return &TenantController{directory{users: users, role: models.RoleTenant, title: "Leietakere"}}
}

func (tc *TenantController) List(c *gin.Context)      { tc.list(c) }
func (tc *TenantController) Get(c *gin.Context)       { tc.get(c) }
func (tc *TenantController) ExportCSV(c *gin.Context) { tc.exportCSV(c) }
func (tc *TenantController) ExportPDF(c *gin.Context) { tc.exportPDF(c) }

type InspectorController struct {
	directory
	payouts *services.PayoutService
}

func NewInspectorController(users *services.UserService, payouts *services.PayoutService) *InspectorController {
	return &InspectorController{
		directory: directory{users: users, role: models.RoleInspector, title: "Inspektører"},
		payouts:   payouts,
	}
}

type PayoutRequest struct {
	Amount   decimal.Decimal `json:"amount" binding:"required"`
	Password string          `json:"password" binding:"required"`
}

type ExpertisesRequest struct {
	ExpertiseIDs []string `json:"expertiseIds" binding:"required"`
}

func (ic *InspectorController) List(c *gin.Context)      { ic.list(c) }
func (ic *InspectorController) Get(c *gin.Context)       { ic.get(c) }
func (ic *InspectorController) ExportCSV(c *gin.Context) { ic.exportCSV(c) }
func (ic *InspectorController) ExportPDF(c *gin.Context) { ic.exportPDF(c) }

func (ic *InspectorController) Earnings(c *gin.Context) {
	earnings, err := ic.payouts.Earnings(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", earnings)
}

func (ic *InspectorController) EarningsPDF(c *gin.Context) {
	statement, err := ic.payouts.Statement(c.Request.Context(), actorFrom(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	var buf bytes.Buffer
	if err := pdf.InspectorEarnings(&buf, *statement); err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, "inntekter-"+time.Now().Format("20060102")+".pdf", &buf)
}

func (ic *InspectorController) Payouts(c *gin.Context) {
	filter := services.PayoutFilter{InspectorID: actorFrom(c).ID, Status: models.PayoutStatus(c.Query("status"))}
	page, err := ic.payouts.List(c.Request.Context(), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (ic *InspectorController) RequestPayout(c *gin.Context) {
	var req PayoutRequest
	if !bindJSON(c, &req) {
		return
	}
	payout, err := ic.payouts.Request(c.Request.Context(), actorFrom(c), req.Amount, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Payout requested", payout)
}

func (ic *InspectorController) SetExpertises(c *gin.Context) {
	var req ExpertisesRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := ic.users.SetExpertises(c.Request.Context(), actorFrom(c).ID, req.ExpertiseIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Expertises updated", user)
}

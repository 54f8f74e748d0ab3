package controllers

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/pdf"
	"github.com/utleieskade/backend/internal/services"
)

type CaseController struct {
	cases    *services.CaseService
	reports  *services.ReportService
	settings *services.SettingsService
}

func NewCaseController(cases *services.CaseService, reports *services.ReportService, settings *services.SettingsService) *CaseController {
	return &CaseController{cases: cases, reports: reports, settings: settings}
}

type AssignRequest struct {
	InspectorID string `json:"inspectorId" binding:"required"`
}

type CancelRequest struct {
	CancellationReason string `json:"cancellationReason" binding:"required"`
}

type StatusRequest struct {
	Status models.CaseStatus `json:"status" binding:"required,casestatus"`
}

func caseFilterFrom(c *gin.Context) services.CaseFilter {
	return services.CaseFilter{
		Status:  models.CaseStatus(c.Query("status")),
		Urgency: models.CaseUrgency(c.Query("urgency")),
		Search:  c.Query("search"),
		SortBy:  c.Query("sortBy"),
		Order:   c.Query("order"),
	}
}

func (cc *CaseController) Create(c *gin.Context) {
	var req services.CaseInput
	if !bindJSON(c, &req) {
		return
	}
	created, err := cc.cases.Create(c.Request.Context(), actorFrom(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Case created", created)
}

func (cc *CaseController) List(c *gin.Context) {
	page, err := cc.cases.List(c.Request.Context(), actorFrom(c), caseFilterFrom(c), paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

// ListMine lists cases owned by (tenant) or assigned to (inspector) the caller.
func (cc *CaseController) ListMine(c *gin.Context) {
	filter := caseFilterFrom(c)
	filter.AssignedOnly = true
	page, err := cc.cases.List(c.Request.Context(), actorFrom(c), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (cc *CaseController) Get(c *gin.Context) {
	found, err := cc.cases.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", found)
}

func (cc *CaseController) Assign(c *gin.Context) {
	var req AssignRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := cc.cases.Assign(c.Request.Context(), actorFrom(c), c.Param("id"), req.InspectorID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Inspector assigned", updated)
}

func (cc *CaseController) Cancel(c *gin.Context) {
	var req CancelRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := cc.cases.Cancel(c.Request.Context(), actorFrom(c), c.Param("id"), req.CancellationReason)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Case cancelled", updated)
}

func (cc *CaseController) ChangeStatus(c *gin.Context) {
	var req StatusRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := cc.cases.ChangeStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Case status updated", updated)
}

func (cc *CaseController) Timeline(c *gin.Context) {
	events, err := cc.cases.Timeline(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", events)
}

func (cc *CaseController) Claim(c *gin.Context) {
	cc.respondCase(c, "Case claimed")(cc.cases.Claim(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (cc *CaseController) Release(c *gin.Context) {
	cc.respondCase(c, "Case released")(cc.cases.Release(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (cc *CaseController) Hold(c *gin.Context) {
	cc.respondCase(c, "Case put on hold")(cc.cases.Hold(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (cc *CaseController) Resume(c *gin.Context) {
	cc.respondCase(c, "Case resumed")(cc.cases.Resume(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (cc *CaseController) Complete(c *gin.Context) {
	cc.respondCase(c, "Case completed")(cc.cases.Complete(c.Request.Context(), actorFrom(c), c.Param("id")))
}

func (cc *CaseController) respondCase(c *gin.Context, message string) func(*models.Case, error) {
	return func(updated *models.Case, err error) {
		if err != nil {
			respondError(c, err)
			return
		}
		respondSuccess(c, http.StatusOK, message, updated)
	}
}

func (cc *CaseController) SubmitReport(c *gin.Context) {
	var req services.ReportInput
	if !bindJSON(c, &req) {
		return
	}
	report, err := cc.reports.Submit(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Report submitted", report)
}

func (cc *CaseController) GetReport(c *gin.Context) {
	report, err := cc.reports.ForCase(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", report)
}

func (cc *CaseController) ReportPDF(c *gin.Context) {
	ctx := c.Request.Context()
	found, err := cc.cases.Get(ctx, actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := cc.reports.ForCase(ctx, actorFrom(c), found.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	settings, err := cc.settings.Get(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := pdf.CaseReport(&buf, found, report, settings.Currency); err != nil {
		respondError(c, err)
		return
	}
	sendPDF(c, "rapport-"+found.CaseNumber+".pdf", &buf)
}

// sendPDF streams a rendered document inline.
func sendPDF(c *gin.Context, filename string, buf *bytes.Buffer) {
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

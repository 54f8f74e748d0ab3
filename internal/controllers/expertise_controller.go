package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/services"
)

type ExpertiseController struct {
	expertises *services.ExpertiseService
}

func NewExpertiseController(expertises *services.ExpertiseService) *ExpertiseController {
	return &ExpertiseController{expertises: expertises}
}

type ExpertiseRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (ec *ExpertiseController) List(c *gin.Context) {
	items, err := ec.expertises.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", items)
}

func (ec *ExpertiseController) Create(c *gin.Context) {
	var req ExpertiseRequest
	if !bindJSON(c, &req) {
		return
	}
	item, err := ec.expertises.Create(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Expertise created", item)
}

func (ec *ExpertiseController) Delete(c *gin.Context) {
	if err := ec.expertises.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "Expertise deleted", nil)
}

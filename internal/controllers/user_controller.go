package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/middleware"
	"github.com/utleieskade/backend/internal/models"
	"github.com/utleieskade/backend/internal/services"
)

// UserController serves the staff-only user management endpoints.
type UserController struct {
	users   *services.UserService
	actions *services.ActionLogService
}

func NewUserController(users *services.UserService, actions *services.ActionLogService) *UserController {
	return &UserController{users: users, actions: actions}
}

type UpdateUserStatusRequest struct {
	Status models.UserStatus `json:"status" binding:"required,oneof=active inactive"`
}

func (uc *UserController) List(c *gin.Context) {
	filter := services.UserFilter{
		Role:        models.UserRole(c.Query("role")),
		Status:      models.UserStatus(c.Query("status")),
		Search:      c.Query("search"),
		ExpertiseID: c.Query("expertiseId"),
		SortBy:      c.Query("sortBy"),
		Order:       c.Query("order"),
	}
	page, err := uc.users.List(c.Request.Context(), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

func (uc *UserController) Get(c *gin.Context) {
	user, err := uc.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", user)
}

func (uc *UserController) CreateStaff(c *gin.Context) {
	var req services.StaffInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.users.CreateStaff(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	logger.WithUser(middleware.CurrentUserID(c)).WithFields(map[string]interface{}{
		"new_user_id": user.ID,
		"role":        user.Role,
	}).Info("Staff account created")
	respondSuccess(c, http.StatusCreated, "User created", user)
}

func (uc *UserController) InviteInspector(c *gin.Context) {
	var req services.InspectorInvite
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.users.InviteInspector(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, "Inspector invited", user)
}

func (uc *UserController) SetStatus(c *gin.Context) {
	var req UpdateUserStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := uc.users.SetStatus(c.Request.Context(), actorFrom(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "User status updated", user)
}

func (uc *UserController) Delete(c *gin.Context) {
	if err := uc.users.DeleteUser(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "User deleted", nil)
}

func (uc *UserController) Dashboard(c *gin.Context) {
	stats, err := uc.users.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", stats)
}

func (uc *UserController) ActionLogs(c *gin.Context) {
	filter := services.ActionLogFilter{
		InspectorID: c.Query("inspectorId"),
		AdminID:     c.Query("adminId"),
		CaseID:      c.Query("caseId"),
		ActionType:  c.Query("actionType"),
	}
	page, err := uc.actions.List(c.Request.Context(), filter, paginationFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, "", page)
}

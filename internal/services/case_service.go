package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/utleieskade/backend/internal/apperrors"
	"github.com/utleieskade/backend/internal/email"
	"github.com/utleieskade/backend/internal/logger"
	"github.com/utleieskade/backend/internal/models"
)

type CaseService struct {
	db            *gorm.DB
	actions       *ActionLogService
	notifications *NotificationService
	mailer        email.Mailer
}

func NewCaseService(db *gorm.DB, actions *ActionLogService, notifications *NotificationService, mailer email.Mailer) *CaseService {
	return &CaseService{db: db, actions: actions, notifications: notifications, mailer: mailer}
}

type PropertyInput struct {
	Address      string `json:"address" binding:"required"`
	PostalCode   string `json:"postalCode" binding:"required"`
	City         string `json:"city" binding:"required"`
	Country      string `json:"country"`
	PropertyType string `json:"propertyType"`
}

type DamageInput struct {
	Location    string     `json:"location" binding:"required"`
	DamageType  string     `json:"damageType" binding:"required"`
	Description string     `json:"description"`
	DamageDate  *time.Time `json:"damageDate"`
	PhotoURLs   []string   `json:"photoUrls"`
}

type CaseInput struct {
	Property    PropertyInput      `json:"property" binding:"required"`
	Damages     []DamageInput      `json:"damages" binding:"required,min=1,dive"`
	Urgency     models.CaseUrgency `json:"urgency" binding:"omitempty,urgency"`
	Description string             `json:"description"`
}

func newCaseNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("US-%s-%s", time.Now().Format("060102"), suffix)
}

// addTimeline appends one event to a case's history.
func addTimeline(tx *gorm.DB, caseID string, event models.TimelineEvent, description string, actorID string) error {
	entry := models.CaseTimeline{
		CaseID:      caseID,
		EventType:   event,
		Description: description,
	}
	if actorID != "" {
		entry.ActorID = strPtr(actorID)
	}
	return tx.Create(&entry).Error
}

// findOrCreateProperty reuses a property with the same address, postal code and city.
func findOrCreateProperty(tx *gorm.DB, in PropertyInput) (*models.Property, error) {
	address := strings.TrimSpace(in.Address)
	postal := strings.TrimSpace(in.PostalCode)
	city := strings.TrimSpace(in.City)

	var property models.Property
	err := tx.Where("LOWER(address) = ? AND postal_code = ? AND LOWER(city) = ?",
		strings.ToLower(address), postal, strings.ToLower(city)).
		First(&property).Error
	if err == nil {
		return &property, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = "Norway"
	}
	property = models.Property{
		Address:      address,
		PostalCode:   postal,
		City:         city,
		Country:      country,
		PropertyType: strings.TrimSpace(in.PropertyType),
	}
	if err := tx.Create(&property).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// createCaseTx inserts a case with its property and damages inside tx.
func createCaseTx(tx *gorm.DB, tenantID string, in CaseInput, status models.CaseStatus) (*models.Case, error) {
	property, err := findOrCreateProperty(tx, in.Property)
	if err != nil {
		return nil, err
	}

	urgency := in.Urgency
	if urgency == "" {
		urgency = models.UrgencyMedium
	}
	if !urgency.Valid() {
		return nil, apperrors.NewFieldError("urgency", "Unknown urgency")
	}

	c := models.Case{
		CaseNumber:  newCaseNumber(),
		TenantID:    tenantID,
		PropertyID:  property.ID,
		Status:      status,
		Urgency:     urgency,
		Description: CleanText(in.Description),
	}
	for _, d := range in.Damages {
		damage := models.Damage{
			Location:    CleanText(d.Location),
			DamageType:  CleanText(d.DamageType),
			Description: CleanText(d.Description),
			DamageDate:  d.DamageDate,
		}
		for _, url := range d.PhotoURLs {
			if url = strings.TrimSpace(url); url != "" {
				damage.Photos = append(damage.Photos, models.DamagePhoto{URL: url})
			}
		}
		c.Damages = append(c.Damages, damage)
	}

	if err := tx.Create(&c).Error; err != nil {
		return nil, err
	}
	c.Property = property

	if err := addTimeline(tx, c.ID, models.EventCaseCreated, "Case "+c.CaseNumber+" created", tenantID); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create registers a case awaiting payment.
func (cs *CaseService) Create(ctx context.Context, tenant Actor, in CaseInput) (*models.Case, error) {
	var created *models.Case
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := createCaseTx(tx, tenant.ID, in, models.CaseStatusPending)
		if err != nil {
			return err
		}
		created = c
		return nil
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}

	logger.WithCase(created.ID).WithField("user_id", tenant.ID).Info("Case created")
	return cs.load(ctx, created.ID)
}

type CaseFilter struct {
	Status       models.CaseStatus
	Urgency      models.CaseUrgency
	Search       string
	SortBy       string
	Order        string
	AssignedOnly bool
}

var caseSort = SortSpec{
	Allowed: map[string]string{
		"createdAt":  "created_at",
		"updatedAt":  "updated_at",
		"status":     "status",
		"urgency":    "urgency",
		"caseNumber": "case_number",
	},
	Default: "createdAt",
}

// scope restricts a case query to what actor may see.
func caseScope(query *gorm.DB, actor Actor, assignedOnly bool) *gorm.DB {
	switch {
	case actor.IsStaff():
		return query
	case actor.Role == models.RoleInspector:
		if assignedOnly {
			return query.Where("inspector_id = ?", actor.ID)
		}
		return query.Where("inspector_id = ? OR (inspector_id IS NULL AND status = ?)", actor.ID, models.CaseStatusOpen)
	default:
		return query.Where("tenant_id = ?", actor.ID)
	}
}

func (cs *CaseService) List(ctx context.Context, actor Actor, f CaseFilter, p Pagination) (*Page[models.Case], error) {
	order, err := caseSort.Clause(f.SortBy, f.Order)
	if err != nil {
		return nil, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.NewFieldError("status", "Unknown case status")
	}

	query := caseScope(cs.db.WithContext(ctx).Model(&models.Case{}), actor, f.AssignedOnly)
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Urgency != "" {
		query = query.Where("urgency = ?", f.Urgency)
	}
	if f.Search != "" {
		pattern := likePattern(f.Search)
		query = query.Where("LOWER(description) LIKE ? OR LOWER(case_number) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, apperrors.FromGorm(err, "cases")
	}
	var cases []models.Case
	err = query.Preload("Property").Preload("Inspector").
		Order(order).Offset(p.Offset()).Limit(p.Limit).
		Find(&cases).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "cases")
	}
	return &Page[models.Case]{Items: cases, Page: p.Page, Limit: p.Limit, Total: total}, nil
}

func (cs *CaseService) load(ctx context.Context, id string) (*models.Case, error) {
	var c models.Case
	err := cs.db.WithContext(ctx).
		Preload("Property").
		Preload("Tenant").
		Preload("Inspector").
		Preload("Damages.Photos").
		Preload("Report.Items").
		Preload("Report.Summary").
		Preload("Report.Photos").
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}
	return &c, nil
}

// canView reports whether actor may read c.
func canView(actor Actor, c *models.Case) bool {
	switch {
	case actor.IsStaff():
		return true
	case actor.Role == models.RoleInspector:
		return c.HasInspector(actor.ID) || (c.InspectorID == nil && c.Status == models.CaseStatusOpen)
	default:
		return c.TenantID == actor.ID
	}
}

func (cs *CaseService) Get(ctx context.Context, actor Actor, id string) (*models.Case, error) {
	c, err := cs.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, c) {
		return nil, apperrors.NewForbiddenError("You do not have access to this case")
	}
	return c, nil
}

func (cs *CaseService) Timeline(ctx context.Context, actor Actor, id string) ([]models.CaseTimeline, error) {
	if _, err := cs.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	var events []models.CaseTimeline
	err := cs.db.WithContext(ctx).Where("case_id = ?", id).Order("created_at ASC").Find(&events).Error
	return events, apperrors.FromGorm(err, "timeline")
}

// Assign sets the case's inspector without changing its status.
func (cs *CaseService) Assign(ctx context.Context, admin Actor, caseID, inspectorID string) (*models.Case, error) {
	var inspector models.User
	err := cs.db.WithContext(ctx).
		Where("id = ? AND role = ? AND status = ?", inspectorID, models.RoleInspector, models.UserStatusActive).
		First(&inspector).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("inspector not found")
		}
		return nil, apperrors.FromGorm(err, "inspector")
	}

	c, err := cs.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Cannot assign an inspector to a %s case", c.Status))
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Case{}).
			Where("id = ? AND status = ?", c.ID, c.Status).
			Update("inspector_id", inspector.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewStateConflictError("Case was modified concurrently, try again")
		}
		return addTimeline(tx, c.ID, models.EventInspectorAssigned, "Inspector "+inspector.FullName()+" assigned", admin.ID)
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}

	cs.actions.Log(ctx, ActionEntry{
		Actor:       admin,
		ActionType:  models.ActionCaseAssigned,
		Description: fmt.Sprintf("Case %s assigned to %s", c.CaseNumber, inspector.Email),
		CaseID:      strPtr(c.ID),
		Metadata:    map[string]string{"inspectorId": inspector.ID},
	})
	cs.notifications.Notify(ctx, inspector.ID, models.NotificationCaseAssigned,
		"Ny sak tildelt", "Du er tildelt sak "+c.CaseNumber+".", strPtr(c.ID))
	if err := cs.mailer.Send(email.CaseAssignedMessage(inspector.Email, inspector.FirstName, c.CaseNumber)); err != nil {
		logger.WithError(err, "case_service").Warn("Failed to send assignment email")
	}

	return cs.load(ctx, c.ID)
}

// transition describes one status change.
type transition struct {
	to          models.CaseStatus
	event       models.TimelineEvent
	action      models.ActionType
	description string
	// setInspector assigns the acting inspector; the update only succeeds while
	// the case is unassigned or already theirs.
	setInspector   bool
	clearInspector bool
	reason         *string
}

var statusEvents = map[models.CaseStatus]models.TimelineEvent{
	models.CaseStatusOpen:      models.EventCaseReleased,
	models.CaseStatusActive:    models.EventCaseResumed,
	models.CaseStatusOnHold:    models.EventCaseOnHold,
	models.CaseStatusCompleted: models.EventCaseCompleted,
	models.CaseStatusClosed:    models.EventCaseClosed,
	models.CaseStatusCancelled: models.EventCaseCancelled,
}

// apply validates and performs t on c with a conditional update.
func (cs *CaseService) apply(ctx context.Context, actor Actor, c *models.Case, t transition) (*models.Case, error) {
	if !c.Status.CanTransitionTo(t.to) {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Cannot change case status from %s to %s", c.Status, t.to))
	}

	now := time.Now()
	updates := map[string]interface{}{"status": t.to}
	switch t.to {
	case models.CaseStatusCompleted:
		updates["completed_at"] = now
	case models.CaseStatusClosed:
		updates["closed_at"] = now
	case models.CaseStatusCancelled:
		updates["cancelled_at"] = now
		if t.reason != nil {
			updates["cancellation_reason"] = *t.reason
		}
	}
	if t.clearInspector {
		updates["inspector_id"] = nil
	}
	if t.setInspector {
		updates["inspector_id"] = actor.ID
	}

	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx.Model(&models.Case{}).Where("id = ? AND status = ?", c.ID, c.Status)
		if t.setInspector {
			query = query.Where("inspector_id IS NULL OR inspector_id = ?", actor.ID)
		}
		res := query.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewStateConflictError("Case was modified concurrently, try again")
		}
		return addTimeline(tx, c.ID, t.event, t.description, actor.ID)
	})
	if err != nil {
		return nil, apperrors.FromGorm(err, "case")
	}

	logger.WithCase(c.ID).WithFields(map[string]interface{}{
		"from":     c.Status,
		"to":       t.to,
		"actor_id": actor.ID,
	}).Info("Case status changed")

	if actor.Role == models.RoleInspector || actor.IsStaff() {
		cs.actions.Log(ctx, ActionEntry{
			Actor:       actor,
			ActionType:  t.action,
			Description: t.description,
			CaseID:      strPtr(c.ID),
			Metadata:    map[string]string{"from": string(c.Status), "to": string(t.to)},
		})
	}
	cs.notifyStatus(ctx, actor, c, t.to)

	return cs.load(ctx, c.ID)
}

// notifyStatus tells the tenant and the assigned inspector, except whoever acted.
func (cs *CaseService) notifyStatus(ctx context.Context, actor Actor, c *models.Case, status models.CaseStatus) {
	title := "Statusendring for sak " + c.CaseNumber
	body := "Saken har nå status " + string(status) + "."
	if c.TenantID != actor.ID {
		cs.notifications.Notify(ctx, c.TenantID, models.NotificationCaseStatusChanged, title, body, strPtr(c.ID))
	}
	if c.InspectorID != nil && *c.InspectorID != actor.ID {
		cs.notifications.Notify(ctx, *c.InspectorID, models.NotificationCaseStatusChanged, title, body, strPtr(c.ID))
	}
}

// Cancel cancels a case on behalf of its tenant, its inspector or staff.
func (cs *CaseService) Cancel(ctx context.Context, actor Actor, caseID, reason string) (*models.Case, error) {
	reason = CleanText(reason)
	if reason == "" {
		return nil, apperrors.NewFieldError("cancellationReason", "Cancellation reason is required")
	}
	c, err := cs.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	allowed := actor.IsStaff() ||
		(actor.Role == models.RoleInspector && c.HasInspector(actor.ID)) ||
		(actor.Role != models.RoleInspector && c.TenantID == actor.ID)
	if !allowed {
		return nil, apperrors.NewForbiddenError("You cannot cancel this case")
	}

	return cs.apply(ctx, actor, c, transition{
		to:          models.CaseStatusCancelled,
		event:       models.EventCaseCancelled,
		action:      models.ActionCaseCancelled,
		description: "Case cancelled: " + reason,
		reason:      &reason,
	})
}

// ChangeStatus performs an explicit staff transition.
func (cs *CaseService) ChangeStatus(ctx context.Context, admin Actor, caseID string, status models.CaseStatus) (*models.Case, error) {
	if !status.Valid() {
		return nil, apperrors.NewFieldError("status", "Unknown case status")
	}
	c, err := cs.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	event, ok := statusEvents[status]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("Cannot change case status from %s to %s", c.Status, status))
	}
	if c.Status == models.CaseStatusPending && status == models.CaseStatusOpen {
		event = models.EventPaymentReceived
	}
	return cs.apply(ctx, admin, c, transition{
		to:             status,
		event:          event,
		action:         models.ActionStatusChanged,
		description:    fmt.Sprintf("Status changed from %s to %s", c.Status, status),
		clearInspector: status == models.CaseStatusOpen,
	})
}

// inspectorCase loads a case the acting inspector is assigned to.
func (cs *CaseService) inspectorCase(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !c.HasInspector(inspector.ID) {
		return nil, apperrors.NewForbiddenError("You are not assigned to this case")
	}
	return c, nil
}

// Claim takes an open case.
func (cs *CaseService) Claim(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.load(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.InspectorID != nil && !c.HasInspector(inspector.ID) {
		return nil, apperrors.NewStateConflictError("Case is assigned to another inspector")
	}
	return cs.apply(ctx, inspector, c, transition{
		to:           models.CaseStatusActive,
		event:        models.EventCaseClaimed,
		action:       models.ActionCaseClaimed,
		description:  "Case " + c.CaseNumber + " claimed",
		setInspector: true,
	})
}

// Release returns a case to the open pool.
func (cs *CaseService) Release(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.inspectorCase(ctx, inspector, caseID)
	if err != nil {
		return nil, err
	}
	return cs.apply(ctx, inspector, c, transition{
		to:             models.CaseStatusOpen,
		event:          models.EventCaseReleased,
		action:         models.ActionCaseReleased,
		description:    "Case " + c.CaseNumber + " released",
		clearInspector: true,
	})
}

func (cs *CaseService) Hold(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.inspectorCase(ctx, inspector, caseID)
	if err != nil {
		return nil, err
	}
	return cs.apply(ctx, inspector, c, transition{
		to:          models.CaseStatusOnHold,
		event:       models.EventCaseOnHold,
		action:      models.ActionCaseOnHold,
		description: "Case " + c.CaseNumber + " put on hold",
	})
}

func (cs *CaseService) Resume(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.inspectorCase(ctx, inspector, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusOnHold {
		return nil, apperrors.NewValidationError("Only cases on hold can be resumed")
	}
	return cs.apply(ctx, inspector, c, transition{
		to:          models.CaseStatusActive,
		event:       models.EventCaseResumed,
		action:      models.ActionCaseResumed,
		description: "Case " + c.CaseNumber + " resumed",
	})
}

func (cs *CaseService) Complete(ctx context.Context, inspector Actor, caseID string) (*models.Case, error) {
	c, err := cs.inspectorCase(ctx, inspector, caseID)
	if err != nil {
		return nil, err
	}
	return cs.apply(ctx, inspector, c, transition{
		to:          models.CaseStatusCompleted,
		event:       models.EventCaseCompleted,
		action:      models.ActionCaseCompleted,
		description: "Case " + c.CaseNumber + " completed",
	})
}

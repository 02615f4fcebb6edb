package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/model"
	"github.com/iliyamo/ai-travel-planner/internal/service"
)

// TravelPlanHandler serves /api/travelplans. Every route requires a caller.
type TravelPlanHandler struct {
	Plans *service.TravelPlanService
	Log   *zap.Logger
}

func NewTravelPlanHandler(plans *service.TravelPlanService, log *zap.Logger) *TravelPlanHandler {
	return &TravelPlanHandler{Plans: plans, Log: logger.OrNop(log)}
}

// ----- DTOs -----

type planReq struct {
	Destination       string   `json:"destination"`
	Title             string   `json:"title"`
	StartDate         Date     `json:"startDate"`
	EndDate           Date     `json:"endDate"`
	Description       *string  `json:"description"`
	AIRecommendations *string  `json:"aiRecommendations"`
	Budget            *float64 `json:"budget"`
	TravelStyle       *string  `json:"travelStyle"`
	GroupSize         *string  `json:"groupSize"`
	IsPublic          bool     `json:"isPublic"`
}

func (r planReq) input() service.PlanInput {
	return service.PlanInput{
		Destination:       r.Destination,
		Title:             r.Title,
		StartDate:         r.StartDate.Time,
		EndDate:           r.EndDate.Time,
		Description:       r.Description,
		AIRecommendations: r.AIRecommendations,
		Budget:            r.Budget,
		TravelStyle:       r.TravelStyle,
		GroupSize:         r.GroupSize,
		IsPublic:          r.IsPublic,
	}
}

type generateReq struct {
	Destination string   `json:"destination"`
	StartDate   Date     `json:"startDate"`
	EndDate     Date     `json:"endDate"`
	TravelStyle *string  `json:"travelStyle"`
	GroupSize   *string  `json:"groupSize"`
	Budget      *float64 `json:"budget"`
	Preferences *string  `json:"preferences"`
}

type activityDTO struct {
	ID              uint64     `json:"id"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	ScheduledDate   *time.Time `json:"scheduledDate,omitempty"`
	DurationMinutes *int       `json:"durationMinutes,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Cost            *float64   `json:"cost,omitempty"`
	Category        *string    `json:"category,omitempty"`
}

type activityReq struct {
	Name            string   `json:"name"`
	Description     *string  `json:"description"`
	ScheduledDate   *Date    `json:"scheduledDate"`
	DurationMinutes *int     `json:"durationMinutes"`
	Location        *string  `json:"location"`
	Cost            *float64 `json:"cost"`
	Category        *string  `json:"category"`
}

func (r activityReq) toModel() *model.Activity {
	return &model.Activity{
		Name:            r.Name,
		Description:     r.Description,
		ScheduledDate:   r.ScheduledDate.Ptr(),
		DurationMinutes: r.DurationMinutes,
		Location:        r.Location,
		Cost:            r.Cost,
		Category:        r.Category,
	}
}

func toActivityDTO(a *model.Activity) activityDTO {
	return activityDTO{
		ID: a.ID, Name: a.Name, Description: a.Description, ScheduledDate: a.ScheduledDate,
		DurationMinutes: a.DurationMinutes, Location: a.Location, Cost: a.Cost, Category: a.Category,
	}
}

type accommodationDTO struct {
	ID           uint64    `json:"id"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	Address      *string   `json:"address,omitempty"`
	CheckInDate  time.Time `json:"checkInDate"`
	CheckOutDate time.Time `json:"checkOutDate"`
	CostPerNight *float64  `json:"costPerNight,omitempty"`
	Type         *string   `json:"type,omitempty"`
}

type accommodationReq struct {
	Name         string   `json:"name"`
	Description  *string  `json:"description"`
	Address      *string  `json:"address"`
	CheckInDate  Date     `json:"checkInDate"`
	CheckOutDate Date     `json:"checkOutDate"`
	CostPerNight *float64 `json:"costPerNight"`
	Type         *string  `json:"type"`
}

func (r accommodationReq) toModel() *model.Accommodation {
	return &model.Accommodation{
		Name: r.Name, Description: r.Description, Address: r.Address,
		CheckInDate: r.CheckInDate.Time, CheckOutDate: r.CheckOutDate.Time,
		CostPerNight: r.CostPerNight, Type: r.Type,
	}
}

func toAccommodationDTO(a *model.Accommodation) accommodationDTO {
	return accommodationDTO{
		ID: a.ID, Name: a.Name, Description: a.Description, Address: a.Address,
		CheckInDate: a.CheckInDate, CheckOutDate: a.CheckOutDate, CostPerNight: a.CostPerNight, Type: a.Type,
	}
}

type transportationDTO struct {
	ID            uint64     `json:"id"`
	Type          string     `json:"type"`
	Provider      *string    `json:"provider,omitempty"`
	FromLocation  *string    `json:"fromLocation,omitempty"`
	ToLocation    *string    `json:"toLocation,omitempty"`
	DepartureTime *time.Time `json:"departureTime,omitempty"`
	ArrivalTime   *time.Time `json:"arrivalTime,omitempty"`
	Cost          *float64   `json:"cost,omitempty"`
	Notes         *string    `json:"notes,omitempty"`
}

type transportationReq struct {
	Type          string   `json:"type"`
	Provider      *string  `json:"provider"`
	FromLocation  *string  `json:"fromLocation"`
	ToLocation    *string  `json:"toLocation"`
	DepartureTime *Date    `json:"departureTime"`
	ArrivalTime   *Date    `json:"arrivalTime"`
	Cost          *float64 `json:"cost"`
	Notes         *string  `json:"notes"`
}

func (r transportationReq) toModel() *model.Transportation {
	return &model.Transportation{
		Type: r.Type, Provider: r.Provider, FromLocation: r.FromLocation, ToLocation: r.ToLocation,
		DepartureTime: r.DepartureTime.Ptr(), ArrivalTime: r.ArrivalTime.Ptr(), Cost: r.Cost, Notes: r.Notes,
	}
}

func toTransportationDTO(t *model.Transportation) transportationDTO {
	return transportationDTO{
		ID: t.ID, Type: t.Type, Provider: t.Provider, FromLocation: t.FromLocation, ToLocation: t.ToLocation,
		DepartureTime: t.DepartureTime, ArrivalTime: t.ArrivalTime, Cost: t.Cost, Notes: t.Notes,
	}
}

type planResp struct {
	ID                uint64              `json:"id"`
	Destination       string              `json:"destination"`
	Title             string              `json:"title"`
	StartDate         time.Time           `json:"startDate"`
	EndDate           time.Time           `json:"endDate"`
	Description       *string             `json:"description,omitempty"`
	AIRecommendations *string             `json:"aiRecommendations,omitempty"`
	Budget            *float64            `json:"budget,omitempty"`
	TravelStyle       *string             `json:"travelStyle,omitempty"`
	GroupSize         *string             `json:"groupSize,omitempty"`
	IsPublic          bool                `json:"isPublic"`
	CreatedAt         time.Time           `json:"createdDate"`
	UpdatedAt         *time.Time          `json:"updatedDate,omitempty"`
	Activities        []activityDTO       `json:"activities"`
	Accommodations    []accommodationDTO  `json:"accommodations"`
	Transportations   []transportationDTO `json:"transportations"`
}

func toPlanResp(p *model.TravelPlan) planResp {
	return planResp{
		ID: p.ID, Destination: p.Destination, Title: p.Title, StartDate: p.StartDate, EndDate: p.EndDate,
		Description: p.Description, AIRecommendations: p.AIRecommendations, Budget: p.Budget,
		TravelStyle: p.TravelStyle, GroupSize: p.GroupSize, IsPublic: p.IsPublic,
		CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt,
		Activities:      []activityDTO{},
		Accommodations:  []accommodationDTO{},
		Transportations: []transportationDTO{},
	}
}

func toPlanList(ps []*model.TravelPlan) []planResp {
	out := make([]planResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPlanResp(p))
	}
	return out
}

func mapSlice[T, D any](in []*T, fn func(*T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

// ----- plans -----

// List returns the caller's plans.
func (h *TravelPlanHandler) List(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	plans, err := h.Plans.ListMine(ctx, uid)
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanList(plans))
}

// ListPublic returns every public plan.
func (h *TravelPlanHandler) ListPublic(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()
	plans, err := h.Plans.ListPublic(ctx)
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanList(plans))
}

// ByDestination filters the caller's and public plans by destination.
func (h *TravelPlanHandler) ByDestination(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	plans, err := h.Plans.ListByDestination(ctx, uid, c.Param("destination"))
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanList(plans))
}

// ByStyle filters the caller's and public plans by travel style.
func (h *TravelPlanHandler) ByStyle(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	plans, err := h.Plans.ListByStyle(ctx, uid, c.Param("style"))
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanList(plans))
}

// ByDateRange returns the caller's plans inside ?startDate=&endDate=.
func (h *TravelPlanHandler) ByDateRange(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	from, err := parseDate(c.QueryParam("startDate"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "startDate must be a date")
	}
	to, err := parseDate(c.QueryParam("endDate"))
	if err != nil {
		return fail(c, http.StatusBadRequest, "endDate must be a date")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	plans, err := h.Plans.ListByDateRange(ctx, uid, from, to)
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanList(plans))
}

// Get returns one plan with its children.
func (h *TravelPlanHandler) Get(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	d, err := h.Plans.Get(ctx, uid, id)
	if err != nil {
		return h.planError(c, err)
	}
	resp := toPlanResp(d.Plan)
	resp.Activities = mapSlice(d.Activities, toActivityDTO)
	resp.Accommodations = mapSlice(d.Accommodations, toAccommodationDTO)
	resp.Transportations = mapSlice(d.Transportations, toTransportationDTO)
	return c.JSON(http.StatusOK, resp)
}

// Create stores a plan (201).
func (h *TravelPlanHandler) Create(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req planReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Plans.Create(ctx, uid, req.input())
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusCreated, toPlanResp(p))
}

// Generate stores a plan with generated recommendations (201).
func (h *TravelPlanHandler) Generate(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req generateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Plans.Generate(ctx, uid, service.GenerateInput{
		Destination: req.Destination,
		StartDate:   req.StartDate.Time,
		EndDate:     req.EndDate.Time,
		TravelStyle: req.TravelStyle,
		GroupSize:   req.GroupSize,
		Budget:      req.Budget,
		Preferences: req.Preferences,
	})
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusCreated, toPlanResp(p))
}

// Update overwrites a plan of the caller.
func (h *TravelPlanHandler) Update(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req planReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	p, err := h.Plans.Update(ctx, uid, id, req.input())
	if err != nil {
		return h.planError(c, err)
	}
	return c.JSON(http.StatusOK, toPlanResp(p))
}

// Delete removes a plan of the caller (204).
func (h *TravelPlanHandler) Delete(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Plans.Delete(ctx, uid, id); err != nil {
		return h.planError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- children -----

// itemRoutes builds the five handlers of one child collection.
type itemRoutes[T, Req, DTO any] struct {
	h     *TravelPlanHandler
	items *service.Items[T]
	build func(Req) *T
	dto   func(*T) DTO
}

func (r itemRoutes[T, Req, DTO]) list(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	planID, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	items, err := r.items.List(ctx, uid, planID)
	if err != nil {
		return r.h.planError(c, err)
	}
	return c.JSON(http.StatusOK, mapSlice(items, r.dto))
}

func (r itemRoutes[T, Req, DTO]) add(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	planID, valid := idParam(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req Req
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := r.items.Add(ctx, uid, planID, r.build(req))
	if err != nil {
		return r.h.planError(c, err)
	}
	return c.JSON(http.StatusCreated, r.dto(item))
}

func (r itemRoutes[T, Req, DTO]) get(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "itemId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := r.items.Get(ctx, uid, id)
	if err != nil {
		return r.h.planError(c, err)
	}
	return c.JSON(http.StatusOK, r.dto(item))
}

func (r itemRoutes[T, Req, DTO]) update(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "itemId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	var req Req
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	item, err := r.items.Update(ctx, uid, id, r.build(req))
	if err != nil {
		return r.h.planError(c, err)
	}
	return c.JSON(http.StatusOK, r.dto(item))
}

func (r itemRoutes[T, Req, DTO]) remove(c echo.Context) error {
	uid, found := callerID(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := idParam(c, "itemId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := r.items.Delete(ctx, uid, id); err != nil {
		return r.h.planError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ItemHandlers groups the handlers of one child collection.
type ItemHandlers struct {
	List, Add, Get, Update, Delete echo.HandlerFunc
}

func newItemHandlers[T, Req, DTO any](r itemRoutes[T, Req, DTO]) ItemHandlers {
	return ItemHandlers{List: r.list, Add: r.add, Get: r.get, Update: r.update, Delete: r.remove}
}

// Activities returns the handlers of /:id/activities and /activities/:itemId.
func (h *TravelPlanHandler) Activities() ItemHandlers {
	return newItemHandlers(itemRoutes[model.Activity, activityReq, activityDTO]{
		h: h, items: h.Plans.Activities, build: activityReq.toModel, dto: toActivityDTO,
	})
}

// Accommodations returns the handlers of the accommodation routes.
func (h *TravelPlanHandler) Accommodations() ItemHandlers {
	return newItemHandlers(itemRoutes[model.Accommodation, accommodationReq, accommodationDTO]{
		h: h, items: h.Plans.Accommodations, build: accommodationReq.toModel, dto: toAccommodationDTO,
	})
}

// Transportations returns the handlers of the transportation routes.
func (h *TravelPlanHandler) Transportations() ItemHandlers {
	return newItemHandlers(itemRoutes[model.Transportation, transportationReq, transportationDTO]{
		h: h, items: h.Plans.Transportations, build: transportationReq.toModel, dto: toTransportationDTO,
	})
}

func (h *TravelPlanHandler) planError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrValidation):
		return fail(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrPlanNotFound):
		return fail(c, http.StatusNotFound, "Travel plan not found")
	case errors.Is(err, service.ErrItemNotFound):
		return fail(c, http.StatusNotFound, "Item not found")
	case errors.Is(err, service.ErrForbidden):
		return fail(c, http.StatusForbidden, "Forbidden")
	}
	h.Log.Error("travel plan request failed", zap.String("path", c.Path()), zap.Error(err))
	return fail(c, http.StatusInternalServerError, msgInternal)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ai-travel-planner/internal/logger"
	"github.com/iliyamo/ai-travel-planner/internal/model"
	"github.com/iliyamo/ai-travel-planner/internal/queue"
	"github.com/iliyamo/ai-travel-planner/internal/repository"
)

// PlanStore persists travel plans.
type PlanStore interface {
	Create(ctx context.Context, p *model.TravelPlan) error
	GetByID(ctx context.Context, id uint64) (*model.TravelPlan, error)
	List(ctx context.Context, f repository.PlanFilter) ([]*model.TravelPlan, error)
	Update(ctx context.Context, p *model.TravelPlan) error
	Delete(ctx context.Context, id, ownerID uint64) error
}

var _ PlanStore = (*repository.TravelPlanRepo)(nil)

// ItemStore persists one kind of plan child row. Reads and writes by id
// are scoped to the owner of the parent plan.
type ItemStore[T any] interface {
	Create(ctx context.Context, item *T) error
	ListByPlan(ctx context.Context, planID uint64) ([]*T, error)
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*T, error)
	UpdateByOwner(ctx context.Context, item *T, ownerID uint64) error
	DeleteByOwner(ctx context.Context, id, ownerID uint64) error
}

var (
	_ ItemStore[model.Activity]       = (*repository.ActivityRepo)(nil)
	_ ItemStore[model.Accommodation]  = (*repository.AccommodationRepo)(nil)
	_ ItemStore[model.Transportation] = (*repository.TransportationRepo)(nil)
)

// PlanInput is the editable part of a plan.
type PlanInput struct {
	Destination       string
	Title             string
	StartDate         time.Time
	EndDate           time.Time
	Description       *string
	AIRecommendations *string
	Budget            *float64
	TravelStyle       *string
	GroupSize         *string
	IsPublic          bool
}

// GenerateInput drives recommendation generation.
type GenerateInput struct {
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	TravelStyle *string
	GroupSize   *string
	Budget      *float64
	Preferences *string
}

// PlanDetail is a plan with its child collections.
type PlanDetail struct {
	Plan            *model.TravelPlan
	Activities      []*model.Activity
	Accommodations  []*model.Accommodation
	Transportations []*model.Transportation
}

// TravelPlanService exposes owner-scoped plan CRUD. Child collections are
// reached through the Activities, Accommodations and Transportations fields.
type TravelPlanService struct {
	plans  PlanStore
	events queue.Publisher
	log    *zap.Logger
	now    func() time.Time

	Activities      *Items[model.Activity]
	Accommodations  *Items[model.Accommodation]
	Transportations *Items[model.Transportation]
}

// NewTravelPlanService wires the service. A nil events publisher disables
// domain events.
func NewTravelPlanService(plans PlanStore,
	activities ItemStore[model.Activity],
	accommodations ItemStore[model.Accommodation],
	transportations ItemStore[model.Transportation],
	events queue.Publisher, log *zap.Logger) *TravelPlanService {
	if events == nil {
		events = queue.NopPublisher{}
	}
	s := &TravelPlanService{plans: plans, events: events, log: logger.OrNop(log), now: time.Now}
	s.Activities = &Items[model.Activity]{
		plans: plans, store: activities,
		attach:   func(a *model.Activity, planID uint64) { a.TravelPlanID = planID },
		setID:    func(a *model.Activity, id uint64) { a.ID = id },
		validate: validateActivity,
	}
	s.Accommodations = &Items[model.Accommodation]{
		plans: plans, store: accommodations,
		attach:   func(a *model.Accommodation, planID uint64) { a.TravelPlanID = planID },
		setID:    func(a *model.Accommodation, id uint64) { a.ID = id },
		validate: validateAccommodation,
	}
	s.Transportations = &Items[model.Transportation]{
		plans: plans, store: transportations,
		attach:   func(t *model.Transportation, planID uint64) { t.TravelPlanID = planID },
		setID:    func(t *model.Transportation, id uint64) { t.ID = id },
		validate: validateTransportation,
	}
	return s
}

// ListMine returns the caller's plans, newest first.
func (s *TravelPlanService) ListMine(ctx context.Context, ownerID uint64) ([]*model.TravelPlan, error) {
	return s.plans.List(ctx, repository.PlanFilter{OwnerID: ownerID})
}

// ListPublic returns every plan marked public.
func (s *TravelPlanService) ListPublic(ctx context.Context) ([]*model.TravelPlan, error) {
	return s.plans.List(ctx, repository.PlanFilter{PublicOnly: true})
}

// ListByDestination matches the caller's and public plans on a destination substring.
func (s *TravelPlanService) ListByDestination(ctx context.Context, ownerID uint64, destination string) ([]*model.TravelPlan, error) {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, invalid("destination is required")
	}
	return s.plans.List(ctx, repository.PlanFilter{OwnerID: ownerID, IncludePublic: true, Destination: destination})
}

// ListByStyle matches the caller's and public plans on travel style.
func (s *TravelPlanService) ListByStyle(ctx context.Context, ownerID uint64, style string) ([]*model.TravelPlan, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		return nil, invalid("travel style is required")
	}
	return s.plans.List(ctx, repository.PlanFilter{OwnerID: ownerID, IncludePublic: true, TravelStyle: style})
}

// ListByDateRange returns the caller's plans that lie entirely inside [from, to].
func (s *TravelPlanService) ListByDateRange(ctx context.Context, ownerID uint64, from, to time.Time) ([]*model.TravelPlan, error) {
	if to.Before(from) {
		return nil, invalid("endDate must not be before startDate")
	}
	return s.plans.List(ctx, repository.PlanFilter{OwnerID: ownerID, StartFrom: &from, EndBy: &to})
}

// Get returns a plan with its children if the caller owns it or it is public.
// Plans the caller may not see are reported as not found.
func (s *TravelPlanService) Get(ctx context.Context, ownerID, id uint64) (*PlanDetail, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	if p.UserID != ownerID && !p.IsPublic {
		return nil, ErrPlanNotFound
	}

	d := &PlanDetail{Plan: p}
	if d.Activities, err = s.Activities.store.ListByPlan(ctx, id); err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	if d.Accommodations, err = s.Accommodations.store.ListByPlan(ctx, id); err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	if d.Transportations, err = s.Transportations.store.ListByPlan(ctx, id); err != nil {
		return nil, fmt.Errorf("list transportations: %w", err)
	}
	return d, nil
}

// Create stores a new plan owned by ownerID.
func (s *TravelPlanService) Create(ctx context.Context, ownerID uint64, in PlanInput) (*model.TravelPlan, error) {
	if err := validatePlan(in); err != nil {
		return nil, err
	}
	p := &model.TravelPlan{
		UserID:            ownerID,
		Destination:       strings.TrimSpace(in.Destination),
		Title:             strings.TrimSpace(in.Title),
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Description:       in.Description,
		AIRecommendations: in.AIRecommendations,
		Budget:            in.Budget,
		TravelStyle:       in.TravelStyle,
		GroupSize:         in.GroupSize,
		IsPublic:          in.IsPublic,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.plans.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}
	s.log.Info("travel plan created", zap.Uint64("user_id", ownerID), zap.Uint64("plan_id", p.ID))
	s.emit(ctx, queue.PlanCreated, p)
	return p, nil
}

// Generate creates a private plan whose recommendations are built from the
// request.
func (s *TravelPlanService) Generate(ctx context.Context, ownerID uint64, in GenerateInput) (*model.TravelPlan, error) {
	dest := strings.TrimSpace(in.Destination)
	recs := BuildRecommendations(in)
	return s.Create(ctx, ownerID, PlanInput{
		Destination:       dest,
		Title:             "AI Generated Plan for " + dest,
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		AIRecommendations: &recs,
		Budget:            in.Budget,
		TravelStyle:       in.TravelStyle,
		GroupSize:         in.GroupSize,
	})
}

// Update overwrites a plan owned by ownerID and returns the stored result.
func (s *TravelPlanService) Update(ctx context.Context, ownerID, id uint64, in PlanInput) (*model.TravelPlan, error) {
	if err := validatePlan(in); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	p := &model.TravelPlan{
		ID:                id,
		UserID:            ownerID,
		Destination:       strings.TrimSpace(in.Destination),
		Title:             strings.TrimSpace(in.Title),
		StartDate:         in.StartDate,
		EndDate:           in.EndDate,
		Description:       in.Description,
		AIRecommendations: in.AIRecommendations,
		Budget:            in.Budget,
		TravelStyle:       in.TravelStyle,
		GroupSize:         in.GroupSize,
		IsPublic:          in.IsPublic,
		UpdatedAt:         &now,
	}
	if err := s.plans.Update(ctx, p); err != nil {
		return nil, mapPlanErr(err)
	}
	stored, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, mapPlanErr(err)
	}
	return stored, nil
}

// Delete removes a plan owned by ownerID together with its children.
func (s *TravelPlanService) Delete(ctx context.Context, ownerID, id uint64) error {
	if err := s.plans.Delete(ctx, id, ownerID); err != nil {
		return mapPlanErr(err)
	}
	s.log.Info("travel plan deleted", zap.Uint64("user_id", ownerID), zap.Uint64("plan_id", id))
	s.emit(ctx, queue.PlanDeleted, &model.TravelPlan{ID: id, UserID: ownerID})
	return nil
}

func (s *TravelPlanService) emit(ctx context.Context, typ string, p *model.TravelPlan) {
	ev := queue.NewEvent(typ, p.UserID)
	ev.PlanID = p.ID
	ev.Title = p.Title
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("publish event failed", zap.String("type", typ), zap.Error(err))
	}
}

// BuildRecommendations renders the recommendation text stored on generated plans.
func BuildRecommendations(in GenerateInput) string {
	style, group := "travel", "group"
	if in.TravelStyle != nil && *in.TravelStyle != "" {
		style = *in.TravelStyle
	}
	if in.GroupSize != nil && *in.GroupSize != "" {
		group = *in.GroupSize
	}
	lines := []string{
		fmt.Sprintf("Based on your %s style and %s size, here are some recommendations for %s:",
			style, group, strings.TrimSpace(in.Destination)),
		"• Visit the main attractions during off-peak hours to avoid crowds",
		"• Consider local transportation options for authentic experience",
		"• Try local cuisine at recommended restaurants",
		"• Book accommodations in advance, especially during peak season",
	}
	if in.Budget != nil {
		lines = append(lines,
			"• With your budget of $"+strconv.FormatFloat(*in.Budget, 'f', -1, 64)+", consider these cost-saving tips:",
			"  - Use public transportation instead of taxis",
			"  - Look for free walking tours",
			"  - Book activities in advance for better rates",
		)
	}
	if in.Preferences != nil && strings.TrimSpace(*in.Preferences) != "" {
		lines = append(lines, "• Tailored to your preferences: "+strings.TrimSpace(*in.Preferences))
	}
	return strings.Join(lines, "\n")
}

// Items is the owner-scoped CRUD for one kind of plan child row.
type Items[T any] struct {
	plans    PlanStore
	store    ItemStore[T]
	attach   func(*T, uint64)
	setID    func(*T, uint64)
	validate func(*T) error
}

// List returns the children of a plan owned by ownerID.
func (s *Items[T]) List(ctx context.Context, ownerID, planID uint64) ([]*T, error) {
	if err := s.requireOwner(ctx, ownerID, planID); err != nil {
		return nil, err
	}
	return s.store.ListByPlan(ctx, planID)
}

// Add stores item under a plan owned by ownerID.
func (s *Items[T]) Add(ctx context.Context, ownerID, planID uint64, item *T) (*T, error) {
	if err := s.validate(item); err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, ownerID, planID); err != nil {
		return nil, err
	}
	s.attach(item, planID)
	if err := s.store.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// Get fetches a child whose plan belongs to ownerID.
func (s *Items[T]) Get(ctx context.Context, ownerID, id uint64) (*T, error) {
	item, err := s.store.GetByIDAndOwner(ctx, id, ownerID)
	if err != nil {
		return nil, mapItemErr(err)
	}
	return item, nil
}

// Update overwrites child id and returns the stored row.
func (s *Items[T]) Update(ctx context.Context, ownerID, id uint64, item *T) (*T, error) {
	if err := s.validate(item); err != nil {
		return nil, err
	}
	s.setID(item, id)
	if err := s.store.UpdateByOwner(ctx, item, ownerID); err != nil {
		return nil, mapItemErr(err)
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes child id.
func (s *Items[T]) Delete(ctx context.Context, ownerID, id uint64) error {
	if err := s.store.DeleteByOwner(ctx, id, ownerID); err != nil {
		return mapItemErr(err)
	}
	return nil
}

func (s *Items[T]) requireOwner(ctx context.Context, ownerID, planID uint64) error {
	p, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return mapPlanErr(err)
	}
	if p.UserID != ownerID {
		return ErrPlanNotFound
	}
	return nil
}

func mapPlanErr(err error) error {
	if errors.Is(err, repository.ErrPlanNotFound) {
		return ErrPlanNotFound
	}
	return err
}

func mapItemErr(err error) error {
	if errors.Is(err, repository.ErrItemNotFound) {
		return ErrItemNotFound
	}
	return err
}

func validatePlan(in PlanInput) error {
	switch {
	case strings.TrimSpace(in.Destination) == "":
		return invalid("destination is required")
	case strings.TrimSpace(in.Title) == "":
		return invalid("title is required")
	case len(in.Destination) > 100 || len(in.Title) > 100:
		return invalid("destination and title must be at most 100 characters")
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return invalid("startDate and endDate are required")
	case in.EndDate.Before(in.StartDate):
		return invalid("endDate must not be before startDate")
	}
	return nil
}

func validateActivity(a *model.Activity) error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name is required")
	}
	if a.DurationMinutes != nil && *a.DurationMinutes < 0 {
		return invalid("duration must not be negative")
	}
	return nil
}

func validateAccommodation(a *model.Accommodation) error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return invalid("name is required")
	case a.CheckInDate.IsZero() || a.CheckOutDate.IsZero():
		return invalid("checkInDate and checkOutDate are required")
	case a.CheckOutDate.Before(a.CheckInDate):
		return invalid("checkOutDate must not be before checkInDate")
	}
	return nil
}

func validateTransportation(t *model.Transportation) error {
	if strings.TrimSpace(t.Type) == "" {
		return invalid("type is required")
	}
	if t.DepartureTime != nil && t.ArrivalTime != nil && t.ArrivalTime.Before(*t.DepartureTime) {
		return invalid("arrivalTime must not be before departureTime")
	}
	return nil
}

package model

import "time"

// TravelPlan is a row in `travel_plans`. Every plan belongs to one user;
// its activities, accommodations and transportations are removed with it
// through ON DELETE CASCADE.
type TravelPlan struct {
	ID                uint64     // travel_plans.id
	UserID            uint64     // travel_plans.user_id
	Destination       string     // travel_plans.destination
	Title             string     // travel_plans.title
	StartDate         time.Time  // travel_plans.start_date
	EndDate           time.Time  // travel_plans.end_date
	Description       *string    // travel_plans.description
	AIRecommendations *string    // travel_plans.ai_recommendations
	Budget            *float64   // travel_plans.budget
	TravelStyle       *string    // travel_plans.travel_style
	GroupSize         *string    // travel_plans.group_size
	IsPublic          bool       // travel_plans.is_public
	CreatedAt         time.Time  // travel_plans.created_at
	UpdatedAt         *time.Time // travel_plans.updated_at
}

// Activity is a row in `activities`.
type Activity struct {
	ID              uint64     // activities.id
	TravelPlanID    uint64     // activities.travel_plan_id
	Name            string     // activities.name
	Description     *string    // activities.description
	ScheduledDate   *time.Time // activities.scheduled_date
	DurationMinutes *int       // activities.duration_minutes
	Location        *string    // activities.location
	Cost            *float64   // activities.cost
	Category        *string    // activities.category
}

// Accommodation is a row in `accommodations`.
type Accommodation struct {
	ID           uint64    // accommodations.id
	TravelPlanID uint64    // accommodations.travel_plan_id
	Name         string    // accommodations.name
	Description  *string   // accommodations.description
	Address      *string   // accommodations.address
	CheckInDate  time.Time // accommodations.check_in_date
	CheckOutDate time.Time // accommodations.check_out_date
	CostPerNight *float64  // accommodations.cost_per_night
	Type         *string   // accommodations.type
}

// Transportation is a row in `transportations`.
type Transportation struct {
	ID            uint64     // transportations.id
	TravelPlanID  uint64     // transportations.travel_plan_id
	Type          string     // transportations.type
	Provider      *string    // transportations.provider
	FromLocation  *string    // transportations.from_location
	ToLocation    *string    // transportations.to_location
	DepartureTime *time.Time // transportations.departure_time
	ArrivalTime   *time.Time // transportations.arrival_time
	Cost          *float64   // transportations.cost
	Notes         *string    // transportations.notes
}

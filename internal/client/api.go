package client

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Plan is a travel plan as the API returns it.
type Plan struct {
	ID                uint64     `json:"id"`
	Destination       string     `json:"destination"`
	Title             string     `json:"title"`
	StartDate         time.Time  `json:"startDate"`
	EndDate           time.Time  `json:"endDate"`
	Description       *string    `json:"description,omitempty"`
	AIRecommendations *string    `json:"aiRecommendations,omitempty"`
	Budget            *float64   `json:"budget,omitempty"`
	TravelStyle       *string    `json:"travelStyle,omitempty"`
	GroupSize         *string    `json:"groupSize,omitempty"`
	IsPublic          bool       `json:"isPublic"`
	CreatedAt         time.Time  `json:"createdDate"`
	UpdatedAt         *time.Time `json:"updatedDate,omitempty"`
}

type PlanInput struct {
	Destination string    `json:"destination"`
	Title       string    `json:"title"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Description *string   `json:"description,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	TravelStyle *string   `json:"travelStyle,omitempty"`
	GroupSize   *string   `json:"groupSize,omitempty"`
	IsPublic    bool      `json:"isPublic"`
}

type GenerateInput struct {
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	TravelStyle *string   `json:"travelStyle,omitempty"`
	GroupSize   *string   `json:"groupSize,omitempty"`
	Budget      *float64  `json:"budget,omitempty"`
	Preferences *string   `json:"preferences,omitempty"`
}

// Client calls the protected API through a Transport bound to its Session.
type Client struct {
	Session *Session

	baseURL string
	hc      *http.Client
}

// New builds a Client whose requests carry the session's bearer token.
// base may be nil for http.DefaultTransport.
func New(s *Session, base http.RoundTripper) *Client {
	return &Client{
		Session: s,
		baseURL: s.baseURL,
		hc:      &http.Client{Transport: NewTransport(s, base), Timeout: 30 * time.Second},
	}
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/auth/change-password", body, nil)
}

func (c *Client) ListPlans(ctx context.Context) ([]Plan, error) {
	var out []Plan
	if err := doJSON(ctx, c.hc, http.MethodGet, c.baseURL+"/api/travelplans", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePlan(ctx context.Context, in PlanInput) (*Plan, error) {
	var p Plan
	if err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/travelplans", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GeneratePlan(ctx context.Context, in GenerateInput) (*Plan, error) {
	var p Plan
	if err := doJSON(ctx, c.hc, http.MethodPost, c.baseURL+"/api/travelplans/generate", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePlan(ctx context.Context, id uint64) error {
	url := c.baseURL + "/api/travelplans/" + strconv.FormatUint(id, 10)
	return doJSON(ctx, c.hc, http.MethodDelete, url, nil, nil)
}

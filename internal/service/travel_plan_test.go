package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ai-travel-planner/internal/model"
	"github.com/iliyamo/ai-travel-planner/internal/queue"
	"github.com/iliyamo/ai-travel-planner/internal/repository"
)

type memPlans struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.TravelPlan
}

func newMemPlans() *memPlans { return &memPlans{rows: map[uint64]*model.TravelPlan{}} }

func (m *memPlans) Create(_ context.Context, p *model.TravelPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPlans) GetByID(_ context.Context, id uint64) (*model.TravelPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPlans) List(_ context.Context, f repository.PlanFilter) ([]*model.TravelPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.TravelPlan{}
	for _, p := range m.rows {
		switch {
		case f.PublicOnly:
			if !p.IsPublic {
				continue
			}
		case f.IncludePublic:
			if p.UserID != f.OwnerID && !p.IsPublic {
				continue
			}
		case f.OwnerID != 0:
			if p.UserID != f.OwnerID {
				continue
			}
		}
		if f.Destination != "" && !strings.Contains(strings.ToLower(p.Destination), strings.ToLower(f.Destination)) {
			continue
		}
		if f.TravelStyle != "" && (p.TravelStyle == nil || *p.TravelStyle != f.TravelStyle) {
			continue
		}
		if f.StartFrom != nil && p.StartDate.Before(*f.StartFrom) {
			continue
		}
		if f.EndBy != nil && p.EndDate.After(*f.EndBy) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memPlans) Update(_ context.Context, p *model.TravelPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.rows[p.ID]
	if !ok || old.UserID != p.UserID {
		return repository.ErrPlanNotFound
	}
	cp := *p
	cp.CreatedAt = old.CreatedAt
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPlans) Delete(_ context.Context, id, ownerID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok || p.UserID != ownerID {
		return repository.ErrPlanNotFound
	}
	delete(m.rows, id)
	return nil
}

// memActivities is enough of an ItemStore to exercise Items; the other
// two child kinds share the same generic code path.
type memActivities struct {
	plans  *memPlans
	nextID uint64
	rows   map[uint64]*model.Activity
}

func (m *memActivities) owner(a *model.Activity) uint64 {
	p, err := m.plans.GetByID(context.Background(), a.TravelPlanID)
	if err != nil {
		return 0
	}
	return p.UserID
}

func (m *memActivities) Create(_ context.Context, a *model.Activity) error {
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memActivities) ListByPlan(_ context.Context, planID uint64) ([]*model.Activity, error) {
	out := []*model.Activity{}
	for _, a := range m.rows {
		if a.TravelPlanID == planID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memActivities) GetByIDAndOwner(_ context.Context, id, ownerID uint64) (*model.Activity, error) {
	a, ok := m.rows[id]
	if !ok || m.owner(a) != ownerID {
		return nil, repository.ErrItemNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memActivities) UpdateByOwner(_ context.Context, a *model.Activity, ownerID uint64) error {
	old, ok := m.rows[a.ID]
	if !ok || m.owner(old) != ownerID {
		return repository.ErrItemNotFound
	}
	cp := *a
	cp.TravelPlanID = old.TravelPlanID
	m.rows[a.ID] = &cp
	return nil
}

func (m *memActivities) DeleteByOwner(_ context.Context, id, ownerID uint64) error {
	a, ok := m.rows[id]
	if !ok || m.owner(a) != ownerID {
		return repository.ErrItemNotFound
	}
	delete(m.rows, id)
	return nil
}

type emptyItems[T any] struct{}

func (emptyItems[T]) Create(context.Context, *T) error { return nil }
func (emptyItems[T]) ListByPlan(context.Context, uint64) ([]*T, error) { return []*T{}, nil }
func (emptyItems[T]) UpdateByOwner(context.Context, *T, uint64) error { return repository.ErrItemNotFound }
func (emptyItems[T]) DeleteByOwner(context.Context, uint64, uint64) error { return repository.ErrItemNotFound }
func (emptyItems[T]) GetByIDAndOwner(context.Context, uint64, uint64) (*T, error) {
	return nil, repository.ErrItemNotFound
}

func newPlanFixture() (*TravelPlanService, *memPlans, *recordingPublisher) {
	plans := newMemPlans()
	acts := &memActivities{plans: plans, rows: map[uint64]*model.Activity{}}
	events := &recordingPublisher{}
	svc := NewTravelPlanService(plans, acts, emptyItems[model.Accommodation]{}, emptyItems[model.Transportation]{}, events, nil)
	return svc, plans, events
}

func day(d int) time.Time { return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC) }

func strp(s string) *string { return &s }

func TestPlanCreateAndVisibility(t *testing.T) {
	svc, _, events := newPlanFixture()
	ctx := context.Background()

	mine, err := svc.Create(ctx, 1, PlanInput{Destination: "Lisbon", Title: "Spring", StartDate: day(1), EndDate: day(5)})
	require.NoError(t, err)
	public, err := svc.Create(ctx, 2, PlanInput{Destination: "Porto", Title: "Wine", StartDate: day(2), EndDate: day(4), IsPublic: true})
	require.NoError(t, err)
	hidden, err := svc.Create(ctx, 2, PlanInput{Destination: "Faro", Title: "Beach", StartDate: day(2), EndDate: day(4)})
	require.NoError(t, err)

	_, err = svc.Get(ctx, 1, mine.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, 1, public.ID)
	require.NoError(t, err)
	_, err = svc.Get(ctx, 1, hidden.ID)
	require.ErrorIs(t, err, ErrPlanNotFound)
	_, err = svc.Get(ctx, 1, 999)
	require.ErrorIs(t, err, ErrPlanNotFound)

	list, err := svc.ListMine(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, mine.ID, list[0].ID)

	list, err = svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, public.ID, list[0].ID)

	assert.Equal(t, []string{queue.PlanCreated, queue.PlanCreated, queue.PlanCreated}, events.types())
}

func TestPlanFilters(t *testing.T) {
	svc, _, _ := newPlanFixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, PlanInput{Destination: "Lisbon", Title: "A", StartDate: day(1), EndDate: day(5), TravelStyle: strp("budget")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, PlanInput{Destination: "lisbon coast", Title: "B", StartDate: day(3), EndDate: day(9), IsPublic: true, TravelStyle: strp("budget")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, PlanInput{Destination: "Lisbon", Title: "C", StartDate: day(3), EndDate: day(9), TravelStyle: strp("budget")})
	require.NoError(t, err)

	byDest, err := svc.ListByDestination(ctx, 1, "LISBON")
	require.NoError(t, err)
	assert.Len(t, byDest, 2)

	byStyle, err := svc.ListByStyle(ctx, 1, "budget")
	require.NoError(t, err)
	assert.Len(t, byStyle, 2)

	inRange, err := svc.ListByDateRange(ctx, 1, day(1), day(6))
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	assert.Equal(t, "A", inRange[0].Title)

	_, err = svc.ListByDateRange(ctx, 1, day(6), day(1))
	require.ErrorIs(t, err, ErrValidation)
	_, err = svc.ListByDestination(ctx, 1, " ")
	require.ErrorIs(t, err, ErrValidation)
}

func TestPlanValidation(t *testing.T) {
	svc, _, _ := newPlanFixture()
	tests := []struct {
		name string
		in   PlanInput
	}{
		{name: "missing destination", in: PlanInput{Title: "x", StartDate: day(1), EndDate: day(2)}},
		{name: "missing title", in: PlanInput{Destination: "x", StartDate: day(1), EndDate: day(2)}},
		{name: "missing dates", in: PlanInput{Destination: "x", Title: "x"}},
		{name: "end before start", in: PlanInput{Destination: "x", Title: "x", StartDate: day(3), EndDate: day(2)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), 1, tt.in)
			require.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPlanUpdateAndDeleteAreOwnerScoped(t *testing.T) {
	svc, _, events := newPlanFixture()
	ctx := context.Background()
	p, err := svc.Create(ctx, 1, PlanInput{Destination: "Rome", Title: "Old", StartDate: day(1), EndDate: day(2)})
	require.NoError(t, err)

	_, err = svc.Update(ctx, 2, p.ID, PlanInput{Destination: "Rome", Title: "Stolen", StartDate: day(1), EndDate: day(2)})
	require.ErrorIs(t, err, ErrPlanNotFound)

	updated, err := svc.Update(ctx, 1, p.ID, PlanInput{Destination: "Rome", Title: "New", StartDate: day(1), EndDate: day(3)})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.NotNil(t, updated.UpdatedAt)

	require.ErrorIs(t, svc.Delete(ctx, 2, p.ID), ErrPlanNotFound)
	require.NoError(t, svc.Delete(ctx, 1, p.ID))
	require.ErrorIs(t, svc.Delete(ctx, 1, p.ID), ErrPlanNotFound)
	assert.Contains(t, events.types(), queue.PlanDeleted)
}

func TestGenerate(t *testing.T) {
	svc, _, _ := newPlanFixture()
	budget := 1500.0

	p, err := svc.Generate(context.Background(), 7, GenerateInput{
		Destination: "Kyoto",
		StartDate:   day(1),
		EndDate:     day(8),
		TravelStyle: strp("cultural"),
		Budget:      &budget,
	})
	require.NoError(t, err)
	assert.Equal(t, "AI Generated Plan for Kyoto", p.Title)
	assert.False(t, p.IsPublic)
	require.NotNil(t, p.AIRecommendations)

	lines := strings.Split(*p.AIRecommendations, "\n")
	assert.Equal(t, "Based on your cultural style and group size, here are some recommendations for Kyoto:", lines[0])
	assert.Len(t, lines, 9)
	assert.Equal(t, "• With your budget of $1500, consider these cost-saving tips:", lines[5])
}

func TestBuildRecommendations_Defaults(t *testing.T) {
	text := BuildRecommendations(GenerateInput{Destination: "Oslo"})
	lines := strings.Split(text, "\n")
	assert.Equal(t, "Based on your travel style and group size, here are some recommendations for Oslo:", lines[0])
	assert.Len(t, lines, 5)
}

func TestActivities(t *testing.T) {
	svc, _, _ := newPlanFixture()
	ctx := context.Background()
	p, err := svc.Create(ctx, 1, PlanInput{Destination: "Rome", Title: "Trip", StartDate: day(1), EndDate: day(2)})
	require.NoError(t, err)

	_, err = svc.Activities.Add(ctx, 2, p.ID, &model.Activity{Name: "Colosseum"})
	require.ErrorIs(t, err, ErrPlanNotFound)
	_, err = svc.Activities.Add(ctx, 1, p.ID, &model.Activity{})
	require.ErrorIs(t, err, ErrValidation)

	a, err := svc.Activities.Add(ctx, 1, p.ID, &model.Activity{Name: "Colosseum"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, a.TravelPlanID)

	list, err := svc.Activities.List(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Activities.Get(ctx, 2, a.ID)
	require.ErrorIs(t, err, ErrItemNotFound)

	updated, err := svc.Activities.Update(ctx, 1, a.ID, &model.Activity{Name: "Forum"})
	require.NoError(t, err)
	assert.Equal(t, "Forum", updated.Name)
	assert.Equal(t, p.ID, updated.TravelPlanID)

	detail, err := svc.Get(ctx, 1, p.ID)
	require.NoError(t, err)
	assert.Len(t, detail.Activities, 1)
	assert.Empty(t, detail.Accommodations)

	require.ErrorIs(t, svc.Activities.Delete(ctx, 2, a.ID), ErrItemNotFound)
	require.NoError(t, svc.Activities.Delete(ctx, 1, a.ID))
}

func TestItemValidation(t *testing.T) {
	assert.ErrorIs(t, validateAccommodation(&model.Accommodation{Name: "Inn", CheckInDate: day(5), CheckOutDate: day(4)}), ErrValidation)
	assert.NoError(t, validateAccommodation(&model.Accommodation{Name: "Inn", CheckInDate: day(4), CheckOutDate: day(5)}))

	dep, arr := day(5), day(4)
	assert.ErrorIs(t, validateTransportation(&model.Transportation{Type: "train", DepartureTime: &dep, ArrivalTime: &arr}), ErrValidation)
	assert.ErrorIs(t, validateTransportation(&model.Transportation{}), ErrValidation)

	neg := -5
	assert.ErrorIs(t, validateActivity(&model.Activity{Name: "x", DurationMinutes: &neg}), ErrValidation)
}

package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

var planCols = []string{"id", "user_id", "destination", "title", "start_date", "end_date", "description",
	"ai_recommendations", "budget", "travel_style", "group_size", "is_public", "created_at", "updated_at"}

func TestTravelPlanRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTravelPlanRepo(db)

	mock.ExpectExec("INSERT INTO travel_plans").
		WillReturnResult(sqlmock.NewResult(11, 1))

	p := &model.TravelPlan{UserID: 1, Destination: "Lisbon", Title: "Spring", StartDate: time.Now(), EndDate: time.Now()}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, uint64(11), p.ID)
}

func TestTravelPlanRepo_GetByID(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTravelPlanRepo(db)
	now := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM travel_plans WHERE id = \\?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(planCols).AddRow(
			2, 1, "Lisbon", "Spring", now, now.Add(72*time.Hour), nil,
			"see the tiles", "1500.50", "relaxed", nil, true, now, nil))

	p, err := repo.GetByID(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", p.Destination)
	require.NotNil(t, p.Budget)
	assert.InDelta(t, 1500.50, *p.Budget, 0.001)
	require.NotNil(t, p.AIRecommendations)
	assert.True(t, p.IsPublic)
	assert.Nil(t, p.GroupSize)

	mock.ExpectQuery("SELECT (.+) FROM travel_plans WHERE id = \\?").
		WithArgs(uint64(3)).
		WillReturnError(sql.ErrNoRows)
	_, err = repo.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, ErrPlanNotFound)
}

func TestTravelPlanRepo_List_Filters(t *testing.T) {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 5, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		filter PlanFilter
		query  string
		args   []driver.Value
	}{
		{
			name:   "owner only",
			filter: PlanFilter{OwnerID: 4},
			query:  "WHERE user_id = \\? ORDER BY",
			args:   []driver.Value{uint64(4)},
		},
		{
			name:   "public only",
			filter: PlanFilter{OwnerID: 4, PublicOnly: true},
			query:  "WHERE is_public = TRUE ORDER BY",
		},
		{
			name:   "destination visible to owner",
			filter: PlanFilter{OwnerID: 4, IncludePublic: true, Destination: "ParIs"},
			query:  "WHERE \\(user_id = \\? OR is_public = TRUE\\) AND LOWER\\(destination\\) LIKE \\?",
			args:   []driver.Value{uint64(4), "%paris%"},
		},
		{
			name:   "date range",
			filter: PlanFilter{OwnerID: 4, StartFrom: &start, EndBy: &end},
			query:  "WHERE user_id = \\? AND start_date >= \\? AND end_date <= \\?",
			args:   []driver.Value{uint64(4), start, end},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMock(t)
			repo := NewTravelPlanRepo(db)

			exp := mock.ExpectQuery(tt.query)
			if len(tt.args) > 0 {
				exp = exp.WithArgs(tt.args...)
			}
			exp.WillReturnRows(sqlmock.NewRows(planCols))

			out, err := repo.List(context.Background(), tt.filter)
			require.NoError(t, err)
			assert.Empty(t, out)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTravelPlanRepo_UpdateAndDelete_Ownership(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTravelPlanRepo(db)

	mock.ExpectExec("UPDATE travel_plans SET (.+) WHERE id=\\? AND user_id=\\?").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &model.TravelPlan{ID: 1, UserID: 99})
	assert.ErrorIs(t, err, ErrPlanNotFound)

	mock.ExpectExec("DELETE FROM travel_plans WHERE id=\\? AND user_id=\\?").
		WithArgs(uint64(1), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), 1, 4))
}

func TestActivityRepo_OwnerScoped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivityRepo(db)

	mock.ExpectQuery("FROM activities a JOIN travel_plans p (.+) WHERE a.id = \\? AND p.user_id = \\?").
		WithArgs(uint64(5), uint64(4)).
		WillReturnError(sql.ErrNoRows)
	_, err := repo.GetByIDAndOwner(context.Background(), 5, 4)
	assert.ErrorIs(t, err, ErrItemNotFound)

	mock.ExpectExec("DELETE a FROM activities a JOIN travel_plans p").
		WithArgs(uint64(5), uint64(4)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteByOwner(context.Background(), 5, 4))
}

func TestActivityRepo_ListByPlan(t *testing.T) {
	db, mock := newMock(t)
	repo := NewActivityRepo(db)
	when := time.Now().UTC()

	mock.ExpectQuery("FROM activities a WHERE a.travel_plan_id = \\?").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "travel_plan_id", "name", "description", "scheduled_date",
			"duration_minutes", "location", "cost", "category"}).
			AddRow(1, 2, "Tram 28", nil, when, 90, "Alfama", "3.00", "sightseeing"))

	out, err := repo.ListByPlan(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].DurationMinutes)
	assert.Equal(t, 90, *out[0].DurationMinutes)
}

func TestAccommodationRepo_UpdateByOwner(t *testing.T) {
	db, mock := newMock(t)
	repo := NewAccommodationRepo(db)

	mock.ExpectExec("UPDATE accommodations a JOIN travel_plans p").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateByOwner(context.Background(), &model.Accommodation{ID: 3}, 4)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestTransportationRepo_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTransportationRepo(db)

	mock.ExpectExec("INSERT INTO transportations").
		WillReturnResult(sqlmock.NewResult(8, 1))
	tr := &model.Transportation{TravelPlanID: 2, Type: "train"}
	require.NoError(t, repo.Create(context.Background(), tr))
	assert.Equal(t, uint64(8), tr.ID)
}

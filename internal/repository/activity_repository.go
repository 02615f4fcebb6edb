package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// ActivityRepo encapsulates queries on `activities`. Lookups by item id
// join the parent plan so a caller only ever sees items of plans they own.
type ActivityRepo struct {
	db *sql.DB
}

func NewActivityRepo(db *sql.DB) *ActivityRepo {
	return &ActivityRepo{db: db}
}

const activityColumns = `a.id, a.travel_plan_id, a.name, a.description, a.scheduled_date,
	a.duration_minutes, a.location, a.cost, a.category`

func scanActivity(row rowScanner) (*model.Activity, error) {
	var a model.Activity
	if err := row.Scan(&a.ID, &a.TravelPlanID, &a.Name, &a.Description, &a.ScheduledDate,
		&a.DurationMinutes, &a.Location, &a.Cost, &a.Category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Create inserts a under a.TravelPlanID. Plan ownership is checked by the caller.
func (r *ActivityRepo) Create(ctx context.Context, a *model.Activity) error {
	const q = `INSERT INTO activities
		(travel_plan_id, name, description, scheduled_date, duration_minutes, location, cost, category)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, a.TravelPlanID, a.Name, a.Description, a.ScheduledDate,
		a.DurationMinutes, a.Location, a.Cost, a.Category)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// ListByPlan returns a plan's activities in schedule order.
func (r *ActivityRepo) ListByPlan(ctx context.Context, planID uint64) ([]*model.Activity, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+activityColumns+
		" FROM activities a WHERE a.travel_plan_id = ? ORDER BY a.scheduled_date, a.id", planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByIDAndOwner fetches an activity whose plan belongs to ownerID.
func (r *ActivityRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Activity, error) {
	return scanActivity(r.db.QueryRowContext(ctx, "SELECT "+activityColumns+
		` FROM activities a JOIN travel_plans p ON p.id = a.travel_plan_id
		WHERE a.id = ? AND p.user_id = ?`, id, ownerID))
}

// UpdateByOwner overwrites an activity whose plan belongs to ownerID.
func (r *ActivityRepo) UpdateByOwner(ctx context.Context, a *model.Activity, ownerID uint64) error {
	const q = `UPDATE activities a JOIN travel_plans p ON p.id = a.travel_plan_id
		SET a.name=?, a.description=?, a.scheduled_date=?, a.duration_minutes=?, a.location=?, a.cost=?, a.category=?
		WHERE a.id=? AND p.user_id=?`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Description, a.ScheduledDate, a.DurationMinutes,
		a.Location, a.Cost, a.Category, a.ID, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

// DeleteByOwner removes an activity whose plan belongs to ownerID.
func (r *ActivityRepo) DeleteByOwner(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE a FROM activities a JOIN travel_plans p ON p.id = a.travel_plan_id
		WHERE a.id=? AND p.user_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

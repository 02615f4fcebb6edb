package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// AccommodationRepo encapsulates queries on `accommodations`.
type AccommodationRepo struct {
	db *sql.DB
}

func NewAccommodationRepo(db *sql.DB) *AccommodationRepo {
	return &AccommodationRepo{db: db}
}

const accommodationColumns = `a.id, a.travel_plan_id, a.name, a.description, a.address,
	a.check_in_date, a.check_out_date, a.cost_per_night, a.type`

func scanAccommodation(row rowScanner) (*model.Accommodation, error) {
	var a model.Accommodation
	if err := row.Scan(&a.ID, &a.TravelPlanID, &a.Name, &a.Description, &a.Address,
		&a.CheckInDate, &a.CheckOutDate, &a.CostPerNight, &a.Type); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccommodationRepo) Create(ctx context.Context, a *model.Accommodation) error {
	const q = `INSERT INTO accommodations
		(travel_plan_id, name, description, address, check_in_date, check_out_date, cost_per_night, type)
		VALUES (?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, a.TravelPlanID, a.Name, a.Description, a.Address,
		a.CheckInDate, a.CheckOutDate, a.CostPerNight, a.Type)
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

// ListByPlan returns a plan's stays ordered by check-in.
func (r *AccommodationRepo) ListByPlan(ctx context.Context, planID uint64) ([]*model.Accommodation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+accommodationColumns+
		" FROM accommodations a WHERE a.travel_plan_id = ? ORDER BY a.check_in_date, a.id", planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Accommodation{}
	for rows.Next() {
		a, err := scanAccommodation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AccommodationRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Accommodation, error) {
	return scanAccommodation(r.db.QueryRowContext(ctx, "SELECT "+accommodationColumns+
		` FROM accommodations a JOIN travel_plans p ON p.id = a.travel_plan_id
		WHERE a.id = ? AND p.user_id = ?`, id, ownerID))
}

func (r *AccommodationRepo) UpdateByOwner(ctx context.Context, a *model.Accommodation, ownerID uint64) error {
	const q = `UPDATE accommodations a JOIN travel_plans p ON p.id = a.travel_plan_id
		SET a.name=?, a.description=?, a.address=?, a.check_in_date=?, a.check_out_date=?, a.cost_per_night=?, a.type=?
		WHERE a.id=? AND p.user_id=?`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Description, a.Address, a.CheckInDate,
		a.CheckOutDate, a.CostPerNight, a.Type, a.ID, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

func (r *AccommodationRepo) DeleteByOwner(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE a FROM accommodations a JOIN travel_plans p ON p.id = a.travel_plan_id
		WHERE a.id=? AND p.user_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

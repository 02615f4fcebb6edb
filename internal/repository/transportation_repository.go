package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// TransportationRepo encapsulates queries on `transportations`.
type TransportationRepo struct {
	db *sql.DB
}

func NewTransportationRepo(db *sql.DB) *TransportationRepo {
	return &TransportationRepo{db: db}
}

const transportationColumns = `t.id, t.travel_plan_id, t.type, t.provider, t.from_location,
	t.to_location, t.departure_time, t.arrival_time, t.cost, t.notes`

func scanTransportation(row rowScanner) (*model.Transportation, error) {
	var t model.Transportation
	if err := row.Scan(&t.ID, &t.TravelPlanID, &t.Type, &t.Provider, &t.FromLocation,
		&t.ToLocation, &t.DepartureTime, &t.ArrivalTime, &t.Cost, &t.Notes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r *TransportationRepo) Create(ctx context.Context, t *model.Transportation) error {
	const q = `INSERT INTO transportations
		(travel_plan_id, type, provider, from_location, to_location, departure_time, arrival_time, cost, notes)
		VALUES (?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, t.TravelPlanID, t.Type, t.Provider, t.FromLocation,
		t.ToLocation, t.DepartureTime, t.ArrivalTime, t.Cost, t.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	return nil
}

// ListByPlan returns a plan's legs ordered by departure.
func (r *TransportationRepo) ListByPlan(ctx context.Context, planID uint64) ([]*model.Transportation, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+transportationColumns+
		" FROM transportations t WHERE t.travel_plan_id = ? ORDER BY t.departure_time, t.id", planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Transportation{}
	for rows.Next() {
		t, err := scanTransportation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransportationRepo) GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (*model.Transportation, error) {
	return scanTransportation(r.db.QueryRowContext(ctx, "SELECT "+transportationColumns+
		` FROM transportations t JOIN travel_plans p ON p.id = t.travel_plan_id
		WHERE t.id = ? AND p.user_id = ?`, id, ownerID))
}

func (r *TransportationRepo) UpdateByOwner(ctx context.Context, t *model.Transportation, ownerID uint64) error {
	const q = `UPDATE transportations t JOIN travel_plans p ON p.id = t.travel_plan_id
		SET t.type=?, t.provider=?, t.from_location=?, t.to_location=?, t.departure_time=?, t.arrival_time=?, t.cost=?, t.notes=?
		WHERE t.id=? AND p.user_id=?`
	res, err := r.db.ExecContext(ctx, q, t.Type, t.Provider, t.FromLocation, t.ToLocation,
		t.DepartureTime, t.ArrivalTime, t.Cost, t.Notes, t.ID, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

func (r *TransportationRepo) DeleteByOwner(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE t FROM transportations t JOIN travel_plans p ON p.id = t.travel_plan_id
		WHERE t.id=? AND p.user_id=?`, id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrItemNotFound)
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// PlanFilter narrows List. Zero values disable a filter.
type PlanFilter struct {
	OwnerID       uint64     // plans of this user
	IncludePublic bool       // with OwnerID: also plans anyone marked public
	PublicOnly    bool       // only is_public plans, OwnerID ignored
	Destination   string     // case-insensitive substring
	TravelStyle   string     // exact match
	StartFrom     *time.Time // start_date >= StartFrom
	EndBy         *time.Time // end_date <= EndBy
}

// TravelPlanRepo encapsulates queries on `travel_plans`.
type TravelPlanRepo struct {
	db *sql.DB
}

func NewTravelPlanRepo(db *sql.DB) *TravelPlanRepo {
	return &TravelPlanRepo{db: db}
}

const planColumns = `id, user_id, destination, title, start_date, end_date, description,
	ai_recommendations, budget, travel_style, group_size, is_public, created_at, updated_at`

func scanPlan(row rowScanner) (*model.TravelPlan, error) {
	var p model.TravelPlan
	if err := row.Scan(&p.ID, &p.UserID, &p.Destination, &p.Title, &p.StartDate, &p.EndDate,
		&p.Description, &p.AIRecommendations, &p.Budget, &p.TravelStyle, &p.GroupSize,
		&p.IsPublic, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Create inserts p and sets its ID.
func (r *TravelPlanRepo) Create(ctx context.Context, p *model.TravelPlan) error {
	const q = `INSERT INTO travel_plans
		(user_id, destination, title, start_date, end_date, description, ai_recommendations,
		 budget, travel_style, group_size, is_public, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.db.ExecContext(ctx, q, p.UserID, p.Destination, p.Title, p.StartDate, p.EndDate,
		p.Description, p.AIRecommendations, p.Budget, p.TravelStyle, p.GroupSize, p.IsPublic, p.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID fetches a plan regardless of owner. Visibility is decided by the caller.
func (r *TravelPlanRepo) GetByID(ctx context.Context, id uint64) (*model.TravelPlan, error) {
	return scanPlan(r.db.QueryRowContext(ctx,
		"SELECT "+planColumns+" FROM travel_plans WHERE id = ?", id))
}

// List returns plans matching f, newest first.
func (r *TravelPlanRepo) List(ctx context.Context, f PlanFilter) ([]*model.TravelPlan, error) {
	where := []string{}
	args := []any{}

	switch {
	case f.PublicOnly:
		where = append(where, "is_public = TRUE")
	case f.OwnerID != 0 && f.IncludePublic:
		where = append(where, "(user_id = ? OR is_public = TRUE)")
		args = append(args, f.OwnerID)
	case f.OwnerID != 0:
		where = append(where, "user_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.Destination != "" {
		where = append(where, "LOWER(destination) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Destination)+"%")
	}
	if f.TravelStyle != "" {
		where = append(where, "travel_style = ?")
		args = append(args, f.TravelStyle)
	}
	if f.StartFrom != nil {
		where = append(where, "start_date >= ?")
		args = append(args, *f.StartFrom)
	}
	if f.EndBy != nil {
		where = append(where, "end_date <= ?")
		args = append(args, *f.EndBy)
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+planColumns+" FROM travel_plans WHERE "+cond+" ORDER BY created_at DESC, id DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.TravelPlan{}
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites the editable columns of a plan owned by p.UserID.
// ErrPlanNotFound covers both "missing" and "owned by someone else".
func (r *TravelPlanRepo) Update(ctx context.Context, p *model.TravelPlan) error {
	const q = `UPDATE travel_plans SET destination=?, title=?, start_date=?, end_date=?, description=?,
		ai_recommendations=?, budget=?, travel_style=?, group_size=?, is_public=?, updated_at=?
		WHERE id=? AND user_id=?`
	res, err := r.db.ExecContext(ctx, q, p.Destination, p.Title, p.StartDate, p.EndDate, p.Description,
		p.AIRecommendations, p.Budget, p.TravelStyle, p.GroupSize, p.IsPublic, p.UpdatedAt, p.ID, p.UserID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrPlanNotFound)
}

// Delete removes a plan owned by ownerID. Child rows go with it.
func (r *TravelPlanRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM travel_plans WHERE id=? AND user_id=?", id, ownerID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrPlanNotFound)
}

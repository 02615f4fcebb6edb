package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/ai-travel-planner/internal/model"
)

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, first_name, last_name, email, password_hash, phone_number, country, city,
	date_of_birth, gender, is_email_verified, is_active, created_at, last_login_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash,
		&u.PhoneNumber, &u.Country, &u.City, &u.DateOfBirth, &u.Gender,
		&u.IsEmailVerified, &u.IsActive, &u.CreatedAt, &u.LastLoginAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts u and fills in its ID. The unique index on email is the
// enforcement point for duplicates: a 1062 becomes ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `INSERT INTO users
		(first_name, last_name, email, password_hash, phone_number, country, city,
		 date_of_birth, gender, is_email_verified, is_active, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := r.DB.ExecContext(ctx, q,
		u.FirstName, u.LastName, u.Email, u.PasswordHash, u.PhoneNumber, u.Country, u.City,
		u.DateOfBirth, u.Gender, u.IsEmailVerified, u.IsActive, u.CreatedAt)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByEmail fetches a user by exact email. No case folding is applied.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// EmailExists is a fast-path check used before Create.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM users WHERE email=?)", email).Scan(&exists)
	return exists, err
}

// Update writes the editable profile columns and updated_at.
func (r *UserRepo) Update(ctx context.Context, u *model.User) error {
	const q = `UPDATE users SET first_name=?, last_name=?, phone_number=?, country=?, city=?,
		date_of_birth=?, gender=?, updated_at=? WHERE id=?`
	res, err := r.DB.ExecContext(ctx, q,
		u.FirstName, u.LastName, u.PhoneNumber, u.Country, u.City,
		u.DateOfBirth, u.Gender, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrUserNotFound)
}

// UpdateLastLogin stamps the last successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64, at time.Time) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET last_login_at=? WHERE id=?", at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrUserNotFound)
}

// UpdatePassword replaces the stored hash and bumps updated_at.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, hash string, at time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, at, id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrUserNotFound)
}

// Delete removes the user; plans and refresh tokens cascade.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res, ErrUserNotFound)
}

// expectOne maps "no row matched" to notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

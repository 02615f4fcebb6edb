// Package repository contains the MySQL data access layer. Queries are
// plain SQL with ? placeholders; each repository wraps a *sql.DB.
//
// The sentinel values below let higher layers tell failure scenarios apart
// without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailExists is returned when the unique email index rejects an insert.
var ErrEmailExists = errors.New("email already exists")

// ErrPlanNotFound is returned when a travel plan does not exist or is not
// visible to the caller.
var ErrPlanNotFound = errors.New("travel plan not found")

// ErrItemNotFound is returned when an activity, accommodation or
// transportation entry cannot be found under a plan the caller owns.
var ErrItemNotFound = errors.New("plan item not found")

const mysqlDuplicateEntry = 1062

// isDuplicate reports whether err is MySQL's duplicate-key error.
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}

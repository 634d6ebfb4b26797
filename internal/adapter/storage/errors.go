package storage

import (
	"errors"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/rl1809/obesho/internal/core/domain"
)

const (
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
)

// classify turns driver errors into domain kinds. Lock contention and lost
// insert races become conflicts, everything else is a persistence failure.
func classify(err error) error {
	if err == nil || domain.KindOf(err) != 0 {
		return err
	}
	if isConflict(err) {
		return domain.Conflict(err)
	}
	return domain.Persistence(err)
}

func isConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDeadlock || myErr.Number == mysqlErrLockWaitTimeout
	}

	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

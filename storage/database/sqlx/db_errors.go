package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"

	"github.com/stg-academy/haksa/core"
)

// dbErr classifies driver errors on their way out of the repositories.
// A dead connection means the process cannot serve requests anymore and
// must be restarted, so it surfaces as a shutdown error.
func dbErr(err error) error {
	if err == sql.ErrConnDone || err == driver.ErrBadConn {
		return core.NewShutdownError(err.Error())
	}
	return err
}

package sqlxrepos

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/stg-academy/haksa/core"
)

func TestDBErr(t *testing.T) {
	if !core.IsShutdown(dbErr(sql.ErrConnDone)) {
		t.Error("dbErr(ErrConnDone) is not a shutdown error")
	}
	if !core.IsShutdown(dbErr(driver.ErrBadConn)) {
		t.Error("dbErr(ErrBadConn) is not a shutdown error")
	}

	plain := errors.New("syntax error")
	if got := dbErr(plain); got != plain {
		t.Errorf("dbErr() = %v, want the original error", got)
	}
	if dbErr(nil) != nil {
		t.Error("dbErr(nil) != nil")
	}
}

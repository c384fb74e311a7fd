package testdb

import (
	"github.com/veiloq/testdb/db"
)

// Error classes returned by Open, New, Close and the accessors. Test an
// error with Has:
//
//	if testdb.ErrMigrate.Has(err) { ... }
var (
	ErrConfig    = &db.ErrConfig
	ErrConnect   = &db.ErrConnect
	ErrCreate    = &db.ErrCreate
	ErrMigrate   = &db.ErrMigrate
	ErrTerminate = &db.ErrTerminate
	ErrDrop      = &db.ErrDrop
)

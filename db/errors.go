package db

import "github.com/zeebo/errs"

// Error classes for every step of the test database lifecycle. Check them
// with Has, e.g. ErrCreate.Has(err).
var (
	// ErrConfig is returned for unusable arguments, such as a server URL
	// that names a database.
	ErrConfig = errs.Class("testdb config")
	// ErrConnect is returned when a session to the server or to the test
	// database cannot be opened.
	ErrConnect = errs.Class("testdb connect")
	// ErrCreate is returned when CREATE DATABASE is rejected.
	ErrCreate = errs.Class("testdb create")
	// ErrMigrate is returned when the migration engine fails.
	ErrMigrate = errs.Class("testdb migrate")
	// ErrTerminate is returned when other sessions cannot be evicted.
	ErrTerminate = errs.Class("testdb terminate")
	// ErrDrop is returned when DROP DATABASE is rejected.
	ErrDrop = errs.Class("testdb drop")
)

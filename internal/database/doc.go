// Package database provides the optional SQL backing for the credential store.
//
// The service keeps users in process memory by default. Setting
// USER_STORE=sqlite swaps in a GORM repository over SQLite instead; the
// default DSN is a shared in-memory database, so nothing survives a restart
// unless the operator points USER_STORE_DSN at a file.
//
//	database/
//	├── database.go      # Connection setup and migrations
//	└── users/           # Store interface, in-memory store, GORM repository
//
// # Usage
//
//	db, err := database.NewDatabase(database.DefaultDSN)
//	store, err := users.NewRepository(db.DB)
package database

package database

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Connect opens the database and returns the handle. Callers own the handle
// and pass it to each component at construction; there is no package-level
// instance, so tests can run against isolated in-memory databases.
//
// TranslateError makes unique-index violations surface as
// gorm.ErrDuplicatedKey, which handlers translate to 409 responses. The
// unique indexes themselves are what enforce slug and membership uniqueness
// under concurrent inserts.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
	})
}

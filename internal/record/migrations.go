package record

import (
	"embed"
	"io/fs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func migrations(dialect string) fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations/"+dialect)
	if err != nil {
		panic("record migrations: " + err.Error())
	}
	return sub
}

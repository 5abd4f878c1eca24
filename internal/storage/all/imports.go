// Package all registers every built-in storage backend. Import it for side
// effects:
//
//	import _ "csvkml/internal/storage/all"
package all

import (
	_ "csvkml/internal/storage/mssql"
	_ "csvkml/internal/storage/mysql"
	_ "csvkml/internal/storage/postgres"
	_ "csvkml/internal/storage/sqlite"
)

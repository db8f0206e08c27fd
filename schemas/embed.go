// Package schemas embeds the MySQL migrations applied by the migrate command
// and by the server at startup.
package schemas

import "embed"

// Migrations holds golang-migrate style files named NNNNNN_name.{up,down}.sql.
//
//go:embed migrations/*.sql
var Migrations embed.FS

package db

import "github.com/jackc/pgx/v5"

// DefaultSchema is used when DB_SCHEMA is empty.
const DefaultSchema = "public"

// Table returns the quoted, schema-qualified name of table. Every query
// outside a migration goes through it so reads and writes land in the
// schema the migrator created.
func Table(schema, table string) string {
	if schema == "" {
		schema = DefaultSchema
	}
	return pgx.Identifier{schema, table}.Sanitize()
}

func quoteSchema(schema string) string {
	return pgx.Identifier{schema}.Sanitize()
}

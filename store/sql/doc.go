// Package sqlstore implements store.Store on top of Bun, backed by either
// PostgreSQL (OpenPostgres, via Bun's own pgdriver, with a jackc/pgx/v5
// pgxpool dial used only as a preflight connectivity check) or SQLite
// (OpenSQLite, via Bun's sqliteshim). The same model structs and query
// code run against both dialects; Migrate builds the schema through
// Bun's table/index reflection rather than hand-written SQL so it never
// has to duplicate dialect-specific column types.
//
// CommitStepSuccess uses db.RunInTx so the StepResult insert, Step update,
// and order mutation dispatched through the action commit or roll back
// together, the real transaction the in-memory store only approximates.
package sqlstore

package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    phase TEXT NOT NULL,
    mode TEXT NOT NULL,
    total REAL NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS participants (
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    phone TEXT NOT NULL,
    PRIMARY KEY (session_id, position),
    UNIQUE (session_id, phone),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS line_items (
    session_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    unit_price REAL NOT NULL,
    quantity INTEGER NOT NULL,
    quantity_cap INTEGER,
    PRIMARY KEY (session_id, position),
    FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS allocations (
    session_id TEXT NOT NULL,
    item_position INTEGER NOT NULL,
    phone TEXT NOT NULL,
    PRIMARY KEY (session_id, item_position),
    FOREIGN KEY (session_id, item_position) REFERENCES line_items(session_id, position) ON DELETE CASCADE,
    FOREIGN KEY (session_id, phone) REFERENCES participants(session_id, phone) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at);
CREATE INDEX IF NOT EXISTS idx_participants_session_id ON participants(session_id);
CREATE INDEX IF NOT EXISTS idx_line_items_session_id ON line_items(session_id);
CREATE INDEX IF NOT EXISTS idx_allocations_session_id ON allocations(session_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

package db

func (db *DB) initSchema() error {
	schema := `
	-- One bearer token per backend endpoint
	CREATE TABLE IF NOT EXISTS credentials (
		endpoint TEXT PRIMARY KEY,
		token TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.conn.Exec(schema)
	return err
}

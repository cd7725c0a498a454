package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Throws table - one row per released object
		`CREATE TABLE IF NOT EXISTS throws (
			id TEXT PRIMARY KEY,
			object_id TEXT NOT NULL,
			side TEXT NOT NULL CHECK(side IN ('left', 'right')),
			kind TEXT NOT NULL,
			linear_x REAL NOT NULL,
			linear_y REAL NOT NULL,
			linear_z REAL NOT NULL,
			angular_x REAL NOT NULL,
			angular_y REAL NOT NULL,
			angular_z REAL NOT NULL,
			speed REAL NOT NULL,
			angular_speed REAL NOT NULL,
			samples INTEGER NOT NULL DEFAULT 0,
			released_at DATETIME NOT NULL
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_throws_released_at ON throws(released_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

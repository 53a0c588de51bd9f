package audit

import "context"

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL,
		ended_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS node_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		node_id TEXT NOT NULL,
		parent_id TEXT,
		event_type TEXT NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		duration_ms INTEGER,
		detail TEXT,
		recorded_at DATETIME NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_node_events_run_node ON node_events(run_id, node_id);
	CREATE INDEX IF NOT EXISTS idx_node_events_type ON node_events(event_type);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type migration struct {
	version int
	sql     string
}

// migrations must stay ordered by version; applied versions are never edited.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	email_results BOOLEAN NOT NULL DEFAULT TRUE,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS food_requests (
	id              UUID PRIMARY KEY,
	requester_id    UUID NOT NULL,
	food_type       TEXT NOT NULL,
	location_city   TEXT NOT NULL,
	location_state  TEXT NOT NULL DEFAULT '',
	response_window INTEGER NOT NULL DEFAULT 60,
	status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'expired', 'closed')),
	expires_at      TIMESTAMPTZ NOT NULL,
	closed_at       TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS recommendations (
	id              UUID PRIMARY KEY,
	request_id      UUID NOT NULL REFERENCES food_requests(id) ON DELETE CASCADE,
	recommender_id  UUID NOT NULL,
	restaurant_name TEXT NOT NULL,
	place_id        TEXT,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS notifications (
	id           UUID PRIMARY KEY,
	request_id   UUID NOT NULL REFERENCES food_requests(id) ON DELETE CASCADE,
	requester_id UUID NOT NULL,
	type         TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	read_at      TIMESTAMPTZ,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (request_id, requester_id, type)
);

CREATE TABLE IF NOT EXISTS request_user_state (
	id         UUID PRIMARY KEY,
	user_id    UUID NOT NULL,
	request_id UUID NOT NULL REFERENCES food_requests(id) ON DELETE CASCADE,
	state      TEXT NOT NULL CHECK (state IN ('accepted', 'ignored')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (user_id, request_id)
);

CREATE INDEX IF NOT EXISTS idx_food_requests_requester_status ON food_requests(requester_id, status);
CREATE INDEX IF NOT EXISTS idx_food_requests_due ON food_requests(expires_at) WHERE status = 'active';
CREATE INDEX IF NOT EXISTS idx_recommendations_request ON recommendations(request_id);
CREATE INDEX IF NOT EXISTS idx_notifications_requester_unread ON notifications(requester_id) WHERE read_at IS NULL;

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE OR REPLACE FUNCTION notify_row_change() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('row_changes', json_build_object(
		'table', TG_TABLE_NAME,
		'type', TG_OP,
		'record', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE to_jsonb(NEW) END,
		'old_record', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE to_jsonb(OLD) END,
		'commit_time', NOW()
	)::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS food_requests_row_change ON food_requests;
CREATE TRIGGER food_requests_row_change
	AFTER INSERT OR UPDATE OR DELETE ON food_requests
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();

DROP TRIGGER IF EXISTS recommendations_row_change ON recommendations;
CREATE TRIGGER recommendations_row_change
	AFTER INSERT ON recommendations
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();

DROP TRIGGER IF EXISTS notifications_row_change ON notifications;
CREATE TRIGGER notifications_row_change
	AFTER INSERT ON notifications
	FOR EACH ROW EXECUTE FUNCTION notify_row_change();

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}

// Migrate applies every migration newer than the recorded schema version.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	var exists bool
	err := db.GetContext(ctx, &exists, `SELECT to_regclass('public.schema_version') IS NOT NULL`)
	if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	}

	current := 0
	if exists {
		if err := db.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_version`); err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := db.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to apply migration v%d: %w", m.version, err)
		}
	}
	return nil
}

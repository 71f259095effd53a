package changefeed

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Postgres uses LISTEN/NOTIFY. Publishing goes through the shared pool;
// each listener holds its own connection.
type Postgres struct {
	db          *sql.DB
	databaseURL string
}

func NewPostgres(db *sql.DB, databaseURL string) *Postgres {
	return &Postgres{db: db, databaseURL: databaseURL}
}

func (p *Postgres) channel(topic string) string {
	return channelName("showcase_changes_", topic)
}

func (p *Postgres) Publish(ctx context.Context, topic string) error {
	if _, err := p.db.ExecContext(ctx, `SELECT pg_notify($1, '')`, p.channel(topic)); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

func (p *Postgres) Listen(ctx context.Context, topic string) (*Listener, error) {
	conn, err := pgx.Connect(ctx, p.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{p.channel(topic)}.Sanitize()); err != nil {
		_ = conn.Close(context.Background())
		return nil, fmt.Errorf("listen changes: %w", err)
	}

	waitCtx, cancel := context.WithCancel(context.Background())
	l := newListener(cancel)

	go func() {
		defer l.finish()
		defer conn.Close(context.Background())
		for {
			if _, err := conn.WaitForNotification(waitCtx); err != nil {
				return
			}
			l.signal()
		}
	}()
	return l, nil
}

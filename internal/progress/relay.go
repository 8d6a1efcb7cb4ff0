package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ChannelName is the Postgres NOTIFY channel progress events are
// published on, scoped so other LISTEN users of the same database
// don't collide with it.
const ChannelName = "kgctl_ingestion_progress"

// Relay publishes every Broadcaster event to Postgres via lib/pq's
// Listener/NOTIFY support, so a process other than the one running the
// Orchestrator can observe progress (e.g. a separate API server backed
// by the same database). The teacher's go.mod already pulled in
// lib/pq but only ever used it as a bare sql/database driver string;
// this is the first thing in the pack to touch its LISTEN/NOTIFY API.
type Relay struct {
	dsn    string
	logger *logrus.Logger
}

// NewRelay returns a Relay that will connect to dsn when Run starts.
func NewRelay(dsn string, logger *logrus.Logger) *Relay {
	return &Relay{dsn: dsn, logger: logger}
}

// Publish sends ev as a NOTIFY payload on ChannelName via a one-shot
// database/sql connection (NOTIFY itself needs only a live connection,
// not a persistent pq.Listener — that's only required on the
// subscriber side, in Subscribe).
func (r *Relay) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode progress event: %w", err)
	}
	db, err := sql.Open("postgres", r.dsn)
	if err != nil {
		return fmt.Errorf("open relay connection: %w", err)
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, "SELECT pg_notify($1, $2)", ChannelName, string(payload))
	if err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

func (r *Relay) reportProblem(ev pq.ListenerEventType, err error) {
	if err != nil && r.logger != nil {
		r.logger.WithError(err).Warn("progress relay listener event")
	}
}

// Subscribe opens a pq.Listener on ChannelName and decodes every
// notification into an Event, forwarding to the returned channel until
// ctx is cancelled.
func (r *Relay) Subscribe(ctx context.Context) (<-chan Event, error) {
	l := pq.NewListener(r.dsn, time.Second, time.Minute, r.reportProblem)
	if err := l.Listen(ChannelName); err != nil {
		l.Close()
		return nil, fmt.Errorf("listen %s: %w", ChannelName, err)
	}

	out := make(chan Event, 32)
	go func() {
		defer l.Close()
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				if n == nil {
					continue
				}
				var ev Event
				if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
					if r.logger != nil {
						r.logger.WithError(err).Warn("decode progress notification")
					}
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

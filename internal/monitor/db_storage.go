package monitor

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sinkQueueSize = 256

// SQLiteSink persists security events to SQLite. Writes go through a
// buffered queue drained by a single writer goroutine; when the queue is
// full events are dropped rather than blocking the admission path.
type SQLiteSink struct {
	db       *sql.DB
	queue    chan SecurityEvent
	done     chan struct{}
	stopOnce sync.Once
}

// NewSQLiteSink opens (or creates) the event database and starts the writer
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	if dbPath == "" {
		dbPath = ".config/security_events.db"
	}

	// _busy_timeout=5000 - wait up to 5 seconds when database is locked
	// _txlock=immediate - acquire write lock immediately in transactions
	connStr := dbPath + "?_busy_timeout=5000&_txlock=immediate"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple write connections
	db.SetMaxOpenConns(1)

	// WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("⚠️ Failed to enable WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		log.Printf("⚠️ Failed to set busy timeout: %v", err)
	}

	s := &SQLiteSink{
		db:    db,
		queue: make(chan SecurityEvent, sinkQueueSize),
		done:  make(chan struct{}),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	go s.writeLoop()

	log.Printf("📊 Security event sink initialized: %s", dbPath)
	return s, nil
}

func (s *SQLiteSink) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS security_events (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		type TEXT NOT NULL,
		severity TEXT NOT NULL,
		client_ip TEXT NOT NULL,
		user_agent TEXT,
		endpoint TEXT,
		method TEXT,
		reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_security_events_timestamp ON security_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_security_events_type ON security_events(type);
	CREATE INDEX IF NOT EXISTS idx_security_events_client_ip ON security_events(client_ip);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Append queues an event for persistence. Never blocks; on a full queue the
// event is dropped with a warning.
func (s *SQLiteSink) Append(event SecurityEvent) {
	select {
	case s.queue <- event:
	default:
		log.Printf("⚠️ Security event sink queue full, dropping event %s", event.ID)
	}
}

func (s *SQLiteSink) writeLoop() {
	for {
		select {
		case event := <-s.queue:
			if err := s.insert(event); err != nil {
				log.Printf("⚠️ Failed to persist security event %s: %v", event.ID, err)
			}
		case <-s.done:
			// Drain what is already queued, then exit.
			for {
				select {
				case event := <-s.queue:
					if err := s.insert(event); err != nil {
						log.Printf("⚠️ Failed to persist security event %s: %v", event.ID, err)
					}
				default:
					return
				}
			}
		}
	}
}

func (s *SQLiteSink) insert(event SecurityEvent) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO security_events
		(id, timestamp, type, severity, client_ip, user_agent, endpoint, method, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Timestamp.UTC().Format(time.RFC3339Nano),
		string(event.Type),
		string(event.Severity),
		event.ClientIP,
		event.UserAgent,
		event.Endpoint,
		event.Method,
		event.Reason,
	)
	return err
}

// PruneBefore deletes persisted events older than the cutoff and returns
// the number of rows removed
func (s *SQLiteSink) PruneBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM security_events WHERE timestamp < ?`,
		cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Close stops the writer and closes the database
func (s *SQLiteSink) Close() error {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	return s.db.Close()
}

package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/xaenox/sms-sentinel/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

const maxSnippetLen = 500

// Settings keys for the dispatch policy, written by the admin surface.
const (
	settingQuietEnabled = "quiet_hours_enabled"
	settingQuietStart   = "quiet_hours_start"
	settingQuietEnd     = "quiet_hours_end"
	settingRateEnabled  = "rate_limit_enabled"
	settingRateMax      = "rate_limit_max_per_hour"
)

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}

type PostgresStorage struct {
	db *sql.DB
}

func NewPostgresStorage(config DatabaseConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.User, config.Password, config.DBName, config.SSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error connecting to the database: %v", err)
	}

	storage := &PostgresStorage{db: db}

	if err := storage.initializeSchema(); err != nil {
		return nil, fmt.Errorf("error initializing database schema: %v", err)
	}

	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %v", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %v", err)
	}

	return nil
}

func (s *PostgresStorage) HasProcessed(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM alert_history WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error checking processed message: %v", err)
	}
	return exists, nil
}

func (s *PostgresStorage) Record(ctx context.Context, rec AlertRecord) error {
	snippet := rec.Snippet
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen]
	}

	// Re-delivery of an already-recorded ID is a no-op, not an error.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_history (message_id, sender, subject, snippet, urgency, reason, sms_sent, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (message_id) DO NOTHING`,
		rec.MessageID, rec.Sender, rec.Subject, snippet, rec.Urgency, rec.Reason, rec.SMSSent, rec.Source,
	)
	if err != nil {
		return fmt.Errorf("error recording alert: %v", err)
	}
	return nil
}

func (s *PostgresStorage) VIPSenders(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT LOWER(rule) FROM vip_senders ORDER BY created_at DESC`)
}

func (s *PostgresStorage) Keywords(ctx context.Context) ([]string, error) {
	return s.queryStrings(ctx, `SELECT LOWER(keyword) FROM keyword_rules ORDER BY created_at DESC`)
}

func (s *PostgresStorage) queryStrings(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying rules: %v", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("error scanning rule: %v", err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *PostgresStorage) QuietHours(ctx context.Context) (models.QuietHours, error) {
	enabled, err := s.getSetting(ctx, settingQuietEnabled, "false")
	if err != nil {
		return models.QuietHours{}, err
	}
	start, err := s.getIntSetting(ctx, settingQuietStart, 22)
	if err != nil {
		return models.QuietHours{}, err
	}
	end, err := s.getIntSetting(ctx, settingQuietEnd, 7)
	if err != nil {
		return models.QuietHours{}, err
	}

	return models.QuietHours{
		Enabled:   enabled == "true",
		StartHour: start,
		EndHour:   end,
	}, nil
}

func (s *PostgresStorage) RateLimit(ctx context.Context) (models.RateLimit, error) {
	enabled, err := s.getSetting(ctx, settingRateEnabled, "false")
	if err != nil {
		return models.RateLimit{}, err
	}
	max, err := s.getIntSetting(ctx, settingRateMax, 10)
	if err != nil {
		return models.RateLimit{}, err
	}

	return models.RateLimit{
		Enabled:    enabled == "true",
		MaxPerHour: max,
	}, nil
}

func (s *PostgresStorage) CountSMSSentLastHour(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM alert_history
		WHERE sms_sent = TRUE AND created_at >= NOW() - INTERVAL '1 hour'`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting sent SMS: %v", err)
	}
	return count, nil
}

func (s *PostgresStorage) getSetting(ctx context.Context, key, fallback string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = $1`, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading setting %s: %v", key, err)
	}
	return value, nil
}

func (s *PostgresStorage) getIntSetting(ctx context.Context, key string, fallback int) (int, error) {
	value, err := s.getSetting(ctx, key, strconv.Itoa(fallback))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback, nil
	}
	return n, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

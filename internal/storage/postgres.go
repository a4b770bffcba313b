package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/xaenox/scribly/internal/models"
)

//go:embed migrations.sql
var migrations embed.FS

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (c DatabaseConfig) connString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresStorage(config DatabaseConfig, logger *zap.Logger) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", config.connString())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	storage := &PostgresStorage{db: db, logger: logger}

	if err := storage.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error initializing database schema: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		zap.String("host", config.Host),
		zap.String("dbname", config.DBName))
	return storage, nil
}

func (s *PostgresStorage) initializeSchema() error {
	migrationSQL, err := migrations.ReadFile("migrations.sql")
	if err != nil {
		return fmt.Errorf("error reading migrations file: %w", err)
	}

	if _, err := s.db.Exec(string(migrationSQL)); err != nil {
		return fmt.Errorf("error executing migrations: %w", err)
	}
	return nil
}

func (s *PostgresStorage) GetSession(ctx context.Context, chatID int64) (*models.Session, error) {
	query := `
		SELECT chat_id, email, token, created_at, last_used_at
		FROM sessions
		WHERE chat_id = $1`

	session := &models.Session{}
	err := s.db.QueryRowContext(ctx, query, chatID).Scan(
		&session.ChatID,
		&session.Email,
		&session.Token,
		&session.CreatedAt,
		&session.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return session, nil
}

func (s *PostgresStorage) SaveSession(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (chat_id, email, token)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE
		SET email = EXCLUDED.email, token = EXCLUDED.token, last_used_at = NOW()
		RETURNING created_at, last_used_at`

	err := s.db.QueryRowContext(ctx, query, session.ChatID, session.Email, session.Token).
		Scan(&session.CreatedAt, &session.LastUsedAt)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}
	return nil
}

func (s *PostgresStorage) TouchSession(ctx context.Context, chatID int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_used_at = NOW() WHERE chat_id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("error touching session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStorage) DeleteSession(ctx context.Context, chatID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	s.logger.Debug("Deleted session", zap.Int64("chat_id", chatID))
	return nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

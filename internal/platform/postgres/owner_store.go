package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklog/internal/domain"
	"github.com/phrazzld/tasklog/internal/platform/logger"
	"github.com/phrazzld/tasklog/internal/store"
)

// PostgresOwnerStore implements store.OwnerStore on the owners table.
type PostgresOwnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOwnerStore creates a new PostgresOwnerStore.
func NewPostgresOwnerStore(db store.DBTX, logger *slog.Logger) *PostgresOwnerStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOwnerStore{
		db:     db,
		logger: logger.With(slog.String("component", "owner_store")),
	}
}

var _ store.OwnerStore = (*PostgresOwnerStore)(nil)

// Create implements store.OwnerStore.Create.
func (s *PostgresOwnerStore) Create(ctx context.Context, owner *domain.Owner) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO owners (id, username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		owner.ID,
		owner.Username,
		owner.Email,
		owner.PasswordHash,
		owner.CreatedAt,
	)
	if err != nil {
		log.Warn("failed to create owner",
			slog.String("error", err.Error()),
			slog.String("username", owner.Username))
		return MapUniqueViolation(err, store.ErrOwnerExists)
	}

	log.Info("owner created",
		slog.String("owner_id", owner.ID.String()),
		slog.String("username", owner.Username))
	return nil
}

// GetByID implements store.OwnerStore.GetByID.
func (s *PostgresOwnerStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Owner, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM owners WHERE id = $1`
	return s.getOne(ctx, query, id)
}

// GetByUsername implements store.OwnerStore.GetByUsername.
func (s *PostgresOwnerStore) GetByUsername(ctx context.Context, username string) (*domain.Owner, error) {
	query := `SELECT id, username, email, password_hash, created_at FROM owners WHERE username = $1`
	return s.getOne(ctx, query, username)
}

func (s *PostgresOwnerStore) getOne(ctx context.Context, query string, arg any) (*domain.Owner, error) {
	var owner domain.Owner
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&owner.ID,
		&owner.Username,
		&owner.Email,
		&owner.PasswordHash,
		&owner.CreatedAt,
	)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, store.ErrOwnerNotFound
		}
		return nil, store.NewStoreError("owner", "get", "failed to query owner", MapError(err))
	}
	owner.CreatedAt = owner.CreatedAt.UTC()
	return &owner, nil
}

// WithTx implements store.OwnerStore.WithTx.
func (s *PostgresOwnerStore) WithTx(tx *sql.Tx) store.OwnerStore {
	return &PostgresOwnerStore{
		db:     tx,
		logger: s.logger,
	}
}

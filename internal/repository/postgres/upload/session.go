package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fileflow/internal/domain"
	models "fileflow/internal/domain/models/upload"
	uploadRepo "fileflow/internal/domain/repositories/upload"
	"fileflow/internal/repository/postgres"
)

const sessionColumns = `upload_id, key, owner_id, file_name, mime_type, status, location,
	created_at, updated_at, completed_at`

// PostgresSessionRepository implements the upload SessionRepository interface
type PostgresSessionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
	logger *slog.Logger
}

var _ uploadRepo.SessionRepository = (*PostgresSessionRepository)(nil)

// NewSessionRepository creates a new upload session repository
func NewSessionRepository(config *postgres.RepositoryConfig) *PostgresSessionRepository {
	return &PostgresSessionRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	err := row.Scan(
		&s.UploadID,
		&s.Key,
		&s.OwnerID,
		&s.FileName,
		&s.MimeType,
		&s.Status,
		&s.Location,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create stores a new session
func (r *PostgresSessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (upload_id, key, owner_id, file_name, mime_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.tables.UploadSessions)

	executor := postgres.GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		session.UploadID,
		session.Key,
		session.OwnerID,
		session.FileName,
		session.MimeType,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("upload %s already exists", session.UploadID),
				ResourceType: "upload",
				ResourceID:   session.UploadID,
			}
		}
		return fmt.Errorf("create upload session: %w", err)
	}
	return nil
}

// Get retrieves a session owned by ownerID
func (r *PostgresSessionRepository) Get(ctx context.Context, uploadID, ownerID string) (*models.Session, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE upload_id = $1 AND owner_id = $2
	`, sessionColumns, r.tables.UploadSessions)

	executor := postgres.GetExecutor(ctx, r.pool)
	s, err := scanSession(executor.QueryRow(ctx, query, uploadID, ownerID))
	if err != nil {
		if postgres.IsPgNoRowsError(err) {
			return nil, domain.NewNotFound("upload_not_found", "upload %s not found", uploadID)
		}
		return nil, fmt.Errorf("get upload session: %w", err)
	}
	return s, nil
}

// Transition is a compare-and-set on status. The WHERE clause makes the
// check and the write one statement.
func (r *PostgresSessionRepository) Transition(ctx context.Context, session *models.Session, from []models.Status, to models.Status) error {
	fromText := make([]string, len(from))
	for i, s := range from {
		fromText[i] = string(s)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $1, updated_at = $2, location = $3, completed_at = $4
		WHERE upload_id = $5 AND owner_id = $6 AND status = ANY($7::text[])
		RETURNING %s
	`, r.tables.UploadSessions, sessionColumns)

	executor := postgres.GetExecutor(ctx, r.pool)
	updated, err := scanSession(executor.QueryRow(ctx, query,
		to,
		session.UpdatedAt,
		session.Location,
		session.CompletedAt,
		session.UploadID,
		session.OwnerID,
		fromText,
	))
	if err != nil {
		if !postgres.IsPgNoRowsError(err) {
			return fmt.Errorf("transition upload session: %w", err)
		}
		if _, getErr := r.Get(ctx, session.UploadID, session.OwnerID); getErr != nil {
			return getErr
		}
		return domain.ErrUploadTerminal
	}

	*session = *updated
	return nil
}

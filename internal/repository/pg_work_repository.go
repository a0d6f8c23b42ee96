package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"github.com/helixir/bibliographic-ingest/internal/database"
	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// Compile-time interface verification.
var _ Repository = (*PgWorkRepository)(nil)

// PgWorkRepository is a PostgreSQL implementation of Repository.
type PgWorkRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewPgWorkRepository creates a new PostgreSQL work repository.
func NewPgWorkRepository(db DBTX, logger zerolog.Logger) *PgWorkRepository {
	return &PgWorkRepository{
		db:     db,
		logger: logger.With().Str("component", "work_repository").Logger(),
	}
}

// SearchByIdentifier returns the search document of the oldest work indexed
// under field=value, or a NotFoundError.
func (r *PgWorkRepository) SearchByIdentifier(ctx context.Context, field, value string) (*domain.SearchDocument, error) {
	normalized, err := normalizeField(field, value)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT w.id::text, w.resource_type, w.title, w.admin_set,
			COALESCE(array_agg(f.id::text ORDER BY f.created_at) FILTER (WHERE f.id IS NOT NULL), '{}') AS file_set_ids
		FROM work_identifiers i
		JOIN works w ON w.id = i.work_id
		LEFT JOIN file_sets f ON f.work_id = w.id
		WHERE i.field = $1 AND i.value = $2
		GROUP BY w.id
		ORDER BY w.created_at
		LIMIT 1`

	var doc domain.SearchDocument
	err = r.db.QueryRow(ctx, query, field, normalized).Scan(
		&doc.ID,
		&doc.Type,
		&doc.Title,
		&doc.AdminSet,
		&doc.FileSetIDs,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("work", field+":"+normalized)
		}
		return nil, fmt.Errorf("failed to search works by %s: %w", field, err)
	}
	return &doc, nil
}

// CreateWork inserts the work and its identifier index entries in one
// transaction. The work starts in the "new" workflow state.
func (r *PgWorkRepository) CreateWork(ctx context.Context, attrs *domain.WorkAttributes) (*domain.WorkHandle, error) {
	if attrs == nil {
		return nil, domain.NewValidationError("work", "attributes cannot be nil")
	}
	if attrs.Title == "" {
		return nil, domain.NewValidationError("title", "title is required")
	}
	if attrs.AdminSet == "" {
		return nil, domain.NewValidationError("admin_set", "admin set is required")
	}

	attributesJSON, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal work attributes: %w", err)
	}

	id := uuid.New()
	err = database.WithTransaction(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO works (
				id, resource_type, title, abstract, date_issued, publisher,
				attributes, admin_set, depositor, visibility, workflow_state, source_provider
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			id,
			attrs.ResourceType,
			attrs.Title,
			attrs.Abstract,
			attrs.DateIssued,
			attrs.Publisher,
			attributesJSON,
			attrs.AdminSet,
			attrs.Depositor,
			attrs.Visibility,
			WorkflowStateNew,
			attrs.SourceProvider,
		)
		if err != nil {
			return fmt.Errorf("failed to insert work: %w", err)
		}

		for _, row := range identifierRows(attrs.IDs) {
			_, err := tx.Exec(ctx, `
				INSERT INTO work_identifiers (work_id, field, value)
				VALUES ($1, $2, $3)
				ON CONFLICT DO NOTHING`,
				id, row[0], row[1],
			)
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", row[0], err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug().Str("work_id", id.String()).Str("admin_set", attrs.AdminSet).Msg("work created")

	return &domain.WorkHandle{
		ID:       id.String(),
		Title:    attrs.Title,
		AdminSet: attrs.AdminSet,
	}, nil
}

// DestroyWork deletes the work. File sets and index entries cascade; grants
// on the work and its file sets are removed explicitly.
func (r *PgWorkRepository) DestroyWork(ctx context.Context, workID string) error {
	id, err := uuid.Parse(workID)
	if err != nil {
		return domain.NewValidationError("work_id", "invalid work id")
	}

	return database.WithTransaction(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			DELETE FROM object_permissions
			WHERE object_id = $1
				OR object_id IN (SELECT id FROM file_sets WHERE work_id = $1)`,
			id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete work permissions: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM works WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete work: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.NewNotFoundError("work", workID)
		}
		return nil
	})
}

// AttachFile records the file set and copies the governing admin set's group
// grants onto it.
func (r *PgWorkRepository) AttachFile(ctx context.Context, work *domain.WorkHandle, file domain.FileSpec) (*domain.FileHandle, error) {
	if work == nil {
		return nil, domain.NewValidationError("work", "work cannot be nil")
	}
	workID, err := uuid.Parse(work.ID)
	if err != nil {
		return nil, domain.NewValidationError("work_id", "invalid work id")
	}
	if file.Path == "" || file.Name == "" {
		return nil, domain.NewValidationError("file", "path and name are required")
	}

	var pageCount *int
	if file.PageCount > 0 {
		pageCount = &file.PageCount
	}

	id := uuid.New()
	err = database.WithTransaction(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO file_sets (id, work_id, file_name, path, visibility, size_bytes, sha256, page_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, workID, file.Name, file.Path, file.Visibility, file.Size, file.SHA256, pageCount,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return domain.NewNotFoundError("work", work.ID)
			}
			return fmt.Errorf("failed to insert file set: %w", err)
		}

		if err := copyAdminSetGrants(ctx, tx, id, work.AdminSet); err != nil {
			return fmt.Errorf("failed to copy file set permissions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.FileHandle{
		ID:       id.String(),
		WorkID:   work.ID,
		FileName: file.Name,
	}, nil
}

// SyncWorkflow marks the work deposited and grants it the admin set's group
// permissions. Repeated calls leave the same state.
func (r *PgWorkRepository) SyncWorkflow(ctx context.Context, workID, adminSet string) error {
	id, err := uuid.Parse(workID)
	if err != nil {
		return domain.NewValidationError("work_id", "invalid work id")
	}

	return database.WithTransaction(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE works SET workflow_state = $2, updated_at = NOW()
			WHERE id = $1`,
			id, WorkflowStateDeposited,
		)
		if err != nil {
			return fmt.Errorf("failed to update workflow state: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.NewNotFoundError("work", workID)
		}

		if err := copyAdminSetGrants(ctx, tx, id, adminSet); err != nil {
			return fmt.Errorf("failed to copy work permissions: %w", err)
		}
		return nil
	})
}

// CountFileSets returns the number of file sets attached to the work.
func (r *PgWorkRepository) CountFileSets(ctx context.Context, workID string) (int, error) {
	id, err := uuid.Parse(workID)
	if err != nil {
		return 0, domain.NewValidationError("work_id", "invalid work id")
	}

	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM file_sets WHERE work_id = $1`, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count file sets: %w", err)
	}
	return count, nil
}

// GrantAdminSet records a group grant that SyncWorkflow and AttachFile copy
// onto objects of the admin set.
func (r *PgWorkRepository) GrantAdminSet(ctx context.Context, adminSet, agent, access string) error {
	if adminSet == "" || agent == "" {
		return domain.NewValidationError("admin_set", "admin set and agent are required")
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO admin_set_permissions (admin_set, agent, access)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		adminSet, agent, access,
	)
	if err != nil {
		return fmt.Errorf("failed to grant admin set permission: %w", err)
	}
	return nil
}

func copyAdminSetGrants(ctx context.Context, tx pgx.Tx, objectID uuid.UUID, adminSet string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO object_permissions (object_id, agent, access)
		SELECT $1, agent, access FROM admin_set_permissions WHERE admin_set = $2
		ON CONFLICT DO NOTHING`,
		objectID, adminSet,
	)
	return err
}

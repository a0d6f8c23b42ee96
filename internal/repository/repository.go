// Package repository provides the narrow contract the ingestion pipeline
// uses against the institutional repository and its search index, plus the
// PostgreSQL implementation of that contract.
//
// # Contract
//
// The pipeline only ever:
//
//   - looks up an existing work by one identifier field (SearchByIdentifier)
//   - creates a work from normalized attributes (CreateWork)
//   - destroys a work it just created when a later step fails (DestroyWork)
//   - attaches a fetched file to a work (AttachFile)
//   - moves a work into the deposited workflow state and applies the admin
//     set's group permissions (SyncWorkflow)
//
// SyncWorkflow is idempotent and safe to call repeatedly.
//
// # Errors
//
// Missing works are reported as *domain.NotFoundError; invalid arguments as
// *domain.ValidationError. Database errors are wrapped with context.
//
// # Transactions
//
// Implementations accept a DBTX so they run equally against a pool, inside
// a transaction, or on a pgxmock pool in tests:
//
//	db, _ := database.New(ctx, cfg, logger)
//	repo := repository.NewPgWorkRepository(db, logger)
package repository

import (
	"context"

	"github.com/helixir/bibliographic-ingest/internal/database"
	"github.com/helixir/bibliographic-ingest/internal/domain"
)

// DBTX is the database interface supporting both pool and transaction contexts.
type DBTX = database.DBTX

// Repository is the repository collaborator consumed by the pipeline.
type Repository interface {
	// SearchByIdentifier returns the oldest work indexed under field=value.
	SearchByIdentifier(ctx context.Context, field, value string) (*domain.SearchDocument, error)

	// CreateWork persists a new work and indexes its identifiers.
	CreateWork(ctx context.Context, attrs *domain.WorkAttributes) (*domain.WorkHandle, error)

	// DestroyWork deletes a work with its file sets, index entries and grants.
	DestroyWork(ctx context.Context, workID string) error

	// AttachFile records a file set on the work and copies the admin set's
	// group permissions onto it.
	AttachFile(ctx context.Context, work *domain.WorkHandle, file domain.FileSpec) (*domain.FileHandle, error)

	// SyncWorkflow places the work in the deposited state with the admin
	// set's group permissions.
	SyncWorkflow(ctx context.Context, workID, adminSet string) error

	// CountFileSets returns how many file sets the work already has.
	CountFileSets(ctx context.Context, workID string) (int, error)
}

// Workflow states of a repository work.
const (
	WorkflowStateNew       = "new"
	WorkflowStateDeposited = "deposited"
)

// Postgres error codes mapped to domain errors.
const (
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// identifierRows returns the (field, value) index entries of an identifier set.
func identifierRows(ids domain.CandidateIDs) [][2]string {
	n := ids.Normalize()
	rows := make([][2]string, 0, 3)
	if n.DOI != "" {
		rows = append(rows, [2]string{domain.FieldDOI, n.DOI})
	}
	if n.SecondaryID != "" {
		rows = append(rows, [2]string{domain.FieldSecondaryID, n.SecondaryID})
	}
	if n.PrimaryID != "" {
		rows = append(rows, [2]string{domain.FieldPrimaryID, n.PrimaryID})
	}
	return rows
}

// normalizeField validates an identifier field and normalizes its value the
// same way identifierRows does on write.
func normalizeField(field, value string) (string, error) {
	var normalized string
	switch field {
	case domain.FieldDOI:
		normalized = domain.NormalizeDOI(value)
	case domain.FieldSecondaryID:
		normalized = domain.NormalizePMCID(value)
	case domain.FieldPrimaryID:
		normalized = domain.CandidateIDs{PrimaryID: value}.Normalize().PrimaryID
	default:
		return "", domain.NewValidationError("field", "unknown identifier field "+field)
	}
	if normalized == "" {
		return "", domain.NewValidationError(field, "identifier value is required")
	}
	return normalized, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/contact-inbox/internal/domain"
)

// ContactFilter captures operator search parameters.
type ContactFilter struct {
	Email      *string
	Statuses   []domain.ContactStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// ContactRepository encapsulates contact-record persistence.
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
	ListWithFilter(ctx context.Context, filter ContactFilter) ([]domain.Contact, error)
	UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) error
	SetAdminReply(ctx context.Context, id, reply, operatorID string) error
	LatestRepliedByEmail(ctx context.Context, email string) (*domain.Contact, error)
	AttachUserReply(ctx context.Context, id, body string, observedUpdatedAt time.Time) error
}

type contactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository instantiates repository.
func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

const contactColumns = `id, name, email, message, status, admin_reply, replied_at, replied_by,
               user_reply, user_replied_at, created_at, updated_at`

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	const query = `
        INSERT INTO contacts (name, email, message, status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		contact.Name,
		contact.Email,
		contact.Message,
		contact.Status,
	).Scan(&contact.ID, &contact.CreatedAt, &contact.UpdatedAt)
}

func (r *contactRepository) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

// LatestRepliedByEmail returns the most recently replied-to contact record for
// the given sender. Records without an admin reply never match: correlation is
// only possible after an operator has responded at least once.
func (r *contactRepository) LatestRepliedByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	query := `SELECT ` + contactColumns + `
        FROM contacts
        WHERE email=$1 AND admin_reply IS NOT NULL
        ORDER BY replied_at DESC
        LIMIT 1`
	return r.fetchSingle(ctx, query, email)
}

func (r *contactRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Contact, error) {
	var contact domain.Contact
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Message,
		&contact.Status,
		&contact.AdminReply,
		&contact.RepliedAt,
		&contact.RepliedBy,
		&contact.UserReply,
		&contact.UserRepliedAt,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *contactRepository) UpdateStatus(ctx context.Context, id string, status domain.ContactStatus) error {
	const query = `UPDATE contacts SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *contactRepository) SetAdminReply(ctx context.Context, id, reply, operatorID string) error {
	const query = `
        UPDATE contacts
        SET admin_reply=$1, replied_at=NOW(), replied_by=$2, status=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query, reply, operatorID, domain.ContactStatusReplied, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AttachUserReply records an inbound follow-up on the matched record. The
// update is conditional on the updated_at observed during correlation so that
// concurrent deliveries from the same sender cannot silently overwrite each
// other; a conflict surfaces as pgx.ErrNoRows and the caller re-runs the lookup.
func (r *contactRepository) AttachUserReply(ctx context.Context, id, body string, observedUpdatedAt time.Time) error {
	const query = `
        UPDATE contacts
        SET user_reply=$1, user_replied_at=NOW(), status=$2, updated_at=NOW()
        WHERE id=$3 AND updated_at=$4`
	cmd, err := r.pool.Exec(ctx, query, body, domain.ContactStatusNew, id, observedUpdatedAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *contactRepository) ListWithFilter(ctx context.Context, filter ContactFilter) ([]domain.Contact, error) {
	base := `SELECT ` + contactColumns + ` FROM contacts`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Email != nil {
		args = append(args, *filter.Email)
		clauses = append(clauses, fmt.Sprintf("email=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(name) LIKE %s OR LOWER(message) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContacts(rows)
}

func scanContacts(rows pgx.Rows) ([]domain.Contact, error) {
	var result []domain.Contact
	for rows.Next() {
		var contact domain.Contact
		if err := rows.Scan(
			&contact.ID,
			&contact.Name,
			&contact.Email,
			&contact.Message,
			&contact.Status,
			&contact.AdminReply,
			&contact.RepliedAt,
			&contact.RepliedBy,
			&contact.UserReply,
			&contact.UserRepliedAt,
			&contact.CreatedAt,
			&contact.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, contact)
	}
	return result, rows.Err()
}

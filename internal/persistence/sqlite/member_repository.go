package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/room-reservation/internal/persistence"
)

// MemberRepository implements persistence.MemberRepository using SQLite
type MemberRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
}

// NewMemberRepository creates a new SQLite member repository
func NewMemberRepository(pool *ConnectionPool) *MemberRepository {
	return &MemberRepository{pool: pool, mapper: NewErrorMapper()}
}

// CreateMember inserts a member account.
func (r *MemberRepository) CreateMember(ctx context.Context, member persistence.Member) error {
	member.ID = strings.TrimSpace(member.ID)
	if member.ID == "" || member.PasswordHash == "" {
		return persistence.ErrConstraintViolation
	}
	now := time.Now().UTC()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	member.UpdatedAt = now

	query := `
		INSERT INTO members (id, display_name, role, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.pool.DB().ExecContext(ctx, query,
		member.ID,
		member.DisplayName,
		member.Role,
		member.PasswordHash,
		formatTime(member.CreatedAt),
		formatTime(member.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// GetMember retrieves a member by ID.
func (r *MemberRepository) GetMember(ctx context.Context, id string) (persistence.Member, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return persistence.Member{}, persistence.ErrNotFound
	}
	query := `
		SELECT id, display_name, role, password_hash, created_at, updated_at
		FROM members
		WHERE id = ?
	`
	return scanMember(r.pool.DB().QueryRowContext(ctx, query, id))
}

// ListMembers returns every member ordered by ID.
func (r *MemberRepository) ListMembers(ctx context.Context) ([]persistence.Member, error) {
	query := `
		SELECT id, display_name, role, password_hash, created_at, updated_at
		FROM members
		ORDER BY id ASC
	`
	rows, err := r.pool.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var members []persistence.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return members, nil
}

func scanMember(row rowScanner) (persistence.Member, error) {
	var (
		member               persistence.Member
		createdAt, updatedAt string
	)
	if err := row.Scan(&member.ID, &member.DisplayName, &member.Role, &member.PasswordHash, &createdAt, &updatedAt); err != nil {
		return persistence.Member{}, NewErrorMapper().MapError(err)
	}
	var err error
	if member.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if member.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Member{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return member, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

// MemberRepository stores member accounts together with their password hashes.
type MemberRepository interface {
	CreateMember(ctx context.Context, creds MemberCredentials) (Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
}

// PasswordHasher turns a plain password into a storable hash.
type PasswordHasher func(password string) (string, error)

// MemberService administers member accounts.
type MemberService struct {
	members MemberRepository
	hash    PasswordHasher
	now     func() time.Time
	logger  *slog.Logger
}

// NewMemberService constructs a MemberService.
func NewMemberService(members MemberRepository, hash PasswordHasher, now func() time.Time) *MemberService {
	return NewMemberServiceWithLogger(members, hash, now, nil)
}

// NewMemberServiceWithLogger constructs a MemberService with a specified logger.
func NewMemberServiceWithLogger(members MemberRepository, hash PasswordHasher, now func() time.Time, logger *slog.Logger) *MemberService {
	if hash == nil {
		hash = HashPassword
	}
	if now == nil {
		now = time.Now
	}
	return &MemberService{members: members, hash: hash, now: now, logger: defaultLogger(logger)}
}

// CreateMember registers a member account.
func (s *MemberService) CreateMember(ctx context.Context, params CreateMemberParams) (member Member, err error) {
	if s == nil {
		err = fmt.Errorf("MemberService is nil")
		return
	}
	if s.members == nil {
		err = fmt.Errorf("member repository not configured")
		return
	}

	id := strings.TrimSpace(params.ID)
	logger := serviceLogger(ctx, s.logger, "MemberService", "CreateMember", "member_id", id, "role", string(params.Role))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "member creation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "member created")
	}()

	vErr := &ValidationError{}
	if id == "" {
		vErr.add("id", "required")
	}
	name := strings.TrimSpace(params.DisplayName)
	if name == "" {
		vErr.add("display_name", "required")
	}
	if _, ok := ParseRole(string(params.Role)); !ok {
		vErr.add("role", "must be student or teacher")
	}
	if utf8.RuneCountInString(params.Password) < MinPasswordLength {
		vErr.add("password", fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	role, _ := ParseRole(string(params.Role))

	var hash string
	hash, err = s.hash(params.Password)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	member, err = s.members.CreateMember(ctx, MemberCredentials{
		Member:       Member{ID: id, DisplayName: name, Role: role, CreatedAt: now, UpdatedAt: now},
		PasswordHash: hash,
	})
	if errors.Is(err, ErrAlreadyExists) {
		vErr.add("id", "already registered")
		err = errors.Join(vErr, err)
	}
	return
}

// ListMembers returns every member account.
func (s *MemberService) ListMembers(ctx context.Context) ([]Member, error) {
	if s == nil {
		return nil, fmt.Errorf("MemberService is nil")
	}
	if s.members == nil {
		return nil, fmt.Errorf("member repository not configured")
	}
	members, err := s.members.ListMembers(ctx)
	if err != nil {
		serviceLogger(ctx, s.logger, "MemberService", "ListMembers").ErrorContext(ctx, "list members failed", "error", err, "error_kind", ErrorKind(err))
		return nil, err
	}
	return members, nil
}

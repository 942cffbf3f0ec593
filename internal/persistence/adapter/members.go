package adapter

import (
	"context"

	"github.com/example/room-reservation/internal/application"
	"github.com/example/room-reservation/internal/persistence"
)

// Members serves the member directory, credential store and member
// repository views over one persistence.MemberRepository.
type Members struct {
	repo persistence.MemberRepository
}

// NewMembers wraps repo.
func NewMembers(repo persistence.MemberRepository) *Members {
	return &Members{repo: repo}
}

// CreateMember stores the member with its password hash and returns the
// stored record.
func (a *Members) CreateMember(ctx context.Context, creds application.MemberCredentials) (application.Member, error) {
	if err := a.repo.CreateMember(ctx, toPersistenceMember(creds)); err != nil {
		return application.Member{}, mapError(err)
	}
	return a.GetMember(ctx, creds.Member.ID)
}

// GetMember looks up a member by id.
func (a *Members) GetMember(ctx context.Context, id string) (application.Member, error) {
	stored, err := a.repo.GetMember(ctx, id)
	if err != nil {
		return application.Member{}, mapError(err)
	}
	return toApplicationMember(stored), nil
}

// GetMemberCredentials returns the member together with the password hash.
func (a *Members) GetMemberCredentials(ctx context.Context, id string) (application.MemberCredentials, error) {
	stored, err := a.repo.GetMember(ctx, id)
	if err != nil {
		return application.MemberCredentials{}, mapError(err)
	}
	return application.MemberCredentials{Member: toApplicationMember(stored), PasswordHash: stored.PasswordHash}, nil
}

// ListMembers returns every member.
func (a *Members) ListMembers(ctx context.Context) ([]application.Member, error) {
	stored, err := a.repo.ListMembers(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	members := make([]application.Member, 0, len(stored))
	for _, m := range stored {
		members = append(members, toApplicationMember(m))
	}
	return members, nil
}

func toApplicationMember(model persistence.Member) application.Member {
	role, ok := application.ParseRole(model.Role)
	if !ok {
		role = application.RoleStudent
	}
	return application.Member{
		ID:          model.ID,
		DisplayName: model.DisplayName,
		Role:        role,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toPersistenceMember(creds application.MemberCredentials) persistence.Member {
	return persistence.Member{
		ID:           creds.Member.ID,
		DisplayName:  creds.Member.DisplayName,
		Role:         string(creds.Member.Role),
		PasswordHash: creds.PasswordHash,
		CreatedAt:    creds.Member.CreatedAt,
		UpdatedAt:    creds.Member.UpdatedAt,
	}
}

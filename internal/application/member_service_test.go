package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

type memberRepositoryStub struct {
	stored []MemberCredentials
	err    error
}

func (m *memberRepositoryStub) CreateMember(ctx context.Context, creds MemberCredentials) (Member, error) {
	if m.err != nil {
		return Member{}, m.err
	}
	m.stored = append(m.stored, creds)
	return creds.Member, nil
}

func (m *memberRepositoryStub) ListMembers(ctx context.Context) ([]Member, error) {
	out := make([]Member, 0, len(m.stored))
	for _, c := range m.stored {
		out = append(out, c.Member)
	}
	return out, nil
}

func TestMemberService_CreateMember(t *testing.T) {
	t.Parallel()

	hasher := func(pw string) (string, error) { return "hashed:" + pw, nil }
	now := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	t.Run("stores hashed credentials", func(t *testing.T) {
		t.Parallel()
		repo := &memberRepositoryStub{}
		svc := NewMemberService(repo, hasher, func() time.Time { return now })

		member, err := svc.CreateMember(context.Background(), CreateMemberParams{ID: " t1 ", DisplayName: "Prof. Sato", Role: Role("教員"), Password: "longenough"})
		if err != nil {
			t.Fatalf("CreateMember returned error: %v", err)
		}
		if member.ID != "t1" || member.Role != RoleTeacher || !member.CreatedAt.Equal(now) {
			t.Fatalf("unexpected member %+v", member)
		}
		if repo.stored[0].PasswordHash != "hashed:longenough" {
			t.Fatalf("expected password to be hashed, got %q", repo.stored[0].PasswordHash)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		t.Parallel()
		svc := NewMemberService(&memberRepositoryStub{}, hasher, nil)

		_, err := svc.CreateMember(context.Background(), CreateMemberParams{Role: "admin", Password: "short"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"id", "display_name", "role", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected field error for %s, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("reports duplicates", func(t *testing.T) {
		t.Parallel()
		svc := NewMemberService(&memberRepositoryStub{err: ErrAlreadyExists}, hasher, nil)

		_, err := svc.CreateMember(context.Background(), CreateMemberParams{ID: "s1", DisplayName: "Alice", Role: RoleStudent, Password: "longenough"})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["id"] == "" {
			t.Fatalf("expected id field error, got %v", err)
		}
	})
}

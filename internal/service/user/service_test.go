package user

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"

	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/corvid-labs/userd/internal/crypto"
	"github.com/corvid-labs/userd/internal/domain"
	"github.com/corvid-labs/userd/internal/repository"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo repository.UserRepository) Service {
	return New(repo, crypto.BcryptHasher{Cost: bcrypt.MinCost}, newLogger())
}

// memRepo is an in-memory UserRepository that enforces the unique email
// constraint the way the Postgres store does.
type memRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemRepo() *memRepo {
	return &memRepo{users: make(map[string]domain.User)}
}

func (m *memRepo) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *memRepo) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &user, nil
}

func (m *memRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			found := user
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memRepo) ListUsers(_ context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]domain.User, 0, len(m.users))
	for _, user := range m.users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (m *memRepo) UpdateUser(_ context.Context, id string, email *string, passwordHash []byte) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if email != nil {
		for otherID, other := range m.users {
			if otherID != id && other.Email == *email {
				return nil, repository.ErrDuplicateEmail
			}
		}
		user.Email = *email
	}
	if len(passwordHash) > 0 {
		user.PasswordHash = passwordHash
	}
	m.users[id] = user
	return &user, nil
}

func (m *memRepo) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func TestCreateAssignsIDAndHashesPassword(t *testing.T) {
	svc := newTestService(newMemRepo())

	created, err := svc.Create(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.Email != "a@x.com" {
		t.Fatalf("unexpected email: %q", created.Email)
	}
	if string(created.PasswordHash) == "p1" {
		t.Fatalf("password stored in plaintext")
	}
	hasher := crypto.BcryptHasher{}
	if err := hasher.Compare(created.PasswordHash, "p1"); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestCreateDuplicateEmailFails(t *testing.T) {
	svc := newTestService(newMemRepo())

	if _, err := svc.Create(context.Background(), "a@x.com", "p1"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), "a@x.com", "p2"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

// raceRepo simulates losing a check-then-insert race: the pre-check misses
// but the insert hits the unique constraint.
type raceRepo struct {
	*memRepo
}

func (r raceRepo) GetUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func (r raceRepo) CreateUser(context.Context, *domain.User) error {
	return repository.ErrDuplicateEmail
}

func TestCreateLostRaceStillFailsWithEmailTaken(t *testing.T) {
	svc := newTestService(raceRepo{newMemRepo()})

	if _, err := svc.Create(context.Background(), "a@x.com", "p1"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestGetUnknownID(t *testing.T) {
	svc := newTestService(newMemRepo())

	if _, err := svc.Get(context.Background(), "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateChangesOnlySuppliedFields(t *testing.T) {
	svc := newTestService(newMemRepo())

	created, err := svc.Create(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	newEmail := "b@x.com"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Email: &newEmail})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("id changed on update: %q vs %q", updated.ID, created.ID)
	}
	if updated.Email != newEmail {
		t.Fatalf("email not updated: %q", updated.Email)
	}
	if string(updated.PasswordHash) != string(created.PasswordHash) {
		t.Fatalf("password hash changed without a new password")
	}

	newPassword := "p2"
	updated, err = svc.Update(context.Background(), created.ID, UpdateInput{Password: &newPassword})
	if err != nil {
		t.Fatalf("password update failed: %v", err)
	}
	if updated.Email != newEmail {
		t.Fatalf("email changed on password update: %q", updated.Email)
	}
	if _, err := svc.Authenticate(context.Background(), newEmail, "p2"); err != nil {
		t.Fatalf("authenticate with new password failed: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), newEmail, "p1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted")
	}
}

func TestUpdateEmailCollision(t *testing.T) {
	svc := newTestService(newMemRepo())

	if _, err := svc.Create(context.Background(), "a@x.com", "p1"); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	second, err := svc.Create(context.Background(), "b@x.com", "p1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	taken := "a@x.com"
	if _, err := svc.Update(context.Background(), second.ID, UpdateInput{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateUnknownID(t *testing.T) {
	svc := newTestService(newMemRepo())

	email := "a@x.com"
	if _, err := svc.Update(context.Background(), "missing", UpdateInput{Email: &email}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestDeleteThenGet(t *testing.T) {
	svc := newTestService(newMemRepo())

	created, err := svc.Create(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound after delete, got %v", err)
	}
	if err := svc.Delete(context.Background(), created.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestAuthenticateDoesNotLeakAccountExistence(t *testing.T) {
	svc := newTestService(newMemRepo())

	created, err := svc.Create(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	authed, err := svc.Authenticate(context.Background(), "a@x.com", "p1")
	if err != nil {
		t.Fatalf("authenticate failed: %v", err)
	}
	if authed.ID != created.ID {
		t.Fatalf("unexpected user returned: %q", authed.ID)
	}

	_, wrongPass := svc.Authenticate(context.Background(), "a@x.com", "wrong")
	_, unknown := svc.Authenticate(context.Background(), "nobody@x.com", "p1")
	if !errors.Is(wrongPass, ErrInvalidCredentials) || !errors.Is(unknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v and %v", wrongPass, unknown)
	}
	if wrongPass.Error() != unknown.Error() {
		t.Fatalf("failure causes distinguishable: %q vs %q", wrongPass, unknown)
	}
}

func TestListReturnsStableSequence(t *testing.T) {
	svc := newTestService(newMemRepo())

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		if _, err := svc.Create(context.Background(), email, "p1"); err != nil {
			t.Fatalf("create %s failed: %v", email, err)
		}
	}

	first, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 users, got %d", len(first))
	}
	second, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("second list failed: %v", err)
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("list order not stable at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tripeco/identity-service/internal/core/domain"
)

type stubUserRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	nextID  int
	findErr error
	saveErr error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByEmail(ctx, email)
	if err == domain.ErrUserNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.NewUserNotFound(id)
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByRole(_ context.Context, role domain.Role) ([]*domain.User, error) {
	all, _ := r.FindAll(context.Background())
	out := make([]*domain.User, 0, len(all))
	for _, u := range all {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) FindAll(_ context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, cloneUser(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubUserRepo) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return nil, r.saveErr
	}
	copy := cloneUser(user)
	if copy.ID == "" {
		for _, u := range r.users {
			if strings.EqualFold(u.Email, copy.Email) {
				return nil, domain.NewEmailInUse(copy.Email)
			}
		}
		r.nextID++
		copy.ID = fmt.Sprintf("u%d", r.nextID)
	}
	r.users[copy.ID] = cloneUser(copy)
	return copy, nil
}

func (r *stubUserRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return domain.NewUserNotFound(id)
	}
	delete(r.users, id)
	return nil
}

type notification struct {
	user     domain.User
	password string
}

type stubNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *stubNotifier) NotifyNewUser(_ context.Context, user domain.User, password string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{user: user, password: password})
}

func (n *stubNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type stubIdentity struct {
	id  string
	err error
}

func (s stubIdentity) CurrentUserID(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.id == "" {
		return "", domain.ErrMissingIdentity
	}
	return s.id, nil
}

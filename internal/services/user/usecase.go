// Package user provisions owner accounts for the trusted CRUD collaborator.
// Sessions and login live upstream; this only creates and lists rows.
package user

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/nianevitch/uptime-checker/internal/domain/monitor"
	"github.com/nianevitch/uptime-checker/internal/domain/user"
)

const minPasswordLen = 8

type Usecase struct {
	users user.Repo
}

func New(users user.Repo) *Usecase {
	return &Usecase{users: users}
}

func (u *Usecase) Register(ctx context.Context, email, password string, isAdmin bool) (*user.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: invalid email", monitor.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("%w: password must be at least %d characters", monitor.ErrValidation, minPasswordLen)
	}

	acc := &user.User{Email: email, IsAdmin: isAdmin}
	if err := acc.SetPassword(password); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := u.users.Create(ctx, acc); err != nil {
		return nil, err
	}
	return acc, nil
}

func (u *Usecase) Get(ctx context.Context, id int64) (*user.User, error) {
	return u.users.GetByID(ctx, id)
}

func (u *Usecase) List(ctx context.Context) ([]*user.User, error) {
	return u.users.List(ctx)
}

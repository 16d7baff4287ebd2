// Package user keeps the rig's user accounts on a keyed record store.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/codewandler/rigcore-go/core/bus"
	"github.com/codewandler/rigcore-go/core/set"
)

const SetName = "users"

type User struct {
	LoginName   string `json:"loginName" yaml:"loginName"`
	Password    string `json:"password" yaml:"password"`
	IsEnabled   bool   `json:"isEnabled" yaml:"isEnabled"`
	Description string `json:"description" yaml:"description"`
}

func (u User) Key() string { return u.LoginName }

// New returns an enabled user whose Password is the bcrypt hash of password.
func New(loginName, password, description string) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	return User{
		LoginName:   loginName,
		Password:    string(hash),
		IsEnabled:   true,
		Description: description,
	}, nil
}

type (
	Added   = set.Added[string, User]
	Updated = set.Updated[string, User]
	Removed = set.Removed[string, User]
)

type (
	// AddUser is ignored if the login name exists.
	AddUser struct{ User User }
	// UpdateUser is ignored if the login name does not exist.
	UpdateUser struct{ User User }
	RemoveUser struct{ LoginName string }
)

type Options struct {
	Bus *bus.Bus
	// Persister defaults to a memory persister.
	Persister set.Persister[string, User]
	Log       *slog.Logger
	Metrics   set.Metrics
}

// Users owns the user set and its command handlers.
type Users struct {
	*set.Set[string, User]
	log *slog.Logger
}

func NewUsers(opts Options) (*Users, error) {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Bus == nil {
		opts.Bus = bus.New(bus.Options{Log: opts.Log})
	}
	log := opts.Log.With(slog.String("module", "user"))

	u := &Users{
		Set: set.New(set.Options[string, User]{
			Name:      SetName,
			KeyOf:     User.Key,
			Persister: opts.Persister,
			Publisher: opts.Bus,
			Log:       log,
			Metrics:   opts.Metrics,
		}),
		log: log,
	}

	err := errors.Join(
		bus.Accept(opts.Bus, "add user", slog.LevelInfo, u.onAdd),
		bus.Accept(opts.Bus, "update user", slog.LevelInfo, u.onUpdate),
		bus.Accept(opts.Bus, "remove user", slog.LevelInfo, u.onRemove),
	)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (u *Users) onAdd(ctx context.Context, cmd AddUser) error {
	_, err := u.Add(ctx, cmd.User)
	if errors.Is(err, set.ErrAlreadyExists) {
		u.log.Debug("user exists, ignoring add", slog.String("login_name", cmd.User.LoginName))
		return nil
	}
	return err
}

func (u *Users) onUpdate(ctx context.Context, cmd UpdateUser) error {
	_, err := u.Update(ctx, cmd.User)
	if errors.Is(err, set.ErrNotFound) {
		u.log.Debug("user missing, ignoring update", slog.String("login_name", cmd.User.LoginName))
		return nil
	}
	return err
}

func (u *Users) onRemove(ctx context.Context, cmd RemoveUser) error {
	_, err := u.Remove(ctx, cmd.LoginName)
	return err
}

// Authenticate reports whether loginName names an enabled user whose
// password hash matches password.
func (u *Users) Authenticate(ctx context.Context, loginName, password string) bool {
	usr, ok := u.TryGet(ctx, loginName)
	if !ok || !usr.IsEnabled {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(usr.Password), []byte(password)) == nil
}

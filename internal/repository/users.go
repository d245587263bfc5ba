package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"supplyline-sync/internal/auth"
	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/store"
)

// ValidationError is returned when credentials are rejected before any lookup.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Session holds the signed-in user's tokens and remembered credentials.
type Session interface {
	SaveTokens(authToken, refreshToken string, expiry *time.Time)
	SaveUserInfo(userID int64, employeeNumber string)
	UserID() (int64, bool)
	HasSession() bool
	ClearTokens()
	RememberCredential(employeeNumber, password string) error
	VerifyOffline(employeeNumber, password string) error
}

// LoginResult describes a successful sign-in.
type LoginResult struct {
	User    *model.User `json:"user"`
	Offline bool        `json:"offline"`
	Message string      `json:"message"`
}

// UserRepository serves users and the sign-in flow.
type UserRepository struct {
	store   store.Store
	remote  remote.Client
	session Session
	policy  WritePolicy
}

func NewUserRepository(s store.Store, client remote.Client, session Session, policy WritePolicy) *UserRepository {
	return &UserRepository{store: s, remote: client, session: session, policy: policy}
}

// UserStats is a snapshot of active user counts by department.
type UserStats struct {
	TotalActive int `json:"total_active"`
	Maintenance int `json:"maintenance"`
	Materials   int `json:"materials"`
	Admin       int `json:"admin"`
}

// --- authentication ---

// Login validates the credentials, then signs in with the backend. When the
// backend is unreachable it falls back to the locally stored user if the
// password matches the one that last signed in online.
func (r *UserRepository) Login(ctx context.Context, employeeNumber, password string) (*LoginResult, error) {
	if v := auth.ValidateCredentials(employeeNumber, password); !v.OK() {
		return nil, &ValidationError{Message: v.Message()}
	}

	resp, err := r.remote.Login(ctx, remote.LoginRequest{EmployeeNumber: employeeNumber, Password: password})
	if err != nil {
		remoteErr := remote.Classify(err)
		if !remoteErr.Retryable() {
			return nil, remoteErr
		}
		return r.loginOffline(ctx, employeeNumber, password, remoteErr)
	}
	if !resp.Success || resp.User == nil {
		message := resp.Message
		if message == "" {
			message = "Authentication failed"
		}
		return nil, &remote.Error{Kind: remote.KindAuthentication, Message: message}
	}

	user := resp.User
	if err := r.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to store user %s: %w", user.EmployeeNumber, err)
	}
	if resp.Token != "" {
		r.session.SaveTokens(resp.Token, resp.RefreshToken, nil)
	}
	r.session.SaveUserInfo(user.ID, user.EmployeeNumber)
	if err := r.session.RememberCredential(employeeNumber, password); err != nil {
		log.Printf("Warning: offline login will be unavailable for %s: %v", employeeNumber, err)
	}
	if err := r.store.UpdateLastLogin(ctx, user.ID, r.store.Now()); err != nil {
		log.Printf("Warning: failed to record last login for %s: %v", employeeNumber, err)
	}

	message := resp.Message
	if message == "" {
		message = "Login successful"
	}
	return &LoginResult{User: user, Message: message}, nil
}

func (r *UserRepository) loginOffline(ctx context.Context, employeeNumber, password string, cause *remote.Error) (*LoginResult, error) {
	user, err := r.store.GetUserByEmployeeNumber(ctx, employeeNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", employeeNumber, err)
	}
	if user == nil || !user.IsActive {
		return nil, cause
	}
	if err := r.session.VerifyOffline(employeeNumber, password); err != nil {
		if errors.Is(err, auth.ErrNoCredential) {
			return nil, cause
		}
		return nil, &remote.Error{Kind: remote.KindAuthentication, Message: "Invalid credentials", Err: err}
	}

	r.session.SaveUserInfo(user.ID, user.EmployeeNumber)
	log.Printf("Backend unreachable (%v); %s signed in offline", cause, employeeNumber)
	return &LoginResult{User: user, Offline: true, Message: "Offline login successful"}, nil
}

// Logout signs out with the backend when possible. The local session is
// cleared regardless.
func (r *UserRepository) Logout(ctx context.Context) {
	if err := r.remote.Logout(ctx); err != nil {
		log.Printf("Warning: backend logout failed: %v", remote.Classify(err))
	}
	r.session.ClearTokens()
}

// CurrentUser returns the signed-in user, or nil.
func (r *UserRepository) CurrentUser(ctx context.Context) (*model.User, error) {
	id, ok := r.session.UserID()
	if !ok {
		return nil, nil
	}
	return r.store.GetUser(ctx, id)
}

func (r *UserRepository) IsLoggedIn() bool {
	return r.session.HasSession()
}

// --- reads ---

func (r *UserRepository) WatchActiveUsers(ctx context.Context) <-chan []model.User {
	return store.Watch(ctx, r.store, r.store.ListActiveUsers, store.TableUsers)
}

func (r *UserRepository) WatchUsers(ctx context.Context) <-chan []model.User {
	return store.Watch(ctx, r.store, r.store.ListUsers, store.TableUsers)
}

func (r *UserRepository) WatchUsersByDepartment(ctx context.Context, department string) <-chan []model.User {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.User, error) {
		return r.store.ListUsersByDepartment(ctx, department)
	}, store.TableUsers)
}

func (r *UserRepository) ActiveUsers(ctx context.Context) ([]model.User, error) {
	return r.store.ListActiveUsers(ctx)
}

func (r *UserRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return orNotFound(r.store.GetUser(ctx, id))
}

func (r *UserRepository) GetUserByEmployeeNumber(ctx context.Context, employeeNumber string) (*model.User, error) {
	return orNotFound(r.store.GetUserByEmployeeNumber(ctx, employeeNumber))
}

// --- writes ---

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) (*model.User, Outcome) {
	return writeThrough(ctx, r.policy, "user", user, r.remote.CreateUser, r.store.UpsertUser,
		func(ctx context.Context, u *model.User) error {
			local := *u
			local.ID = 0
			local.ClientRef = newClientRef()
			if err := r.store.UpsertUser(ctx, &local); err != nil {
				return err
			}
			*u = local
			return nil
		})
}

func (r *UserRepository) UpdateUser(ctx context.Context, user *model.User) (*model.User, Outcome) {
	return writeThrough(ctx, r.policy, "user", user, r.remote.UpdateUser, r.store.UpsertUser, r.store.UpdateUser)
}

// --- sync ---

func (r *UserRepository) SyncUsers(ctx context.Context) (int, error) {
	return pull(ctx, "users", r.remote.ListUsers, r.store.CountLocalOnlyUsers, r.store.ReplaceUsers)
}

// --- stats ---

func (r *UserRepository) Stats(ctx context.Context) (*UserStats, error) {
	var stats UserStats
	var err error
	if stats.TotalActive, err = r.store.CountActiveUsers(ctx); err != nil {
		return nil, err
	}
	if stats.Maintenance, err = r.store.CountActiveUsersByDepartment(ctx, model.DepartmentMaintenance); err != nil {
		return nil, err
	}
	if stats.Materials, err = r.store.CountActiveUsersByDepartment(ctx, model.DepartmentMaterials); err != nil {
		return nil, err
	}
	if stats.Admin, err = r.store.CountActiveUsersByDepartment(ctx, model.DepartmentAdmin); err != nil {
		return nil, err
	}
	return &stats, nil
}

// HasLocalData reports whether any active user is stored locally.
func (r *UserRepository) HasLocalData(ctx context.Context) (bool, error) {
	n, err := r.store.CountActiveUsers(ctx)
	return n > 0, err
}

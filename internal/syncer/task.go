package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
)

// Type selects which collections a sync run pulls.
type Type string

const (
	TypeAll       Type = "all"
	TypeTools     Type = "tools"
	TypeChemicals Type = "chemicals"
	TypeUsers     Type = "users"
)

// ParseType accepts a sync type in any letter case.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeAll, TypeTools, TypeChemicals, TypeUsers:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSyncType, s)
	}
}

// Result is the outcome of one run of the task body.
type Result int

const (
	// ResultSuccess ends the run.
	ResultSuccess Result = iota
	// ResultRetry asks the scheduler to run again after a backoff delay.
	ResultRetry
	// ResultFailure ends the run without retrying.
	ResultFailure
)

func (r Result) String() string {
	switch r {
	case ResultSuccess:
		return "success"
	case ResultRetry:
		return "retry"
	case ResultFailure:
		return "failure"
	default:
		return "unknown"
	}
}

var (
	ErrNotAuthenticated = errors.New("sync: no authenticated user")
	ErrOffline          = errors.New("sync: no network connectivity")
	ErrUnknownSyncType  = errors.New("sync: unknown sync type")
)

// Authenticator reports whether a backend session is available.
type Authenticator interface {
	IsAuthenticated() bool
}

// Connectivity reports whether the backend is reachable right now.
type Connectivity interface {
	IsConnected() bool
}

// Battery reports whether the host is running on a critically low battery.
type Battery interface {
	IsBatteryLow() bool
}

type ToolSyncer interface {
	SyncTools(ctx context.Context) (int, error)
	SyncCheckouts(ctx context.Context) (int, error)
}

type ChemicalSyncer interface {
	SyncChemicals(ctx context.Context) (int, error)
	SyncIssuances(ctx context.Context) (int, error)
}

type UserSyncer interface {
	SyncUsers(ctx context.Context) (int, error)
}

// Runner executes one sync run.
type Runner interface {
	Run(ctx context.Context, t Type) (Result, error)
}

// Task pulls collections from the backend into the local store through the
// repositories.
type Task struct {
	Tools     ToolSyncer
	Chemicals ChemicalSyncer
	Users     UserSyncer
	Auth      Authenticator
	Network   Connectivity
}

type step struct {
	entity string
	pull   func(context.Context) (int, error)
}

func (t *Task) steps(typ Type) ([]step, bool) {
	tools := []step{{"tools", t.Tools.SyncTools}, {"checkouts", t.Tools.SyncCheckouts}}
	chemicals := []step{{"chemicals", t.Chemicals.SyncChemicals}, {"issuances", t.Chemicals.SyncIssuances}}
	users := []step{{"users", t.Users.SyncUsers}}

	switch typ {
	case TypeAll:
		all := append(tools, chemicals...)
		return append(all, users...), true
	case TypeTools:
		return tools, true
	case TypeChemicals:
		return chemicals, true
	case TypeUsers:
		return users, true
	default:
		return nil, false
	}
}

// Run executes the task body. A panic anywhere in the body becomes a retry.
func (t *Task) Run(ctx context.Context, typ Type) (result Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Warning: sync %s panicked: %v", typ, r)
			result, err = ResultRetry, fmt.Errorf("sync %s panicked: %v", typ, r)
		}
	}()

	if !t.Auth.IsAuthenticated() {
		return ResultFailure, ErrNotAuthenticated
	}
	if !t.Network.IsConnected() {
		return ResultRetry, ErrOffline
	}

	steps, ok := t.steps(typ)
	if !ok {
		return ResultFailure, fmt.Errorf("%w: %q", ErrUnknownSyncType, typ)
	}

	var errs []error
	for _, s := range steps {
		if _, err := s.pull(ctx); err != nil {
			log.Printf("Warning: sync of %s failed: %v", s.entity, err)
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return ResultRetry, errors.Join(errs...)
	}
	return ResultSuccess, nil
}

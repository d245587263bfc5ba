// Package remote talks to the SupplyLine backend REST API.
package remote

import (
	"context"

	"supplyline-sync/internal/model"
)

// Client is the backend surface used by the repositories. Every failure is a
// *Error; implementations never retry.
type Client interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*model.User, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error

	ListTools(ctx context.Context) ([]model.Tool, error)
	GetTool(ctx context.Context, id int64) (*model.Tool, error)
	CreateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error)
	UpdateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error)
	DeleteTool(ctx context.Context, id int64) error
	SearchTools(ctx context.Context, query string) ([]model.Tool, error)
	ListToolsByCategory(ctx context.Context, category string) ([]model.Tool, error)
	ListToolsByStatus(ctx context.Context, status model.ToolStatus) ([]model.Tool, error)

	ListCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListCheckoutsForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error)
	ListCheckoutsForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error)
	ListOverdueCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*model.ToolCheckout, error)
	ReturnTool(ctx context.Context, req ReturnRequest) (*model.ToolCheckout, error)

	ListChemicals(ctx context.Context) ([]model.Chemical, error)
	GetChemical(ctx context.Context, id int64) (*model.Chemical, error)
	CreateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error)
	UpdateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error)
	DeleteChemical(ctx context.Context, id int64) error
	SearchChemicals(ctx context.Context, query string) ([]model.Chemical, error)
	ListChemicalsByCategory(ctx context.Context, category string) ([]model.Chemical, error)
	ListChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error)
	ListExpiringChemicals(ctx context.Context) ([]model.Chemical, error)
	ListLowStockChemicals(ctx context.Context) ([]model.Chemical, error)

	ListIssuances(ctx context.Context) ([]model.ChemicalIssuance, error)
	ListIssuancesForChemical(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error)
	ListIssuancesForUser(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error)
	CreateIssuance(ctx context.Context, req IssueRequest) (*model.ChemicalIssuance, error)

	DashboardStats(ctx context.Context) (*DashboardStats, error)
	ToolAnalytics(ctx context.Context) (*ToolAnalytics, error)
	ChemicalAnalytics(ctx context.Context) (*ChemicalAnalytics, error)
}

// TokenSource supplies the bearer token attached to each request. An empty
// token sends no Authorization header.
type TokenSource interface {
	AuthToken() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) AuthToken() string { return f() }

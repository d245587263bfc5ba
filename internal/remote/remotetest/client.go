// Package remotetest provides a configurable in-memory remote.Client.
package remotetest

import (
	"context"
	"sync"

	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
)

// ErrOffline is returned by every method whose Func field is nil.
var ErrOffline = &remote.Error{Kind: remote.KindConnectivity, Message: "No internet connection"}

// Client is a remote.Client whose behaviour is set per method through Func
// fields. Unset methods behave as if the backend were unreachable.
type Client struct {
	LoginFunc                    func(ctx context.Context, req remote.LoginRequest) (*remote.LoginResponse, error)
	LogoutFunc                   func(ctx context.Context) error
	CurrentUserFunc              func(ctx context.Context) (*model.User, error)
	ListUsersFunc                func(ctx context.Context) ([]model.User, error)
	GetUserFunc                  func(ctx context.Context, id int64) (*model.User, error)
	CreateUserFunc               func(ctx context.Context, user *model.User) (*model.User, error)
	UpdateUserFunc               func(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUserFunc               func(ctx context.Context, id int64) error
	ListToolsFunc                func(ctx context.Context) ([]model.Tool, error)
	GetToolFunc                  func(ctx context.Context, id int64) (*model.Tool, error)
	CreateToolFunc               func(ctx context.Context, tool *model.Tool) (*model.Tool, error)
	UpdateToolFunc               func(ctx context.Context, tool *model.Tool) (*model.Tool, error)
	DeleteToolFunc               func(ctx context.Context, id int64) error
	SearchToolsFunc              func(ctx context.Context, query string) ([]model.Tool, error)
	ListToolsByCategoryFunc      func(ctx context.Context, category string) ([]model.Tool, error)
	ListToolsByStatusFunc        func(ctx context.Context, status model.ToolStatus) ([]model.Tool, error)
	ListCheckoutsFunc            func(ctx context.Context) ([]model.ToolCheckout, error)
	ListActiveCheckoutsFunc      func(ctx context.Context) ([]model.ToolCheckout, error)
	ListCheckoutsForUserFunc     func(ctx context.Context, userID int64) ([]model.ToolCheckout, error)
	ListCheckoutsForToolFunc     func(ctx context.Context, toolID int64) ([]model.ToolCheckout, error)
	ListOverdueCheckoutsFunc     func(ctx context.Context) ([]model.ToolCheckout, error)
	CreateCheckoutFunc           func(ctx context.Context, req remote.CheckoutRequest) (*model.ToolCheckout, error)
	ReturnToolFunc               func(ctx context.Context, req remote.ReturnRequest) (*model.ToolCheckout, error)
	ListChemicalsFunc            func(ctx context.Context) ([]model.Chemical, error)
	GetChemicalFunc              func(ctx context.Context, id int64) (*model.Chemical, error)
	CreateChemicalFunc           func(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error)
	UpdateChemicalFunc           func(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error)
	DeleteChemicalFunc           func(ctx context.Context, id int64) error
	SearchChemicalsFunc          func(ctx context.Context, query string) ([]model.Chemical, error)
	ListChemicalsByCategoryFunc  func(ctx context.Context, category string) ([]model.Chemical, error)
	ListChemicalsByStatusFunc    func(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error)
	ListExpiringChemicalsFunc    func(ctx context.Context) ([]model.Chemical, error)
	ListLowStockChemicalsFunc    func(ctx context.Context) ([]model.Chemical, error)
	ListIssuancesFunc            func(ctx context.Context) ([]model.ChemicalIssuance, error)
	ListIssuancesForChemicalFunc func(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error)
	ListIssuancesForUserFunc     func(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error)
	CreateIssuanceFunc           func(ctx context.Context, req remote.IssueRequest) (*model.ChemicalIssuance, error)
	DashboardStatsFunc           func(ctx context.Context) (*remote.DashboardStats, error)
	ToolAnalyticsFunc            func(ctx context.Context) (*remote.ToolAnalytics, error)
	ChemicalAnalyticsFunc        func(ctx context.Context) (*remote.ChemicalAnalytics, error)

	mu    sync.Mutex
	calls map[string]int
}

var _ remote.Client = (*Client)(nil)

func (c *Client) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
}

// Calls returns how many times the named method was invoked.
func (c *Client) Calls(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

// TotalCalls returns the number of invocations across all methods.
func (c *Client) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *Client) Login(ctx context.Context, req remote.LoginRequest) (*remote.LoginResponse, error) {
	c.record("Login")
	if c.LoginFunc == nil {
		return nil, ErrOffline
	}
	return c.LoginFunc(ctx, req)
}

func (c *Client) Logout(ctx context.Context) error {
	c.record("Logout")
	if c.LogoutFunc == nil {
		return ErrOffline
	}
	return c.LogoutFunc(ctx)
}

func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	c.record("CurrentUser")
	if c.CurrentUserFunc == nil {
		return nil, ErrOffline
	}
	return c.CurrentUserFunc(ctx)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	c.record("ListUsers")
	if c.ListUsersFunc == nil {
		return nil, ErrOffline
	}
	return c.ListUsersFunc(ctx)
}

func (c *Client) GetUser(ctx context.Context, id int64) (*model.User, error) {
	c.record("GetUser")
	if c.GetUserFunc == nil {
		return nil, ErrOffline
	}
	return c.GetUserFunc(ctx, id)
}

func (c *Client) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	c.record("CreateUser")
	if c.CreateUserFunc == nil {
		return nil, ErrOffline
	}
	return c.CreateUserFunc(ctx, user)
}

func (c *Client) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	c.record("UpdateUser")
	if c.UpdateUserFunc == nil {
		return nil, ErrOffline
	}
	return c.UpdateUserFunc(ctx, user)
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	c.record("DeleteUser")
	if c.DeleteUserFunc == nil {
		return ErrOffline
	}
	return c.DeleteUserFunc(ctx, id)
}

func (c *Client) ListTools(ctx context.Context) ([]model.Tool, error) {
	c.record("ListTools")
	if c.ListToolsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListToolsFunc(ctx)
}

func (c *Client) GetTool(ctx context.Context, id int64) (*model.Tool, error) {
	c.record("GetTool")
	if c.GetToolFunc == nil {
		return nil, ErrOffline
	}
	return c.GetToolFunc(ctx, id)
}

func (c *Client) CreateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error) {
	c.record("CreateTool")
	if c.CreateToolFunc == nil {
		return nil, ErrOffline
	}
	return c.CreateToolFunc(ctx, tool)
}

func (c *Client) UpdateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error) {
	c.record("UpdateTool")
	if c.UpdateToolFunc == nil {
		return nil, ErrOffline
	}
	return c.UpdateToolFunc(ctx, tool)
}

func (c *Client) DeleteTool(ctx context.Context, id int64) error {
	c.record("DeleteTool")
	if c.DeleteToolFunc == nil {
		return ErrOffline
	}
	return c.DeleteToolFunc(ctx, id)
}

func (c *Client) SearchTools(ctx context.Context, query string) ([]model.Tool, error) {
	c.record("SearchTools")
	if c.SearchToolsFunc == nil {
		return nil, ErrOffline
	}
	return c.SearchToolsFunc(ctx, query)
}

func (c *Client) ListToolsByCategory(ctx context.Context, category string) ([]model.Tool, error) {
	c.record("ListToolsByCategory")
	if c.ListToolsByCategoryFunc == nil {
		return nil, ErrOffline
	}
	return c.ListToolsByCategoryFunc(ctx, category)
}

func (c *Client) ListToolsByStatus(ctx context.Context, status model.ToolStatus) ([]model.Tool, error) {
	c.record("ListToolsByStatus")
	if c.ListToolsByStatusFunc == nil {
		return nil, ErrOffline
	}
	return c.ListToolsByStatusFunc(ctx, status)
}

func (c *Client) ListCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	c.record("ListCheckouts")
	if c.ListCheckoutsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListCheckoutsFunc(ctx)
}

func (c *Client) ListActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	c.record("ListActiveCheckouts")
	if c.ListActiveCheckoutsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListActiveCheckoutsFunc(ctx)
}

func (c *Client) ListCheckoutsForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error) {
	c.record("ListCheckoutsForUser")
	if c.ListCheckoutsForUserFunc == nil {
		return nil, ErrOffline
	}
	return c.ListCheckoutsForUserFunc(ctx, userID)
}

func (c *Client) ListCheckoutsForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error) {
	c.record("ListCheckoutsForTool")
	if c.ListCheckoutsForToolFunc == nil {
		return nil, ErrOffline
	}
	return c.ListCheckoutsForToolFunc(ctx, toolID)
}

func (c *Client) ListOverdueCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	c.record("ListOverdueCheckouts")
	if c.ListOverdueCheckoutsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListOverdueCheckoutsFunc(ctx)
}

func (c *Client) CreateCheckout(ctx context.Context, req remote.CheckoutRequest) (*model.ToolCheckout, error) {
	c.record("CreateCheckout")
	if c.CreateCheckoutFunc == nil {
		return nil, ErrOffline
	}
	return c.CreateCheckoutFunc(ctx, req)
}

func (c *Client) ReturnTool(ctx context.Context, req remote.ReturnRequest) (*model.ToolCheckout, error) {
	c.record("ReturnTool")
	if c.ReturnToolFunc == nil {
		return nil, ErrOffline
	}
	return c.ReturnToolFunc(ctx, req)
}

func (c *Client) ListChemicals(ctx context.Context) ([]model.Chemical, error) {
	c.record("ListChemicals")
	if c.ListChemicalsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListChemicalsFunc(ctx)
}

func (c *Client) GetChemical(ctx context.Context, id int64) (*model.Chemical, error) {
	c.record("GetChemical")
	if c.GetChemicalFunc == nil {
		return nil, ErrOffline
	}
	return c.GetChemicalFunc(ctx, id)
}

func (c *Client) CreateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error) {
	c.record("CreateChemical")
	if c.CreateChemicalFunc == nil {
		return nil, ErrOffline
	}
	return c.CreateChemicalFunc(ctx, chemical)
}

func (c *Client) UpdateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error) {
	c.record("UpdateChemical")
	if c.UpdateChemicalFunc == nil {
		return nil, ErrOffline
	}
	return c.UpdateChemicalFunc(ctx, chemical)
}

func (c *Client) DeleteChemical(ctx context.Context, id int64) error {
	c.record("DeleteChemical")
	if c.DeleteChemicalFunc == nil {
		return ErrOffline
	}
	return c.DeleteChemicalFunc(ctx, id)
}

func (c *Client) SearchChemicals(ctx context.Context, query string) ([]model.Chemical, error) {
	c.record("SearchChemicals")
	if c.SearchChemicalsFunc == nil {
		return nil, ErrOffline
	}
	return c.SearchChemicalsFunc(ctx, query)
}

func (c *Client) ListChemicalsByCategory(ctx context.Context, category string) ([]model.Chemical, error) {
	c.record("ListChemicalsByCategory")
	if c.ListChemicalsByCategoryFunc == nil {
		return nil, ErrOffline
	}
	return c.ListChemicalsByCategoryFunc(ctx, category)
}

func (c *Client) ListChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error) {
	c.record("ListChemicalsByStatus")
	if c.ListChemicalsByStatusFunc == nil {
		return nil, ErrOffline
	}
	return c.ListChemicalsByStatusFunc(ctx, status)
}

func (c *Client) ListExpiringChemicals(ctx context.Context) ([]model.Chemical, error) {
	c.record("ListExpiringChemicals")
	if c.ListExpiringChemicalsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListExpiringChemicalsFunc(ctx)
}

func (c *Client) ListLowStockChemicals(ctx context.Context) ([]model.Chemical, error) {
	c.record("ListLowStockChemicals")
	if c.ListLowStockChemicalsFunc == nil {
		return nil, ErrOffline
	}
	return c.ListLowStockChemicalsFunc(ctx)
}

func (c *Client) ListIssuances(ctx context.Context) ([]model.ChemicalIssuance, error) {
	c.record("ListIssuances")
	if c.ListIssuancesFunc == nil {
		return nil, ErrOffline
	}
	return c.ListIssuancesFunc(ctx)
}

func (c *Client) ListIssuancesForChemical(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error) {
	c.record("ListIssuancesForChemical")
	if c.ListIssuancesForChemicalFunc == nil {
		return nil, ErrOffline
	}
	return c.ListIssuancesForChemicalFunc(ctx, chemicalID)
}

func (c *Client) ListIssuancesForUser(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error) {
	c.record("ListIssuancesForUser")
	if c.ListIssuancesForUserFunc == nil {
		return nil, ErrOffline
	}
	return c.ListIssuancesForUserFunc(ctx, userID)
}

func (c *Client) CreateIssuance(ctx context.Context, req remote.IssueRequest) (*model.ChemicalIssuance, error) {
	c.record("CreateIssuance")
	if c.CreateIssuanceFunc == nil {
		return nil, ErrOffline
	}
	return c.CreateIssuanceFunc(ctx, req)
}

func (c *Client) DashboardStats(ctx context.Context) (*remote.DashboardStats, error) {
	c.record("DashboardStats")
	if c.DashboardStatsFunc == nil {
		return nil, ErrOffline
	}
	return c.DashboardStatsFunc(ctx)
}

func (c *Client) ToolAnalytics(ctx context.Context) (*remote.ToolAnalytics, error) {
	c.record("ToolAnalytics")
	if c.ToolAnalyticsFunc == nil {
		return nil, ErrOffline
	}
	return c.ToolAnalyticsFunc(ctx)
}

func (c *Client) ChemicalAnalytics(ctx context.Context) (*remote.ChemicalAnalytics, error) {
	c.record("ChemicalAnalytics")
	if c.ChemicalAnalyticsFunc == nil {
		return nil, ErrOffline
	}
	return c.ChemicalAnalyticsFunc(ctx)
}

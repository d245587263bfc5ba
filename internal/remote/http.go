package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"supplyline-sync/config"
	"supplyline-sync/internal/model"
)

const userAgent = "supplyline-sync/1"

// HTTPClient implements Client over the backend's JSON REST API.
type HTTPClient struct {
	baseURL *url.URL
	client  *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client for cfg.BaseURL. tokens may be nil for
// unauthenticated use.
func NewHTTPClient(cfg *config.RemoteConfig, tokens TokenSource) (*HTTPClient, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid remote base url %q: scheme and host are required", cfg.BaseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			log.Printf("Warning: Invalid proxy URL %q: %v. Remote client will not use a proxy.", cfg.HTTPProxy, err)
		} else {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	if tokens == nil {
		tokens = TokenFunc(func() string { return "" })
	}

	return &HTTPClient{
		baseURL: base,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		tokens:  tokens,
		limiter: rate.NewLimiter(limit, burst),
	}, nil
}

// endpoint resolves path segments against the base url. Segments are escaped.
func (c *HTTPClient) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL.JoinPath(escaped...)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one request and returns the raw body of a 2xx response.
func (c *HTTPClient) send(ctx context.Context, method, target string, in any) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, 0, Classify(ctx.Err())
		}
		return nil, 0, &Error{Kind: KindConnectivity, Message: msgTimeout, Err: err}
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, 0, &Error{Kind: KindUnknown, Message: "failed to marshal request payload", Err: err}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, 0, &Error{Kind: KindUnknown, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, Classify(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, statusError(resp.StatusCode, http.StatusText(resp.StatusCode), string(raw))
	}
	return raw, resp.StatusCode, nil
}

// call performs a request whose 2xx response must carry a JSON document of type T.
func call[T any](ctx context.Context, c *HTTPClient, method, target string, in any) (*T, error) {
	raw, code, err := c.send(ctx, method, target, in)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, &Error{Kind: KindUnknown, StatusCode: code, Message: msgEmptyBody}
	}
	var out T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, &Error{Kind: KindUnknown, StatusCode: code, Message: "failed to decode response", Err: err}
	}
	return &out, nil
}

func list[T any](ctx context.Context, c *HTTPClient, target string) ([]T, error) {
	rows, err := call[[]T](ctx, c, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if *rows == nil {
		return []T{}, nil
	}
	return *rows, nil
}

// exec performs a request whose response body is ignored.
func (c *HTTPClient) exec(ctx context.Context, method, target string) error {
	_, _, err := c.send(ctx, method, target, nil)
	return err
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func search(q string) url.Values {
	return url.Values{"q": []string{strings.TrimSpace(q)}}
}

// --- auth ---

func (c *HTTPClient) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	return call[LoginResponse](ctx, c, http.MethodPost, c.endpoint(nil, "auth", "login"), req)
}

func (c *HTTPClient) Logout(ctx context.Context) error {
	return c.exec(ctx, http.MethodPost, c.endpoint(nil, "auth", "logout"))
}

func (c *HTTPClient) CurrentUser(ctx context.Context) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodGet, c.endpoint(nil, "auth", "me"), nil)
}

// --- users ---

func (c *HTTPClient) ListUsers(ctx context.Context) ([]model.User, error) {
	return list[model.User](ctx, c, c.endpoint(nil, "users"))
}

func (c *HTTPClient) GetUser(ctx context.Context, userID int64) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodGet, c.endpoint(nil, "users", id(userID)), nil)
}

func (c *HTTPClient) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodPost, c.endpoint(nil, "users"), user)
}

func (c *HTTPClient) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	return call[model.User](ctx, c, http.MethodPut, c.endpoint(nil, "users", id(user.ID)), user)
}

func (c *HTTPClient) DeleteUser(ctx context.Context, userID int64) error {
	return c.exec(ctx, http.MethodDelete, c.endpoint(nil, "users", id(userID)))
}

// --- tools ---

func (c *HTTPClient) ListTools(ctx context.Context) ([]model.Tool, error) {
	return list[model.Tool](ctx, c, c.endpoint(nil, "tools"))
}

func (c *HTTPClient) GetTool(ctx context.Context, toolID int64) (*model.Tool, error) {
	return call[model.Tool](ctx, c, http.MethodGet, c.endpoint(nil, "tools", id(toolID)), nil)
}

func (c *HTTPClient) CreateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error) {
	return call[model.Tool](ctx, c, http.MethodPost, c.endpoint(nil, "tools"), tool)
}

func (c *HTTPClient) UpdateTool(ctx context.Context, tool *model.Tool) (*model.Tool, error) {
	return call[model.Tool](ctx, c, http.MethodPut, c.endpoint(nil, "tools", id(tool.ID)), tool)
}

func (c *HTTPClient) DeleteTool(ctx context.Context, toolID int64) error {
	return c.exec(ctx, http.MethodDelete, c.endpoint(nil, "tools", id(toolID)))
}

func (c *HTTPClient) SearchTools(ctx context.Context, query string) ([]model.Tool, error) {
	return list[model.Tool](ctx, c, c.endpoint(search(query), "tools", "search"))
}

func (c *HTTPClient) ListToolsByCategory(ctx context.Context, category string) ([]model.Tool, error) {
	return list[model.Tool](ctx, c, c.endpoint(nil, "tools", "category", category))
}

func (c *HTTPClient) ListToolsByStatus(ctx context.Context, status model.ToolStatus) ([]model.Tool, error) {
	return list[model.Tool](ctx, c, c.endpoint(nil, "tools", "status", string(status)))
}

// --- checkouts ---

func (c *HTTPClient) ListCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return list[model.ToolCheckout](ctx, c, c.endpoint(nil, "checkouts"))
}

func (c *HTTPClient) ListActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return list[model.ToolCheckout](ctx, c, c.endpoint(nil, "checkouts", "active"))
}

func (c *HTTPClient) ListCheckoutsForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error) {
	return list[model.ToolCheckout](ctx, c, c.endpoint(nil, "checkouts", "user", id(userID)))
}

func (c *HTTPClient) ListCheckoutsForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error) {
	return list[model.ToolCheckout](ctx, c, c.endpoint(nil, "checkouts", "tool", id(toolID)))
}

func (c *HTTPClient) ListOverdueCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return list[model.ToolCheckout](ctx, c, c.endpoint(nil, "checkouts", "overdue"))
}

func (c *HTTPClient) CreateCheckout(ctx context.Context, req CheckoutRequest) (*model.ToolCheckout, error) {
	return call[model.ToolCheckout](ctx, c, http.MethodPost, c.endpoint(nil, "checkouts"), req)
}

func (c *HTTPClient) ReturnTool(ctx context.Context, req ReturnRequest) (*model.ToolCheckout, error) {
	return call[model.ToolCheckout](ctx, c, http.MethodPut, c.endpoint(nil, "checkouts", id(req.CheckoutID), "return"), req)
}

// --- chemicals ---

func (c *HTTPClient) ListChemicals(ctx context.Context) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(nil, "chemicals"))
}

func (c *HTTPClient) GetChemical(ctx context.Context, chemicalID int64) (*model.Chemical, error) {
	return call[model.Chemical](ctx, c, http.MethodGet, c.endpoint(nil, "chemicals", id(chemicalID)), nil)
}

func (c *HTTPClient) CreateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error) {
	return call[model.Chemical](ctx, c, http.MethodPost, c.endpoint(nil, "chemicals"), chemical)
}

func (c *HTTPClient) UpdateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, error) {
	return call[model.Chemical](ctx, c, http.MethodPut, c.endpoint(nil, "chemicals", id(chemical.ID)), chemical)
}

func (c *HTTPClient) DeleteChemical(ctx context.Context, chemicalID int64) error {
	return c.exec(ctx, http.MethodDelete, c.endpoint(nil, "chemicals", id(chemicalID)))
}

func (c *HTTPClient) SearchChemicals(ctx context.Context, query string) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(search(query), "chemicals", "search"))
}

func (c *HTTPClient) ListChemicalsByCategory(ctx context.Context, category string) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(nil, "chemicals", "category", category))
}

func (c *HTTPClient) ListChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(nil, "chemicals", "status", string(status)))
}

func (c *HTTPClient) ListExpiringChemicals(ctx context.Context) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(nil, "chemicals", "expiring"))
}

func (c *HTTPClient) ListLowStockChemicals(ctx context.Context) ([]model.Chemical, error) {
	return list[model.Chemical](ctx, c, c.endpoint(nil, "chemicals", "low-stock"))
}

// --- issuances ---

func (c *HTTPClient) ListIssuances(ctx context.Context) ([]model.ChemicalIssuance, error) {
	return list[model.ChemicalIssuance](ctx, c, c.endpoint(nil, "issuances"))
}

func (c *HTTPClient) ListIssuancesForChemical(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error) {
	return list[model.ChemicalIssuance](ctx, c, c.endpoint(nil, "issuances", "chemical", id(chemicalID)))
}

func (c *HTTPClient) ListIssuancesForUser(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error) {
	return list[model.ChemicalIssuance](ctx, c, c.endpoint(nil, "issuances", "user", id(userID)))
}

func (c *HTTPClient) CreateIssuance(ctx context.Context, req IssueRequest) (*model.ChemicalIssuance, error) {
	return call[model.ChemicalIssuance](ctx, c, http.MethodPost, c.endpoint(nil, "issuances"), req)
}

// --- analytics ---

func (c *HTTPClient) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	return call[DashboardStats](ctx, c, http.MethodGet, c.endpoint(nil, "dashboard", "stats"), nil)
}

func (c *HTTPClient) ToolAnalytics(ctx context.Context) (*ToolAnalytics, error) {
	return call[ToolAnalytics](ctx, c, http.MethodGet, c.endpoint(nil, "analytics", "tools"), nil)
}

func (c *HTTPClient) ChemicalAnalytics(ctx context.Context) (*ChemicalAnalytics, error) {
	return call[ChemicalAnalytics](ctx, c, http.MethodGet, c.endpoint(nil, "analytics", "chemicals"), nil)
}

package remote

import (
	"time"

	"supplyline-sync/internal/model"
)

// LoginRequest is the body of auth/login.
type LoginRequest struct {
	EmployeeNumber string `json:"employee_number"`
	Password       string `json:"password"`
}

// LoginResponse is returned by auth/login. Success false carries the reason
// in Message.
type LoginResponse struct {
	Success      bool        `json:"success"`
	Message      string      `json:"message"`
	User         *model.User `json:"user,omitempty"`
	Token        string      `json:"token,omitempty"`
	RefreshToken string      `json:"refresh_token,omitempty"`
}

// CheckoutRequest is the body of POST checkouts.
type CheckoutRequest struct {
	ToolID             int64     `json:"tool_id"`
	UserID             int64     `json:"user_id"`
	ExpectedReturnDate time.Time `json:"expected_return_date"`
	Notes              *string   `json:"notes,omitempty"`
}

// ReturnRequest is the body of PUT checkouts/{id}/return.
type ReturnRequest struct {
	CheckoutID int64   `json:"checkout_id"`
	Condition  string  `json:"condition"`
	Notes      *string `json:"notes,omitempty"`
}

// IssueRequest is the body of POST issuances.
type IssueRequest struct {
	ChemicalID int64   `json:"chemical_id"`
	Quantity   float64 `json:"quantity"`
	Location   string  `json:"location"`
	Purpose    *string `json:"purpose,omitempty"`
	Notes      *string `json:"notes,omitempty"`
}

// DashboardStats is the summary served by dashboard/stats.
type DashboardStats struct {
	TotalUsers        int            `json:"total_users"`
	ActiveUsers       int            `json:"active_users"`
	TotalTools        int            `json:"total_tools"`
	AvailableTools    int            `json:"available_tools"`
	CheckedOutTools   int            `json:"checked_out_tools"`
	OverdueTools      int            `json:"overdue_tools"`
	TotalChemicals    int            `json:"total_chemicals"`
	ExpiringChemicals int            `json:"expiring_chemicals"`
	LowStockChemicals int            `json:"low_stock_chemicals"`
	RecentActivity    []ActivityItem `json:"recent_activity"`
}

type ActivityItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"` // checkout, return, issuance
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
	User        string `json:"user"`
}

type ToolAnalytics struct {
	UtilizationRate   float64        `json:"utilization_rate"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	CheckoutTrends    []TrendData    `json:"checkout_trends"`
}

type ChemicalAnalytics struct {
	UsageRate         float64        `json:"usage_rate"`
	CategoryBreakdown map[string]int `json:"category_breakdown"`
	StatusBreakdown   map[string]int `json:"status_breakdown"`
	IssuanceTrends    []TrendData    `json:"issuance_trends"`
}

type TrendData struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

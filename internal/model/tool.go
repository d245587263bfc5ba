package model

import "time"

// ToolStatus is the lifecycle state of a tool.
type ToolStatus string

const (
	ToolAvailable   ToolStatus = "Available"
	ToolCheckedOut  ToolStatus = "Checked Out"
	ToolMaintenance ToolStatus = "Maintenance"
	ToolRetired     ToolStatus = "Retired"
)

// Valid reports whether s is one of the known tool states.
func (s ToolStatus) Valid() bool {
	switch s {
	case ToolAvailable, ToolCheckedOut, ToolMaintenance, ToolRetired:
		return true
	}
	return false
}

// Tool represents a serialized tool tracked by the crib.
type Tool struct {
	ID                      int64      `gorm:"primaryKey" json:"id"`
	ToolNumber              string     `gorm:"uniqueIndex;size:64;not null" json:"tool_number"`
	SerialNumber            string     `gorm:"uniqueIndex;size:128;not null" json:"serial_number"`
	Description             string     `gorm:"size:512;not null" json:"description"`
	Category                string     `gorm:"size:64;not null" json:"category"`
	Location                string     `gorm:"size:128;not null" json:"location"`
	Status                  ToolStatus `gorm:"size:32;not null" json:"status"`
	Condition               *string    `gorm:"size:64" json:"condition,omitempty"`
	Notes                   *string    `json:"notes,omitempty"`
	CreatedAt               *time.Time `gorm:"autoCreateTime:false" json:"created_at,omitempty"`
	UpdatedAt               *time.Time `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	RequiresCalibration     bool       `gorm:"not null" json:"requires_calibration"`
	CalibrationDueDate      *time.Time `json:"calibration_due_date,omitempty"`
	CalibrationIntervalDays *int       `json:"calibration_interval_days,omitempty"`
	ClientRef               string     `gorm:"size:36;index" json:"client_ref,omitempty"`
}

// ToolCheckout records a tool held by a user. It stays active until returned.
type ToolCheckout struct {
	ID                 int64      `gorm:"primaryKey" json:"id"`
	ToolID             int64      `gorm:"not null" json:"tool_id"`
	UserID             int64      `gorm:"not null" json:"user_id"`
	CheckoutDate       time.Time  `gorm:"not null" json:"checkout_date"`
	ExpectedReturnDate time.Time  `gorm:"not null" json:"expected_return_date"`
	ActualReturnDate   *time.Time `json:"actual_return_date,omitempty"`
	ReturnCondition    *string    `gorm:"size:64" json:"return_condition,omitempty"`
	ReturnNotes        *string    `json:"return_notes,omitempty"`
	CheckedOutBy       string     `gorm:"size:256;not null" json:"checked_out_by"`
	ReturnedBy         *string    `gorm:"size:256" json:"returned_by,omitempty"`
	IsActive           bool       `gorm:"not null" json:"is_active"`
}

// ToolWithCheckout is a tool joined with its active checkout, if any.
type ToolWithCheckout struct {
	Tool
	CheckoutID         *int64     `json:"checkout_id,omitempty"`
	CheckedOutTo       *int64     `json:"checked_out_to,omitempty"`
	CheckedOutToName   *string    `json:"checked_out_to_name,omitempty"`
	CheckoutDate       *time.Time `json:"checkout_date,omitempty"`
	ExpectedReturnDate *time.Time `json:"expected_return_date,omitempty"`
}

// ToolUsage counts how often a tool has been checked out.
type ToolUsage struct {
	Tool
	CheckoutCount int64 `json:"checkout_count"`
}

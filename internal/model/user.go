package model

import "time"

// User is an employee known to the SupplyLine backend.
type User struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	EmployeeNumber string     `gorm:"uniqueIndex;size:64;not null" json:"employee_number"`
	Name           string     `gorm:"size:256;not null" json:"name"`
	Department     string     `gorm:"size:128;not null" json:"department"`
	IsAdmin        bool       `gorm:"not null" json:"is_admin"`
	AvatarURL      *string    `gorm:"size:512" json:"avatar_url,omitempty"`
	CreatedAt      *time.Time `gorm:"autoCreateTime:false" json:"created_at,omitempty"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	// ClientRef marks a row created while the backend was unreachable.
	ClientRef string `gorm:"size:36;index" json:"client_ref,omitempty"`
}

// Departments counted by the user statistics.
const (
	DepartmentMaintenance = "Maintenance"
	DepartmentMaterials   = "Materials"
	DepartmentAdmin       = "Admin"
)

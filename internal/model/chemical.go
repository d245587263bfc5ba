package model

import "time"

// ChemicalStatus is the stock state of a chemical lot.
type ChemicalStatus string

const (
	ChemicalGood     ChemicalStatus = "Good"
	ChemicalExpiring ChemicalStatus = "Expiring"
	ChemicalExpired  ChemicalStatus = "Expired"
	ChemicalLowStock ChemicalStatus = "Low Stock"
	ChemicalArchived ChemicalStatus = "Archived"
)

// Valid reports whether s is one of the known chemical states.
func (s ChemicalStatus) Valid() bool {
	switch s {
	case ChemicalGood, ChemicalExpiring, ChemicalExpired, ChemicalLowStock, ChemicalArchived:
		return true
	}
	return false
}

// Chemical is a single lot of a consumable chemical.
type Chemical struct {
	ID                int64          `gorm:"primaryKey" json:"id"`
	PartNumber        string         `gorm:"uniqueIndex:idx_chemicals_part_lot;size:64;not null" json:"part_number"`
	LotNumber         string         `gorm:"uniqueIndex:idx_chemicals_part_lot;size:64;not null" json:"lot_number"`
	Description       string         `gorm:"size:512;not null" json:"description"`
	Manufacturer      string         `gorm:"size:256;not null" json:"manufacturer"`
	Category          string         `gorm:"size:64;not null" json:"category"`
	Location          string         `gorm:"size:128;not null" json:"location"`
	Quantity          float64        `gorm:"not null" json:"quantity"`
	Unit              string         `gorm:"size:32;not null" json:"unit"`
	ExpirationDate    time.Time      `gorm:"not null" json:"expiration_date"`
	MinimumStockLevel float64        `gorm:"not null" json:"minimum_stock_level"`
	Status            ChemicalStatus `gorm:"size:32;not null" json:"status"`
	CreatedAt         *time.Time     `gorm:"autoCreateTime:false" json:"created_at,omitempty"`
	UpdatedAt         *time.Time     `gorm:"autoUpdateTime:false" json:"updated_at,omitempty"`
	IsArchived        bool           `gorm:"not null" json:"is_archived"`
	ClientRef         string         `gorm:"size:36;index" json:"client_ref,omitempty"`
}

// ChemicalIssuance records quantity dispensed from a chemical lot.
type ChemicalIssuance struct {
	ID             int64     `gorm:"primaryKey" json:"id"`
	ChemicalID     int64     `gorm:"not null" json:"chemical_id"`
	UserID         int64     `gorm:"not null" json:"user_id"`
	QuantityIssued float64   `gorm:"not null" json:"quantity_issued"`
	IssueDate      time.Time `gorm:"not null" json:"issue_date"`
	Location       string    `gorm:"size:128;not null" json:"location"`
	Purpose        *string   `json:"purpose,omitempty"`
	IssuedBy       string    `gorm:"size:256;not null" json:"issued_by"`
	Notes          *string   `json:"notes,omitempty"`
}

// ChemicalWithUsage is a chemical with its issuance totals computed at query time.
type ChemicalWithUsage struct {
	Chemical
	TotalIssued       float64 `json:"total_issued"`
	RemainingQuantity float64 `json:"remaining_quantity"`
}

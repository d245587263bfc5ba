package model

import (
	"time"

	"gorm.io/gorm"
)

// Timestamps are stored in UTC so that date filters compare consistently on
// engines that persist times as text.

func utc(t *time.Time) {
	if t != nil && !t.IsZero() {
		*t = t.UTC()
	}
}

func (u *User) BeforeSave(*gorm.DB) error {
	utc(u.CreatedAt)
	utc(u.LastLogin)
	return nil
}

func (t *Tool) BeforeSave(*gorm.DB) error {
	utc(t.CreatedAt)
	utc(t.UpdatedAt)
	utc(t.CalibrationDueDate)
	return nil
}

func (c *ToolCheckout) BeforeSave(*gorm.DB) error {
	utc(&c.CheckoutDate)
	utc(&c.ExpectedReturnDate)
	utc(c.ActualReturnDate)
	return nil
}

func (c *Chemical) BeforeSave(*gorm.DB) error {
	utc(&c.ExpirationDate)
	utc(c.CreatedAt)
	utc(c.UpdatedAt)
	return nil
}

func (i *ChemicalIssuance) BeforeSave(*gorm.DB) error {
	utc(&i.IssueDate)
	return nil
}

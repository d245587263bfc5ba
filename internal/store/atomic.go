package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

// IssuedBySystem marks issuances recorded by the device rather than a person.
const IssuedBySystem = "System"

// IssueChemical records an issuance of quantity from a chemical and decrements
// its stock in one transaction. It returns false without writing anything
// when quantity is not positive, the chemical is unknown, or stock is short.
func (s *gormStore) IssueChemical(ctx context.Context, chemicalID int64, quantity float64, userID int64, location string) (bool, error) {
	issuance := model.ChemicalIssuance{
		ChemicalID:     chemicalID,
		UserID:         userID,
		QuantityIssued: quantity,
		IssueDate:      s.Now(),
		Location:       location,
		IssuedBy:       IssuedBySystem,
	}
	return s.ApplyIssuance(ctx, &issuance)
}

// ApplyIssuance stores an already-built issuance and decrements the chemical
// by its quantity under the same rules as IssueChemical.
func (s *gormStore) ApplyIssuance(ctx context.Context, issuance *model.ChemicalIssuance) (bool, error) {
	if issuance.QuantityIssued <= 0 {
		return false, nil
	}

	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chemical model.Chemical
		err := tx.Clauses(forUpdate()).Where("id = ?", issuance.ChemicalID).Take(&chemical).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load chemical %d: %w", issuance.ChemicalID, err)
		}
		if chemical.Quantity < issuance.QuantityIssued {
			return nil
		}

		if err := upsertOne(tx, issuance); err != nil {
			return fmt.Errorf("failed to insert issuance for chemical %d: %w", chemical.ID, err)
		}

		if err := tx.Model(&model.Chemical{}).Where("id = ?", chemical.ID).Updates(map[string]any{
			"quantity":   chemical.Quantity - issuance.QuantityIssued,
			"updated_at": s.Now(),
		}).Error; err != nil {
			return fmt.Errorf("failed to decrement chemical %d: %w", chemical.ID, err)
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if applied {
		s.hub.publish(TableChemicals, TableIssuances)
	}
	return applied, nil
}

// CheckoutTool inserts an active checkout for toolID and marks the tool as
// checked out in one transaction.
func (s *gormStore) CheckoutTool(ctx context.Context, checkout *model.ToolCheckout, toolID int64) error {
	checkout.ToolID = toolID
	checkout.IsActive = true

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tool model.Tool
		err := tx.Clauses(forUpdate()).Where("id = ?", toolID).Take(&tool).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("tool %d: %w", toolID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load tool %d: %w", toolID, err)
		}

		var open int64
		if err := tx.Model(&model.ToolCheckout{}).
			Where("tool_id = ? AND is_active = ? AND id <> ?", toolID, true, checkout.ID).
			Count(&open).Error; err != nil {
			return fmt.Errorf("failed to check open checkouts for tool %d: %w", toolID, err)
		}
		if open > 0 {
			return fmt.Errorf("tool %s: %w", tool.ToolNumber, ErrToolAlreadyCheckedOut)
		}

		if err := upsertOne(tx, checkout); err != nil {
			return fmt.Errorf("failed to insert checkout for tool %d: %w", toolID, err)
		}
		return setToolStatus(tx, toolID, model.ToolCheckedOut, s.Now())
	})
	if err != nil {
		return err
	}
	s.hub.publish(TableCheckouts, TableTools)
	return nil
}

// ApplyCheckout stores a checkout confirmed by the backend as the only active
// checkout of toolID and marks the tool as checked out, in one transaction.
// Other active checkouts of the tool are closed; their number is returned.
// An unknown tool does not prevent the checkout from being recorded.
func (s *gormStore) ApplyCheckout(ctx context.Context, checkout *model.ToolCheckout, toolID int64) (int, error) {
	checkout.ToolID = toolID
	checkout.IsActive = true

	var closed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.Now()
		res := tx.Model(&model.ToolCheckout{}).
			Where("tool_id = ? AND is_active = ? AND id <> ?", toolID, true, checkout.ID).
			Updates(map[string]any{"is_active": false, "actual_return_date": now})
		if res.Error != nil {
			return fmt.Errorf("failed to close stale checkouts for tool %d: %w", toolID, res.Error)
		}
		closed = res.RowsAffected

		if err := upsertOne(tx, checkout); err != nil {
			return fmt.Errorf("failed to store checkout %d: %w", checkout.ID, err)
		}
		return setToolStatus(tx, toolID, model.ToolCheckedOut, now)
	})
	if err != nil {
		return 0, err
	}
	s.hub.publish(TableCheckouts, TableTools)
	return int(closed), nil
}

// ReturnTool closes the checkout and makes the tool available again in one
// transaction. A missing checkout is a no-op.
func (s *gormStore) ReturnTool(ctx context.Context, checkoutID, toolID int64, condition string, notes *string) error {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var checkout model.ToolCheckout
		err := tx.Clauses(forUpdate()).Where("id = ?", checkoutID).Take(&checkout).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load checkout %d: %w", checkoutID, err)
		}

		now := s.Now()
		checkout.IsActive = false
		checkout.ActualReturnDate = &now
		checkout.ReturnCondition = &condition
		checkout.ReturnNotes = notes
		if err := tx.Model(&checkout).Select("*").Updates(&checkout).Error; err != nil {
			return fmt.Errorf("failed to close checkout %d: %w", checkoutID, err)
		}
		applied = true
		return setToolStatus(tx, toolID, model.ToolAvailable, now)
	})
	if err != nil {
		return err
	}
	if applied {
		s.hub.publish(TableCheckouts, TableTools)
	}
	return nil
}

// ApplyReturn stores a closed checkout as returned by the backend and makes
// its tool available in one transaction.
func (s *gormStore) ApplyReturn(ctx context.Context, returned *model.ToolCheckout) error {
	returned.IsActive = false
	if returned.ActualReturnDate == nil {
		now := s.Now()
		returned.ActualReturnDate = &now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertOne(tx, returned); err != nil {
			return fmt.Errorf("failed to store returned checkout %d: %w", returned.ID, err)
		}
		return setToolStatus(tx, returned.ToolID, model.ToolAvailable, s.Now())
	})
	if err != nil {
		return err
	}
	s.hub.publish(TableCheckouts, TableTools)
	return nil
}

func setToolStatus(tx *gorm.DB, toolID int64, status model.ToolStatus, at time.Time) error {
	if err := tx.Model(&model.Tool{}).Where("id = ?", toolID).
		Updates(map[string]any{"status": status, "updated_at": at}).Error; err != nil {
		return fmt.Errorf("failed to set tool %d to %s: %w", toolID, status, err)
	}
	return nil
}

package store

import (
	"context"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

// CheckoutStore holds the local tool checkout operations.
type CheckoutStore interface {
	GetCheckout(ctx context.Context, id int64) (*model.ToolCheckout, error)
	GetActiveCheckoutForTool(ctx context.Context, toolID int64) (*model.ToolCheckout, error)
	ListCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListActiveCheckoutsForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error)
	ListReturnedCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListCheckoutHistoryForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error)
	ListCheckoutHistoryForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error)
	ListOverdueCheckouts(ctx context.Context) ([]model.ToolCheckout, error)
	ListCheckoutsDueSoon(ctx context.Context) ([]model.ToolCheckout, error)
	UpsertCheckout(ctx context.Context, checkout *model.ToolCheckout) error
	UpsertCheckouts(ctx context.Context, checkouts []model.ToolCheckout) error
	UpdateCheckout(ctx context.Context, checkout *model.ToolCheckout) error
	DeleteCheckout(ctx context.Context, id int64) error
	DeleteAllCheckouts(ctx context.Context) error
	ReplaceCheckouts(ctx context.Context, checkouts []model.ToolCheckout) error
	CountCheckouts(ctx context.Context) (int, error)
	CountActiveCheckouts(ctx context.Context) (int, error)
	CountOverdueCheckouts(ctx context.Context) (int, error)

	CheckoutTool(ctx context.Context, checkout *model.ToolCheckout, toolID int64) error
	ApplyCheckout(ctx context.Context, checkout *model.ToolCheckout, toolID int64) (int, error)
	ReturnTool(ctx context.Context, checkoutID, toolID int64, condition string, notes *string) error
	ApplyReturn(ctx context.Context, returned *model.ToolCheckout) error
}

func (s *gormStore) checkouts(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.ToolCheckout{})
}

func (s *gormStore) GetCheckout(ctx context.Context, id int64) (*model.ToolCheckout, error) {
	return first[model.ToolCheckout](s.checkouts(ctx).Where("id = ?", id))
}

func (s *gormStore) GetActiveCheckoutForTool(ctx context.Context, toolID int64) (*model.ToolCheckout, error) {
	return first[model.ToolCheckout](s.checkouts(ctx).
		Where("tool_id = ? AND is_active = ?", toolID, true).
		Order("checkout_date DESC"))
}

func (s *gormStore) ListCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).Order("checkout_date DESC"))
}

func (s *gormStore) ListActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).Where("is_active = ?", true).Order("checkout_date DESC"))
}

func (s *gormStore) ListActiveCheckoutsForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("checkout_date DESC"))
}

func (s *gormStore) ListReturnedCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).Where("is_active = ?", false).Order("actual_return_date DESC"))
}

func (s *gormStore) ListCheckoutHistoryForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).Where("tool_id = ?", toolID).Order("checkout_date DESC"))
}

func (s *gormStore) ListCheckoutHistoryForUser(ctx context.Context, userID int64) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).Where("user_id = ?", userID).Order("checkout_date DESC"))
}

func (s *gormStore) ListOverdueCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).
		Where("is_active = ? AND expected_return_date < ?", true, s.Now()).
		Order("expected_return_date ASC"))
}

// ListCheckoutsDueSoon returns active checkouts expected back within three days.
func (s *gormStore) ListCheckoutsDueSoon(ctx context.Context) ([]model.ToolCheckout, error) {
	return find[model.ToolCheckout](s.checkouts(ctx).
		Where("is_active = ? AND expected_return_date <= ?", true, s.Now().Add(checkoutDueWindow)).
		Order("expected_return_date ASC"))
}

func (s *gormStore) UpsertCheckout(ctx context.Context, checkout *model.ToolCheckout) error {
	if err := upsertOne(s.db.WithContext(ctx), checkout); err != nil {
		return err
	}
	s.hub.publish(TableCheckouts)
	return nil
}

func (s *gormStore) UpsertCheckouts(ctx context.Context, checkouts []model.ToolCheckout) error {
	if err := upsertAll(ctx, s.db, checkouts); err != nil {
		return err
	}
	s.hub.publish(TableCheckouts)
	return nil
}

func (s *gormStore) UpdateCheckout(ctx context.Context, checkout *model.ToolCheckout) error {
	if checkout.ID == 0 {
		return nil
	}
	changed, err := update(ctx, s.db, checkout)
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(TableCheckouts)
	}
	return nil
}

func (s *gormStore) DeleteCheckout(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.ToolCheckout{}, id).Error; err != nil {
		return err
	}
	s.hub.publish(TableCheckouts)
	return nil
}

func (s *gormStore) DeleteAllCheckouts(ctx context.Context) error {
	if err := deleteAll[model.ToolCheckout](ctx, s.db); err != nil {
		return err
	}
	s.hub.publish(TableCheckouts)
	return nil
}

func (s *gormStore) ReplaceCheckouts(ctx context.Context, checkouts []model.ToolCheckout) error {
	if err := replaceAll(ctx, s.db, checkouts); err != nil {
		return err
	}
	s.hub.publish(TableCheckouts)
	return nil
}

func (s *gormStore) CountCheckouts(ctx context.Context) (int, error) {
	return count(s.checkouts(ctx))
}

func (s *gormStore) CountActiveCheckouts(ctx context.Context) (int, error) {
	return count(s.checkouts(ctx).Where("is_active = ?", true))
}

func (s *gormStore) CountOverdueCheckouts(ctx context.Context) (int, error) {
	return count(s.checkouts(ctx).Where("is_active = ? AND expected_return_date < ?", true, s.Now()))
}

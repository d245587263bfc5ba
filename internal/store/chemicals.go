package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

// ChemicalStore holds the local chemical table operations and usage aggregates.
type ChemicalStore interface {
	GetChemical(ctx context.Context, id int64) (*model.Chemical, error)
	GetChemicalByPartAndLot(ctx context.Context, partNumber, lotNumber string) (*model.Chemical, error)
	ListChemicals(ctx context.Context) ([]model.Chemical, error)
	ListActiveChemicals(ctx context.Context) ([]model.Chemical, error)
	ListArchivedChemicals(ctx context.Context) ([]model.Chemical, error)
	ListChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error)
	ListChemicalsByCategory(ctx context.Context, category string) ([]model.Chemical, error)
	ListChemicalsByLocation(ctx context.Context, location string) ([]model.Chemical, error)
	SearchChemicals(ctx context.Context, query string) ([]model.Chemical, error)
	ListExpiringChemicals(ctx context.Context) ([]model.Chemical, error)
	ListExpiredChemicals(ctx context.Context) ([]model.Chemical, error)
	ListLowStockChemicals(ctx context.Context) ([]model.Chemical, error)
	ListCriticalStockChemicals(ctx context.Context) ([]model.ChemicalWithUsage, error)
	GetChemicalWithUsage(ctx context.Context, id int64) (*model.ChemicalWithUsage, error)
	ListChemicalsWithUsage(ctx context.Context) ([]model.ChemicalWithUsage, error)
	UpsertChemical(ctx context.Context, chemical *model.Chemical) error
	UpsertChemicals(ctx context.Context, chemicals []model.Chemical) error
	UpdateChemical(ctx context.Context, chemical *model.Chemical) error
	UpdateChemicalQuantity(ctx context.Context, id int64, quantity float64) error
	UpdateChemicalStatus(ctx context.Context, id int64, status model.ChemicalStatus) error
	ArchiveChemical(ctx context.Context, id int64) error
	DeleteChemical(ctx context.Context, id int64) error
	DeleteAllChemicals(ctx context.Context) error
	ReplaceChemicals(ctx context.Context, chemicals []model.Chemical) error
	CountChemicals(ctx context.Context) (int, error)
	CountActiveChemicals(ctx context.Context) (int, error)
	CountChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) (int, error)
	CountChemicalsByCategory(ctx context.Context, category string) (int, error)
	CountExpiringChemicals(ctx context.Context) (int, error)
	CountExpiredChemicals(ctx context.Context) (int, error)
	CountLowStockChemicals(ctx context.Context) (int, error)
	CountLocalOnlyChemicals(ctx context.Context) (int, error)

	IssueChemical(ctx context.Context, chemicalID int64, quantity float64, userID int64, location string) (bool, error)
	ApplyIssuance(ctx context.Context, issuance *model.ChemicalIssuance) (bool, error)
}

func (s *gormStore) chemicals(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Chemical{})
}

func (s *gormStore) activeChemicals(ctx context.Context) *gorm.DB {
	return s.chemicals(ctx).Where("is_archived = ?", false)
}

func (s *gormStore) GetChemical(ctx context.Context, id int64) (*model.Chemical, error) {
	return first[model.Chemical](s.chemicals(ctx).Where("id = ?", id))
}

func (s *gormStore) GetChemicalByPartAndLot(ctx context.Context, partNumber, lotNumber string) (*model.Chemical, error) {
	return first[model.Chemical](s.chemicals(ctx).Where("part_number = ? AND lot_number = ?", partNumber, lotNumber))
}

func (s *gormStore) ListChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.chemicals(ctx).Order("part_number ASC, lot_number ASC"))
}

func (s *gormStore) ListActiveChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.activeChemicals(ctx).Order("part_number ASC, lot_number ASC"))
}

func (s *gormStore) ListArchivedChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.chemicals(ctx).Where("is_archived = ?", true).Order("part_number ASC, lot_number ASC"))
}

func (s *gormStore) ListChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) ([]model.Chemical, error) {
	return find[model.Chemical](s.activeChemicals(ctx).Where("status = ?", status).Order("part_number ASC"))
}

func (s *gormStore) ListChemicalsByCategory(ctx context.Context, category string) ([]model.Chemical, error) {
	return find[model.Chemical](s.activeChemicals(ctx).Where("category = ?", category).Order("part_number ASC"))
}

func (s *gormStore) ListChemicalsByLocation(ctx context.Context, location string) ([]model.Chemical, error) {
	return find[model.Chemical](s.activeChemicals(ctx).Where("location LIKE ?", likePattern(location)).Order("part_number ASC"))
}

// SearchChemicals matches part number, lot number, description and
// manufacturer of non-archived chemicals, ignoring case.
func (s *gormStore) SearchChemicals(ctx context.Context, query string) ([]model.Chemical, error) {
	p := likePattern(strings.ToLower(query))
	return find[model.Chemical](s.activeChemicals(ctx).
		Where("LOWER(part_number) LIKE ? OR LOWER(lot_number) LIKE ? OR LOWER(description) LIKE ? OR LOWER(manufacturer) LIKE ?",
			p, p, p, p).
		Order("part_number ASC"))
}

func (s *gormStore) expiring(ctx context.Context) *gorm.DB {
	return s.activeChemicals(ctx).Where("expiration_date <= ?", s.Now().Add(expiryWindow))
}

func (s *gormStore) expired(ctx context.Context) *gorm.DB {
	return s.activeChemicals(ctx).Where("expiration_date < ?", s.Now())
}

// lowStock includes chemicals sitting exactly at their minimum level.
func (s *gormStore) lowStock(ctx context.Context) *gorm.DB {
	return s.activeChemicals(ctx).Where("quantity <= minimum_stock_level")
}

// ListExpiringChemicals returns chemicals expiring within 30 days, including
// those already expired.
func (s *gormStore) ListExpiringChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.expiring(ctx).Order("expiration_date ASC"))
}

func (s *gormStore) ListExpiredChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.expired(ctx).Order("expiration_date ASC"))
}

func (s *gormStore) ListLowStockChemicals(ctx context.Context) ([]model.Chemical, error) {
	return find[model.Chemical](s.lowStock(ctx).Order("part_number ASC"))
}

func (s *gormStore) withUsage(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("chemicals").
		Select("chemicals.*, COALESCE(SUM(ci.quantity_issued), 0) AS total_issued, " +
			"chemicals.quantity - COALESCE(SUM(ci.quantity_issued), 0) AS remaining_quantity").
		Joins("LEFT JOIN chemical_issuances ci ON ci.chemical_id = chemicals.id").
		Group("chemicals.id")
}

func (s *gormStore) GetChemicalWithUsage(ctx context.Context, id int64) (*model.ChemicalWithUsage, error) {
	var rows []model.ChemicalWithUsage
	if err := s.withUsage(ctx).Where("chemicals.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *gormStore) ListChemicalsWithUsage(ctx context.Context) ([]model.ChemicalWithUsage, error) {
	rows := make([]model.ChemicalWithUsage, 0)
	err := s.withUsage(ctx).
		Where("chemicals.is_archived = ?", false).
		Order("chemicals.part_number ASC").
		Scan(&rows).Error
	return rows, err
}

// ListCriticalStockChemicals returns non-archived chemicals whose remaining
// quantity is at or below their minimum, lowest first.
func (s *gormStore) ListCriticalStockChemicals(ctx context.Context) ([]model.ChemicalWithUsage, error) {
	rows := make([]model.ChemicalWithUsage, 0)
	err := s.withUsage(ctx).
		Where("chemicals.is_archived = ?", false).
		Having("chemicals.quantity - COALESCE(SUM(ci.quantity_issued), 0) <= chemicals.minimum_stock_level").
		Order("remaining_quantity ASC").
		Scan(&rows).Error
	return rows, err
}

func (s *gormStore) UpsertChemical(ctx context.Context, chemical *model.Chemical) error {
	if err := upsertOne(s.db.WithContext(ctx), chemical); err != nil {
		return err
	}
	s.hub.publish(TableChemicals)
	return nil
}

func (s *gormStore) UpsertChemicals(ctx context.Context, chemicals []model.Chemical) error {
	if err := upsertAll(ctx, s.db, chemicals); err != nil {
		return err
	}
	s.hub.publish(TableChemicals)
	return nil
}

func (s *gormStore) UpdateChemical(ctx context.Context, chemical *model.Chemical) error {
	if chemical.ID == 0 {
		return nil
	}
	changed, err := update(ctx, s.db, chemical)
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(TableChemicals)
	}
	return nil
}

func (s *gormStore) updateChemicalColumns(ctx context.Context, id int64, values map[string]any) error {
	values["updated_at"] = s.Now()
	res := s.chemicals(ctx).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.hub.publish(TableChemicals)
	}
	return nil
}

func (s *gormStore) UpdateChemicalQuantity(ctx context.Context, id int64, quantity float64) error {
	return s.updateChemicalColumns(ctx, id, map[string]any{"quantity": quantity})
}

func (s *gormStore) UpdateChemicalStatus(ctx context.Context, id int64, status model.ChemicalStatus) error {
	return s.updateChemicalColumns(ctx, id, map[string]any{"status": status})
}

func (s *gormStore) ArchiveChemical(ctx context.Context, id int64) error {
	return s.updateChemicalColumns(ctx, id, map[string]any{"is_archived": true, "status": model.ChemicalArchived})
}

func (s *gormStore) DeleteChemical(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.Chemical{}, id).Error; err != nil {
		return err
	}
	s.hub.publish(TableChemicals)
	return nil
}

func (s *gormStore) DeleteAllChemicals(ctx context.Context) error {
	if err := deleteAll[model.Chemical](ctx, s.db); err != nil {
		return err
	}
	s.hub.publish(TableChemicals)
	return nil
}

func (s *gormStore) ReplaceChemicals(ctx context.Context, chemicals []model.Chemical) error {
	if err := replaceAll(ctx, s.db, chemicals); err != nil {
		return err
	}
	s.hub.publish(TableChemicals)
	return nil
}

func (s *gormStore) CountChemicals(ctx context.Context) (int, error) {
	return count(s.chemicals(ctx))
}

func (s *gormStore) CountActiveChemicals(ctx context.Context) (int, error) {
	return count(s.activeChemicals(ctx))
}

func (s *gormStore) CountChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) (int, error) {
	return count(s.activeChemicals(ctx).Where("status = ?", status))
}

func (s *gormStore) CountChemicalsByCategory(ctx context.Context, category string) (int, error) {
	return count(s.activeChemicals(ctx).Where("category = ?", category))
}

func (s *gormStore) CountExpiringChemicals(ctx context.Context) (int, error) {
	return count(s.expiring(ctx))
}

func (s *gormStore) CountExpiredChemicals(ctx context.Context) (int, error) {
	return count(s.expired(ctx))
}

func (s *gormStore) CountLowStockChemicals(ctx context.Context) (int, error) {
	return count(s.lowStock(ctx))
}

func (s *gormStore) CountLocalOnlyChemicals(ctx context.Context) (int, error) {
	return count(s.chemicals(ctx).Where("client_ref <> ''"))
}

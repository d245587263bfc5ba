package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

// IssuanceStore holds the local chemical issuance operations.
type IssuanceStore interface {
	GetIssuance(ctx context.Context, id int64) (*model.ChemicalIssuance, error)
	ListIssuances(ctx context.Context) ([]model.ChemicalIssuance, error)
	ListIssuancesForChemical(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error)
	ListIssuancesForUser(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error)
	ListIssuancesByLocation(ctx context.Context, location string) ([]model.ChemicalIssuance, error)
	ListIssuancesBetween(ctx context.Context, from, to time.Time) ([]model.ChemicalIssuance, error)
	TotalIssuedForChemical(ctx context.Context, chemicalID int64) (float64, error)
	TotalIssuedForChemicalSince(ctx context.Context, chemicalID int64, since time.Time) (float64, error)
	UpsertIssuance(ctx context.Context, issuance *model.ChemicalIssuance) error
	UpsertIssuances(ctx context.Context, issuances []model.ChemicalIssuance) error
	UpdateIssuance(ctx context.Context, issuance *model.ChemicalIssuance) error
	DeleteIssuance(ctx context.Context, id int64) error
	DeleteAllIssuances(ctx context.Context) error
	ReplaceIssuances(ctx context.Context, issuances []model.ChemicalIssuance) error
	CountIssuances(ctx context.Context) (int, error)
	CountIssuancesForChemical(ctx context.Context, chemicalID int64) (int, error)
}

func (s *gormStore) issuances(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.ChemicalIssuance{})
}

func (s *gormStore) GetIssuance(ctx context.Context, id int64) (*model.ChemicalIssuance, error) {
	return first[model.ChemicalIssuance](s.issuances(ctx).Where("id = ?", id))
}

func (s *gormStore) ListIssuances(ctx context.Context) ([]model.ChemicalIssuance, error) {
	return find[model.ChemicalIssuance](s.issuances(ctx).Order("issue_date DESC"))
}

func (s *gormStore) ListIssuancesForChemical(ctx context.Context, chemicalID int64) ([]model.ChemicalIssuance, error) {
	return find[model.ChemicalIssuance](s.issuances(ctx).Where("chemical_id = ?", chemicalID).Order("issue_date DESC"))
}

func (s *gormStore) ListIssuancesForUser(ctx context.Context, userID int64) ([]model.ChemicalIssuance, error) {
	return find[model.ChemicalIssuance](s.issuances(ctx).Where("user_id = ?", userID).Order("issue_date DESC"))
}

func (s *gormStore) ListIssuancesByLocation(ctx context.Context, location string) ([]model.ChemicalIssuance, error) {
	return find[model.ChemicalIssuance](s.issuances(ctx).Where("location LIKE ?", likePattern(location)).Order("issue_date DESC"))
}

func (s *gormStore) ListIssuancesBetween(ctx context.Context, from, to time.Time) ([]model.ChemicalIssuance, error) {
	return find[model.ChemicalIssuance](s.issuances(ctx).
		Where("issue_date >= ? AND issue_date <= ?", from.UTC(), to.UTC()).
		Order("issue_date DESC"))
}

func sumIssued(q *gorm.DB) (float64, error) {
	var total float64
	if err := q.Select("COALESCE(SUM(quantity_issued), 0)").Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *gormStore) TotalIssuedForChemical(ctx context.Context, chemicalID int64) (float64, error) {
	return sumIssued(s.issuances(ctx).Where("chemical_id = ?", chemicalID))
}

func (s *gormStore) TotalIssuedForChemicalSince(ctx context.Context, chemicalID int64, since time.Time) (float64, error) {
	return sumIssued(s.issuances(ctx).Where("chemical_id = ? AND issue_date >= ?", chemicalID, since.UTC()))
}

func (s *gormStore) UpsertIssuance(ctx context.Context, issuance *model.ChemicalIssuance) error {
	if err := upsertOne(s.db.WithContext(ctx), issuance); err != nil {
		return err
	}
	s.hub.publish(TableIssuances)
	return nil
}

func (s *gormStore) UpsertIssuances(ctx context.Context, issuances []model.ChemicalIssuance) error {
	if err := upsertAll(ctx, s.db, issuances); err != nil {
		return err
	}
	s.hub.publish(TableIssuances)
	return nil
}

func (s *gormStore) UpdateIssuance(ctx context.Context, issuance *model.ChemicalIssuance) error {
	if issuance.ID == 0 {
		return nil
	}
	changed, err := update(ctx, s.db, issuance)
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(TableIssuances)
	}
	return nil
}

func (s *gormStore) DeleteIssuance(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.ChemicalIssuance{}, id).Error; err != nil {
		return err
	}
	s.hub.publish(TableIssuances)
	return nil
}

func (s *gormStore) DeleteAllIssuances(ctx context.Context) error {
	if err := deleteAll[model.ChemicalIssuance](ctx, s.db); err != nil {
		return err
	}
	s.hub.publish(TableIssuances)
	return nil
}

func (s *gormStore) ReplaceIssuances(ctx context.Context, issuances []model.ChemicalIssuance) error {
	if err := replaceAll(ctx, s.db, issuances); err != nil {
		return err
	}
	s.hub.publish(TableIssuances)
	return nil
}

func (s *gormStore) CountIssuances(ctx context.Context) (int, error) {
	return count(s.issuances(ctx))
}

func (s *gormStore) CountIssuancesForChemical(ctx context.Context, chemicalID int64) (int, error) {
	return count(s.issuances(ctx).Where("chemical_id = ?", chemicalID))
}

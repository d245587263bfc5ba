package repository

import (
	"context"
	"fmt"
	"log"

	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/store"
)

// ChemicalRepository serves chemicals and their issuances.
type ChemicalRepository struct {
	store  store.Store
	remote remote.Client
	policy WritePolicy
}

func NewChemicalRepository(s store.Store, client remote.Client, policy WritePolicy) *ChemicalRepository {
	return &ChemicalRepository{store: s, remote: client, policy: policy}
}

// ChemicalStats is a snapshot of non-archived chemical counts by status.
type ChemicalStats struct {
	TotalActive    int `json:"total_active"`
	Good           int `json:"good"`
	Expiring       int `json:"expiring"`
	Expired        int `json:"expired"`
	LowStock       int `json:"low_stock"`
	TotalIssuances int `json:"total_issuances"`
}

// --- reads ---

func (r *ChemicalRepository) WatchActiveChemicals(ctx context.Context) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, r.store.ListActiveChemicals, store.TableChemicals)
}

func (r *ChemicalRepository) WatchArchivedChemicals(ctx context.Context) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, r.store.ListArchivedChemicals, store.TableChemicals)
}

func (r *ChemicalRepository) WatchChemicalsByStatus(ctx context.Context, status model.ChemicalStatus) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Chemical, error) {
		return r.store.ListChemicalsByStatus(ctx, status)
	}, store.TableChemicals)
}

func (r *ChemicalRepository) WatchChemicalsByCategory(ctx context.Context, category string) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Chemical, error) {
		return r.store.ListChemicalsByCategory(ctx, category)
	}, store.TableChemicals)
}

func (r *ChemicalRepository) WatchSearch(ctx context.Context, query string) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Chemical, error) {
		return r.store.SearchChemicals(ctx, query)
	}, store.TableChemicals)
}

func (r *ChemicalRepository) WatchExpiring(ctx context.Context) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, r.store.ListExpiringChemicals, store.TableChemicals)
}

func (r *ChemicalRepository) WatchExpired(ctx context.Context) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, r.store.ListExpiredChemicals, store.TableChemicals)
}

func (r *ChemicalRepository) WatchLowStock(ctx context.Context) <-chan []model.Chemical {
	return store.Watch(ctx, r.store, r.store.ListLowStockChemicals, store.TableChemicals)
}

// WatchCriticalStock follows chemicals whose stock net of issuances is at or
// below the minimum.
func (r *ChemicalRepository) WatchCriticalStock(ctx context.Context) <-chan []model.ChemicalWithUsage {
	return store.Watch(ctx, r.store, r.store.ListCriticalStockChemicals, store.TableChemicals, store.TableIssuances)
}

func (r *ChemicalRepository) WatchIssuances(ctx context.Context) <-chan []model.ChemicalIssuance {
	return store.Watch(ctx, r.store, r.store.ListIssuances, store.TableIssuances)
}

func (r *ChemicalRepository) WatchIssuancesForChemical(ctx context.Context, chemicalID int64) <-chan []model.ChemicalIssuance {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.ChemicalIssuance, error) {
		return r.store.ListIssuancesForChemical(ctx, chemicalID)
	}, store.TableIssuances)
}

func (r *ChemicalRepository) WatchIssuancesForUser(ctx context.Context, userID int64) <-chan []model.ChemicalIssuance {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.ChemicalIssuance, error) {
		return r.store.ListIssuancesForUser(ctx, userID)
	}, store.TableIssuances)
}

func (r *ChemicalRepository) ActiveChemicals(ctx context.Context) ([]model.Chemical, error) {
	return r.store.ListActiveChemicals(ctx)
}

func (r *ChemicalRepository) LowStock(ctx context.Context) ([]model.Chemical, error) {
	return r.store.ListLowStockChemicals(ctx)
}

func (r *ChemicalRepository) Expiring(ctx context.Context) ([]model.Chemical, error) {
	return r.store.ListExpiringChemicals(ctx)
}

func (r *ChemicalRepository) GetChemical(ctx context.Context, id int64) (*model.Chemical, error) {
	return orNotFound(r.store.GetChemical(ctx, id))
}

func (r *ChemicalRepository) GetChemicalByPartAndLot(ctx context.Context, partNumber, lotNumber string) (*model.Chemical, error) {
	return orNotFound(r.store.GetChemicalByPartAndLot(ctx, partNumber, lotNumber))
}

func (r *ChemicalRepository) GetChemicalWithUsage(ctx context.Context, id int64) (*model.ChemicalWithUsage, error) {
	return orNotFound(r.store.GetChemicalWithUsage(ctx, id))
}

// --- writes ---

// CreateChemical registers a chemical with the backend. Under FallbackLocal a
// rejected chemical is stored with a generated id and a client reference.
func (r *ChemicalRepository) CreateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, Outcome) {
	return writeThrough(ctx, r.policy, "chemical", chemical, r.remote.CreateChemical, r.store.UpsertChemical,
		func(ctx context.Context, c *model.Chemical) error {
			local := *c
			local.ID = 0
			local.ClientRef = newClientRef()
			if err := r.store.UpsertChemical(ctx, &local); err != nil {
				return err
			}
			*c = local
			return nil
		})
}

func (r *ChemicalRepository) UpdateChemical(ctx context.Context, chemical *model.Chemical) (*model.Chemical, Outcome) {
	return writeThrough(ctx, r.policy, "chemical", chemical, r.remote.UpdateChemical, r.store.UpsertChemical, r.store.UpdateChemical)
}

// IssueChemical records an issuance with the backend and applies it to the
// local stock in one transaction. Backend failures are returned, never stored.
func (r *ChemicalRepository) IssueChemical(ctx context.Context, req remote.IssueRequest) (*model.ChemicalIssuance, error) {
	issuance, err := r.remote.CreateIssuance(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to issue chemical %d: %w", req.ChemicalID, remote.Classify(err))
	}

	if issuance.ChemicalID == 0 {
		issuance.ChemicalID = req.ChemicalID
	}
	if issuance.QuantityIssued == 0 {
		issuance.QuantityIssued = req.Quantity
	}
	if issuance.Location == "" {
		issuance.Location = req.Location
	}

	applied, err := r.store.ApplyIssuance(ctx, issuance)
	if err != nil {
		return issuance, fmt.Errorf("failed to store issuance %d: %w", issuance.ID, err)
	}
	if !applied {
		log.Printf("Warning: issuance %d of %.2f accepted by backend but local stock of chemical %d could not absorb it; it will be reconciled on next sync",
			issuance.ID, issuance.QuantityIssued, issuance.ChemicalID)
	}
	return issuance, nil
}

// --- sync ---

func (r *ChemicalRepository) SyncChemicals(ctx context.Context) (int, error) {
	return pull(ctx, "chemicals", r.remote.ListChemicals, r.store.CountLocalOnlyChemicals, r.store.ReplaceChemicals)
}

func (r *ChemicalRepository) SyncIssuances(ctx context.Context) (int, error) {
	return pull(ctx, "issuances", r.remote.ListIssuances, noLocalOnly, r.store.ReplaceIssuances)
}

// --- stats ---

func (r *ChemicalRepository) Stats(ctx context.Context) (*ChemicalStats, error) {
	var stats ChemicalStats
	var err error
	if stats.TotalActive, err = r.store.CountActiveChemicals(ctx); err != nil {
		return nil, err
	}
	for _, c := range []struct {
		status model.ChemicalStatus
		dst    *int
	}{
		{model.ChemicalGood, &stats.Good},
		{model.ChemicalExpiring, &stats.Expiring},
		{model.ChemicalExpired, &stats.Expired},
		{model.ChemicalLowStock, &stats.LowStock},
	} {
		if *c.dst, err = r.store.CountChemicalsByStatus(ctx, c.status); err != nil {
			return nil, err
		}
	}
	if stats.TotalIssuances, err = r.store.CountIssuances(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

// HasLocalData reports whether any non-archived chemical is stored locally.
func (r *ChemicalRepository) HasLocalData(ctx context.Context) (bool, error) {
	n, err := r.store.CountActiveChemicals(ctx)
	return n > 0, err
}

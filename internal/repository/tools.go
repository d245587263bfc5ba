package repository

import (
	"context"
	"fmt"
	"log"

	"supplyline-sync/internal/model"
	"supplyline-sync/internal/remote"
	"supplyline-sync/internal/store"
)

// ToolRepository serves tools and their checkouts.
type ToolRepository struct {
	store  store.Store
	remote remote.Client
	policy WritePolicy
}

func NewToolRepository(s store.Store, client remote.Client, policy WritePolicy) *ToolRepository {
	return &ToolRepository{store: s, remote: client, policy: policy}
}

// ToolStats is a snapshot of tool counts by status.
type ToolStats struct {
	Total            int `json:"total"`
	Available        int `json:"available"`
	CheckedOut       int `json:"checked_out"`
	Maintenance      int `json:"maintenance"`
	OverdueCheckouts int `json:"overdue_checkouts"`
}

// --- reads ---

func (r *ToolRepository) WatchTools(ctx context.Context) <-chan []model.Tool {
	return store.Watch(ctx, r.store, r.store.ListTools, store.TableTools)
}

func (r *ToolRepository) WatchToolsByStatus(ctx context.Context, status model.ToolStatus) <-chan []model.Tool {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Tool, error) {
		return r.store.ListToolsByStatus(ctx, status)
	}, store.TableTools)
}

func (r *ToolRepository) WatchToolsByCategory(ctx context.Context, category string) <-chan []model.Tool {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Tool, error) {
		return r.store.ListToolsByCategory(ctx, category)
	}, store.TableTools)
}

func (r *ToolRepository) WatchSearch(ctx context.Context, query string) <-chan []model.Tool {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.Tool, error) {
		return r.store.SearchTools(ctx, query)
	}, store.TableTools)
}

// WatchToolsWithCheckoutInfo follows tools joined with their active checkout
// and holder.
func (r *ToolRepository) WatchToolsWithCheckoutInfo(ctx context.Context) <-chan []model.ToolWithCheckout {
	return store.Watch(ctx, r.store, r.store.ListToolsWithCheckoutInfo,
		store.TableTools, store.TableCheckouts, store.TableUsers)
}

func (r *ToolRepository) WatchCalibrationDueSoon(ctx context.Context) <-chan []model.Tool {
	return store.Watch(ctx, r.store, r.store.ListCalibrationDueSoon, store.TableTools)
}

func (r *ToolRepository) WatchOverdueCalibration(ctx context.Context) <-chan []model.Tool {
	return store.Watch(ctx, r.store, r.store.ListOverdueCalibration, store.TableTools)
}

func (r *ToolRepository) WatchActiveCheckouts(ctx context.Context) <-chan []model.ToolCheckout {
	return store.Watch(ctx, r.store, r.store.ListActiveCheckouts, store.TableCheckouts)
}

func (r *ToolRepository) WatchCheckoutsForUser(ctx context.Context, userID int64) <-chan []model.ToolCheckout {
	return store.Watch(ctx, r.store, func(ctx context.Context) ([]model.ToolCheckout, error) {
		return r.store.ListActiveCheckoutsForUser(ctx, userID)
	}, store.TableCheckouts)
}

func (r *ToolRepository) WatchOverdueCheckouts(ctx context.Context) <-chan []model.ToolCheckout {
	return store.Watch(ctx, r.store, r.store.ListOverdueCheckouts, store.TableCheckouts)
}

func (r *ToolRepository) WatchCheckoutsDueSoon(ctx context.Context) <-chan []model.ToolCheckout {
	return store.Watch(ctx, r.store, r.store.ListCheckoutsDueSoon, store.TableCheckouts)
}

func (r *ToolRepository) Tools(ctx context.Context) ([]model.Tool, error) {
	return r.store.ListTools(ctx)
}

func (r *ToolRepository) ToolsWithCheckoutInfo(ctx context.Context) ([]model.ToolWithCheckout, error) {
	return r.store.ListToolsWithCheckoutInfo(ctx)
}

func (r *ToolRepository) CalibrationDueSoon(ctx context.Context) ([]model.Tool, error) {
	return r.store.ListCalibrationDueSoon(ctx)
}

func (r *ToolRepository) ActiveCheckouts(ctx context.Context) ([]model.ToolCheckout, error) {
	return r.store.ListActiveCheckouts(ctx)
}

func (r *ToolRepository) GetTool(ctx context.Context, id int64) (*model.Tool, error) {
	return orNotFound(r.store.GetTool(ctx, id))
}

func (r *ToolRepository) GetToolWithCheckoutInfo(ctx context.Context, id int64) (*model.ToolWithCheckout, error) {
	return orNotFound(r.store.GetToolWithCheckoutInfo(ctx, id))
}

func (r *ToolRepository) GetToolByNumber(ctx context.Context, toolNumber string) (*model.Tool, error) {
	return orNotFound(r.store.GetToolByNumber(ctx, toolNumber))
}

func (r *ToolRepository) GetToolBySerialNumber(ctx context.Context, serialNumber string) (*model.Tool, error) {
	return orNotFound(r.store.GetToolBySerialNumber(ctx, serialNumber))
}

func (r *ToolRepository) ActiveCheckoutForTool(ctx context.Context, toolID int64) (*model.ToolCheckout, error) {
	return orNotFound(r.store.GetActiveCheckoutForTool(ctx, toolID))
}

func (r *ToolRepository) CheckoutHistoryForTool(ctx context.Context, toolID int64) ([]model.ToolCheckout, error) {
	return r.store.ListCheckoutHistoryForTool(ctx, toolID)
}

// --- writes ---

// CreateTool registers a tool with the backend. Under FallbackLocal a
// rejected tool is stored with a generated id and a client reference.
func (r *ToolRepository) CreateTool(ctx context.Context, tool *model.Tool) (*model.Tool, Outcome) {
	return writeThrough(ctx, r.policy, "tool", tool, r.remote.CreateTool, r.store.UpsertTool,
		func(ctx context.Context, t *model.Tool) error {
			local := *t
			local.ID = 0
			local.ClientRef = newClientRef()
			if err := r.store.UpsertTool(ctx, &local); err != nil {
				return err
			}
			*t = local
			return nil
		})
}

func (r *ToolRepository) UpdateTool(ctx context.Context, tool *model.Tool) (*model.Tool, Outcome) {
	return writeThrough(ctx, r.policy, "tool", tool, r.remote.UpdateTool, r.store.UpsertTool, r.store.UpdateTool)
}

// CheckoutTool checks a tool out with the backend and records the confirmed
// checkout locally. Backend failures are returned, never stored.
func (r *ToolRepository) CheckoutTool(ctx context.Context, req remote.CheckoutRequest) (*model.ToolCheckout, error) {
	checkout, err := r.remote.CreateCheckout(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to checkout tool %d: %w", req.ToolID, remote.Classify(err))
	}

	closed, err := r.store.ApplyCheckout(ctx, checkout, req.ToolID)
	if err != nil {
		return checkout, fmt.Errorf("failed to store checkout %d: %w", checkout.ID, err)
	}
	if closed > 0 {
		log.Printf("Warning: local state for tool %d was stale; closed %d active checkout(s) superseded by checkout %d", req.ToolID, closed, checkout.ID)
	}
	return checkout, nil
}

// ReturnTool returns a checkout through the backend and closes it locally.
func (r *ToolRepository) ReturnTool(ctx context.Context, req remote.ReturnRequest) (*model.ToolCheckout, error) {
	returned, err := r.remote.ReturnTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to return checkout %d: %w", req.CheckoutID, remote.Classify(err))
	}

	if returned.ID == 0 {
		returned.ID = req.CheckoutID
	}
	if returned.ToolID == 0 {
		local, err := r.store.GetCheckout(ctx, req.CheckoutID)
		if err != nil {
			return returned, fmt.Errorf("failed to load checkout %d: %w", req.CheckoutID, err)
		}
		if local != nil {
			returned.ToolID = local.ToolID
		}
	}
	if returned.ToolID == 0 {
		log.Printf("Warning: return of checkout %d names no tool and the checkout is not stored locally; skipping local update", returned.ID)
		return returned, nil
	}
	if returned.ReturnCondition == nil {
		condition := req.Condition
		returned.ReturnCondition = &condition
	}
	if returned.ReturnNotes == nil {
		returned.ReturnNotes = req.Notes
	}

	if err := r.store.ApplyReturn(ctx, returned); err != nil {
		return returned, fmt.Errorf("failed to store return of checkout %d: %w", req.CheckoutID, err)
	}
	return returned, nil
}

// --- sync ---

func (r *ToolRepository) SyncTools(ctx context.Context) (int, error) {
	return pull(ctx, "tools", r.remote.ListTools, r.store.CountLocalOnlyTools, r.store.ReplaceTools)
}

func (r *ToolRepository) SyncCheckouts(ctx context.Context) (int, error) {
	return pull(ctx, "checkouts", r.remote.ListCheckouts, noLocalOnly, r.store.ReplaceCheckouts)
}

// --- stats ---

func (r *ToolRepository) Stats(ctx context.Context) (*ToolStats, error) {
	var stats ToolStats
	var err error
	if stats.Total, err = r.store.CountTools(ctx); err != nil {
		return nil, err
	}
	if stats.Available, err = r.store.CountToolsByStatus(ctx, model.ToolAvailable); err != nil {
		return nil, err
	}
	if stats.CheckedOut, err = r.store.CountToolsByStatus(ctx, model.ToolCheckedOut); err != nil {
		return nil, err
	}
	if stats.Maintenance, err = r.store.CountToolsByStatus(ctx, model.ToolMaintenance); err != nil {
		return nil, err
	}
	if stats.OverdueCheckouts, err = r.store.CountOverdueCheckouts(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}

// HasLocalData reports whether any tool is stored locally.
func (r *ToolRepository) HasLocalData(ctx context.Context) (bool, error) {
	n, err := r.store.CountTools(ctx)
	return n > 0, err
}

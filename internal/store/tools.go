package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"supplyline-sync/internal/model"
)

const (
	calibrationDueWindow = 30 * 24 * time.Hour
	checkoutDueWindow    = 3 * 24 * time.Hour
	expiryWindow         = 30 * 24 * time.Hour
)

// ToolStore holds the local tool table operations and tool-centric joins.
type ToolStore interface {
	GetTool(ctx context.Context, id int64) (*model.Tool, error)
	GetToolByNumber(ctx context.Context, toolNumber string) (*model.Tool, error)
	GetToolBySerialNumber(ctx context.Context, serialNumber string) (*model.Tool, error)
	ListTools(ctx context.Context) ([]model.Tool, error)
	ListToolsByStatus(ctx context.Context, status model.ToolStatus) ([]model.Tool, error)
	ListToolsByCategory(ctx context.Context, category string) ([]model.Tool, error)
	ListToolsByLocation(ctx context.Context, location string) ([]model.Tool, error)
	SearchTools(ctx context.Context, query string) ([]model.Tool, error)
	ListCalibrationDueSoon(ctx context.Context) ([]model.Tool, error)
	ListOverdueCalibration(ctx context.Context) ([]model.Tool, error)
	ListToolsWithCheckoutInfo(ctx context.Context) ([]model.ToolWithCheckout, error)
	GetToolWithCheckoutInfo(ctx context.Context, id int64) (*model.ToolWithCheckout, error)
	ListMostUsedTools(ctx context.Context, limit int) ([]model.ToolUsage, error)
	ListOverdueTools(ctx context.Context) ([]model.Tool, error)
	UpsertTool(ctx context.Context, tool *model.Tool) error
	UpsertTools(ctx context.Context, tools []model.Tool) error
	UpdateTool(ctx context.Context, tool *model.Tool) error
	UpdateToolStatus(ctx context.Context, id int64, status model.ToolStatus) error
	DeleteTool(ctx context.Context, id int64) error
	DeleteAllTools(ctx context.Context) error
	ReplaceTools(ctx context.Context, tools []model.Tool) error
	CountTools(ctx context.Context) (int, error)
	CountToolsByStatus(ctx context.Context, status model.ToolStatus) (int, error)
	CountLocalOnlyTools(ctx context.Context) (int, error)
}

func (s *gormStore) tools(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&model.Tool{})
}

func (s *gormStore) GetTool(ctx context.Context, id int64) (*model.Tool, error) {
	return first[model.Tool](s.tools(ctx).Where("id = ?", id))
}

func (s *gormStore) GetToolByNumber(ctx context.Context, toolNumber string) (*model.Tool, error) {
	return first[model.Tool](s.tools(ctx).Where("tool_number = ?", toolNumber))
}

func (s *gormStore) GetToolBySerialNumber(ctx context.Context, serialNumber string) (*model.Tool, error) {
	return first[model.Tool](s.tools(ctx).Where("serial_number = ?", serialNumber))
}

func (s *gormStore) ListTools(ctx context.Context) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).Order("tool_number ASC"))
}

func (s *gormStore) ListToolsByStatus(ctx context.Context, status model.ToolStatus) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).Where("status = ?", status).Order("tool_number ASC"))
}

func (s *gormStore) ListToolsByCategory(ctx context.Context, category string) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).Where("category = ?", category).Order("tool_number ASC"))
}

func (s *gormStore) ListToolsByLocation(ctx context.Context, location string) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).Where("location LIKE ?", likePattern(location)).Order("tool_number ASC"))
}

// SearchTools matches the query against tool number, serial number and
// description, ignoring case.
func (s *gormStore) SearchTools(ctx context.Context, query string) ([]model.Tool, error) {
	p := likePattern(strings.ToLower(query))
	return find[model.Tool](s.tools(ctx).
		Where("LOWER(tool_number) LIKE ? OR LOWER(serial_number) LIKE ? OR LOWER(description) LIKE ?", p, p, p).
		Order("tool_number ASC"))
}

// ListCalibrationDueSoon returns calibrated tools due within 30 days,
// including those already overdue.
func (s *gormStore) ListCalibrationDueSoon(ctx context.Context) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).
		Where("requires_calibration = ? AND calibration_due_date IS NOT NULL AND calibration_due_date <= ?",
			true, s.Now().Add(calibrationDueWindow)).
		Order("calibration_due_date ASC"))
}

func (s *gormStore) ListOverdueCalibration(ctx context.Context) ([]model.Tool, error) {
	return find[model.Tool](s.tools(ctx).
		Where("requires_calibration = ? AND calibration_due_date IS NOT NULL AND calibration_due_date < ?", true, s.Now()).
		Order("calibration_due_date ASC"))
}

func (s *gormStore) toolsWithCheckout(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("tools").
		Select("tools.*, tc.id AS checkout_id, tc.user_id AS checked_out_to, u.name AS checked_out_to_name, " +
			"tc.checkout_date AS checkout_date, tc.expected_return_date AS expected_return_date").
		Joins("LEFT JOIN tool_checkouts tc ON tc.tool_id = tools.id AND tc.is_active = ?", true).
		Joins("LEFT JOIN users u ON u.id = tc.user_id")
}

// ListToolsWithCheckoutInfo joins every tool with its active checkout and the
// name of the user holding it.
func (s *gormStore) ListToolsWithCheckoutInfo(ctx context.Context) ([]model.ToolWithCheckout, error) {
	rows := make([]model.ToolWithCheckout, 0)
	err := s.toolsWithCheckout(ctx).Order("tools.tool_number ASC").Scan(&rows).Error
	return rows, err
}

func (s *gormStore) GetToolWithCheckoutInfo(ctx context.Context, id int64) (*model.ToolWithCheckout, error) {
	var rows []model.ToolWithCheckout
	if err := s.toolsWithCheckout(ctx).Where("tools.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (s *gormStore) ListMostUsedTools(ctx context.Context, limit int) ([]model.ToolUsage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows := make([]model.ToolUsage, 0)
	err := s.db.WithContext(ctx).Table("tools").
		Select("tools.*, COUNT(tc.id) AS checkout_count").
		Joins("LEFT JOIN tool_checkouts tc ON tc.tool_id = tools.id").
		Group("tools.id").
		Order("checkout_count DESC, tools.tool_number ASC").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// ListOverdueTools returns tools whose active checkout is past its expected return.
func (s *gormStore) ListOverdueTools(ctx context.Context) ([]model.Tool, error) {
	overdue := s.db.WithContext(ctx).Model(&model.ToolCheckout{}).
		Select("tool_id").
		Where("is_active = ? AND expected_return_date < ?", true, s.Now())
	return find[model.Tool](s.tools(ctx).Where("id IN (?)", overdue).Order("tool_number ASC"))
}

func (s *gormStore) UpsertTool(ctx context.Context, tool *model.Tool) error {
	if err := upsertOne(s.db.WithContext(ctx), tool); err != nil {
		return err
	}
	s.hub.publish(TableTools)
	return nil
}

func (s *gormStore) UpsertTools(ctx context.Context, tools []model.Tool) error {
	if err := upsertAll(ctx, s.db, tools); err != nil {
		return err
	}
	s.hub.publish(TableTools)
	return nil
}

func (s *gormStore) UpdateTool(ctx context.Context, tool *model.Tool) error {
	if tool.ID == 0 {
		return nil
	}
	changed, err := update(ctx, s.db, tool)
	if err != nil {
		return err
	}
	if changed {
		s.hub.publish(TableTools)
	}
	return nil
}

func (s *gormStore) UpdateToolStatus(ctx context.Context, id int64, status model.ToolStatus) error {
	res := s.tools(ctx).Where("id = ?", id).Updates(map[string]any{"status": status, "updated_at": s.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		s.hub.publish(TableTools)
	}
	return nil
}

func (s *gormStore) DeleteTool(ctx context.Context, id int64) error {
	if err := s.db.WithContext(ctx).Delete(&model.Tool{}, id).Error; err != nil {
		return err
	}
	s.hub.publish(TableTools)
	return nil
}

func (s *gormStore) DeleteAllTools(ctx context.Context) error {
	if err := deleteAll[model.Tool](ctx, s.db); err != nil {
		return err
	}
	s.hub.publish(TableTools)
	return nil
}

func (s *gormStore) ReplaceTools(ctx context.Context, tools []model.Tool) error {
	if err := replaceAll(ctx, s.db, tools); err != nil {
		return err
	}
	s.hub.publish(TableTools)
	return nil
}

func (s *gormStore) CountTools(ctx context.Context) (int, error) {
	return count(s.tools(ctx))
}

func (s *gormStore) CountToolsByStatus(ctx context.Context, status model.ToolStatus) (int, error) {
	return count(s.tools(ctx).Where("status = ?", status))
}

func (s *gormStore) CountLocalOnlyTools(ctx context.Context) (int, error) {
	return count(s.tools(ctx).Where("client_ref <> ''"))
}

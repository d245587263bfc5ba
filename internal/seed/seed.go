// Package seed fills an empty local store with sample data.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"supplyline-sync/internal/model"
	"supplyline-sync/internal/store"
)

// Result reports how many rows of each kind were inserted.
type Result struct {
	Tools     int
	Users     int
	Chemicals int
}

// Run inserts the sample tools, users and chemicals into every table that is
// still empty. Tables that already hold rows are left alone.
func Run(ctx context.Context, s store.Store) (*Result, error) {
	now := s.Now()
	var res Result

	n, err := s.CountTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tools: %w", err)
	}
	if n == 0 {
		tools := sampleTools(now)
		if err := s.UpsertTools(ctx, tools); err != nil {
			return nil, fmt.Errorf("failed to insert sample tools: %w", err)
		}
		res.Tools = len(tools)
	}

	if n, err = s.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if n == 0 {
		users := sampleUsers(now)
		if err := s.UpsertUsers(ctx, users); err != nil {
			return nil, fmt.Errorf("failed to insert sample users: %w", err)
		}
		res.Users = len(users)
	}

	if n, err = s.CountChemicals(ctx); err != nil {
		return nil, fmt.Errorf("failed to count chemicals: %w", err)
	}
	if n == 0 {
		chemicals := sampleChemicals(now)
		if err := s.UpsertChemicals(ctx, chemicals); err != nil {
			return nil, fmt.Errorf("failed to insert sample chemicals: %w", err)
		}
		res.Chemicals = len(chemicals)
	}

	if res.Tools+res.Users+res.Chemicals > 0 {
		log.Printf("Seeded sample data: %d tools, %d users, %d chemicals", res.Tools, res.Users, res.Chemicals)
	}
	return &res, nil
}

func sampleTools(now time.Time) []model.Tool {
	day := func(n int) *time.Time {
		t := now.AddDate(0, 0, n)
		return &t
	}
	interval := func(n int) *int { return &n }
	str := func(s string) *string { return &s }

	tools := []model.Tool{
		{ID: 1, ToolNumber: "HT001", SerialNumber: "SN123456", Description: "Torque Wrench 1/2\" Drive", Category: "General",
			Location: "Tool Crib A - Shelf 1", Status: model.ToolAvailable, Condition: str("Good"), Notes: str("Calibrated monthly"),
			RequiresCalibration: true, CalibrationDueDate: day(30), CalibrationIntervalDays: interval(90)},
		{ID: 2, ToolNumber: "HT002", SerialNumber: "SN123457", Description: "Drill Set Complete with Bits", Category: "General",
			Location: "Tool Crib A - Shelf 2", Status: model.ToolCheckedOut, Condition: str("Good"), Notes: str("Complete set with case")},
		{ID: 3, ToolNumber: "CL001", SerialNumber: "SN123458", Description: "Hydraulic Jack 20 Ton", Category: "CL415",
			Location: "Hangar 1 - Bay A", Status: model.ToolAvailable, Condition: str("Excellent"), Notes: str("CL415 specific equipment"),
			RequiresCalibration: true, CalibrationDueDate: day(60), CalibrationIntervalDays: interval(180)},
		{ID: 4, ToolNumber: "ENG001", SerialNumber: "SN123459", Description: "Engine Hoist 2000 lbs", Category: "Engine",
			Location: "Engine Shop - Bay 1", Status: model.ToolMaintenance, Condition: str("Fair"), Notes: str("Scheduled maintenance in progress")},
		{ID: 5, ToolNumber: "SM001", SerialNumber: "SN123460", Description: "Pneumatic Rivet Gun", Category: "Sheetmetal",
			Location: "Sheetmetal Shop - Station 3", Status: model.ToolAvailable, Condition: str("Good"), Notes: str("Recently serviced")},
		{ID: 6, ToolNumber: "HT003", SerialNumber: "SN123461", Description: "Digital Multimeter", Category: "General",
			Location: "Electronics Lab - Bench 2", Status: model.ToolAvailable, Condition: str("Excellent"), Notes: str("High precision instrument"),
			RequiresCalibration: true, CalibrationDueDate: day(45), CalibrationIntervalDays: interval(365)},
		{ID: 7, ToolNumber: "RJ001", SerialNumber: "SN123462", Description: "Avionics Test Set", Category: "RJ85",
			Location: "Avionics Shop - Test Station 1", Status: model.ToolCheckedOut, Condition: str("Good"), Notes: str("RJ85 specific test equipment"),
			RequiresCalibration: true, CalibrationDueDate: day(-5), CalibrationIntervalDays: interval(180)},
		{ID: 8, ToolNumber: "Q001", SerialNumber: "SN123463", Description: "Borescope Inspection Kit", Category: "Q400",
			Location: "NDT Lab - Cabinet A", Status: model.ToolAvailable, Condition: str("Good"), Notes: str("Q400 engine inspection kit")},
		{ID: 9, ToolNumber: "CNC001", SerialNumber: "SN123464", Description: "Precision Measuring Set", Category: "CNC",
			Location: "Machine Shop - Tool Cabinet", Status: model.ToolAvailable, Condition: str("Excellent"), Notes: str("High precision measurement tools"),
			RequiresCalibration: true, CalibrationDueDate: day(15), CalibrationIntervalDays: interval(90)},
		{ID: 10, ToolNumber: "HT004", SerialNumber: "SN123465", Description: "Impact Wrench Set", Category: "General",
			Location: "Tool Crib B - Shelf 1", Status: model.ToolAvailable, Condition: str("Good"), Notes: str("Various socket sizes included")},
		{ID: 11, ToolNumber: "CL002", SerialNumber: "SN123466", Description: "Wing Jack CL415", Category: "CL415",
			Location: "Hangar 1 - Bay B", Status: model.ToolAvailable, Condition: str("Good"), Notes: str("CL415 wing support equipment"),
			RequiresCalibration: true, CalibrationDueDate: day(90), CalibrationIntervalDays: interval(365)},
		{ID: 12, ToolNumber: "ENG002", SerialNumber: "SN123467", Description: "Compression Tester", Category: "Engine",
			Location: "Engine Shop - Bay 2", Status: model.ToolAvailable, Condition: str("Excellent"), Notes: str("Engine compression testing kit"),
			RequiresCalibration: true, CalibrationDueDate: day(120), CalibrationIntervalDays: interval(180)},
	}
	for i := range tools {
		tools[i].CreatedAt = &now
		tools[i].UpdatedAt = &now
	}
	return tools
}

func sampleUsers(now time.Time) []model.User {
	users := []model.User{
		{ID: 1, EmployeeNumber: "EMP001", Name: "John Smith", Department: model.DepartmentMaintenance},
		{ID: 2, EmployeeNumber: "EMP002", Name: "Sarah Johnson", Department: "Avionics"},
		{ID: 3, EmployeeNumber: "EMP003", Name: "Mike Wilson", Department: "Engine Shop", IsAdmin: true},
		{ID: 4, EmployeeNumber: "EMP004", Name: "Lisa Brown", Department: "Sheetmetal"},
		{ID: 5, EmployeeNumber: "EMP005", Name: "David Lee", Department: "Quality Control"},
	}
	for i := range users {
		users[i].IsActive = true
		users[i].CreatedAt = &now
		users[i].LastLogin = &now
	}
	return users
}

func sampleChemicals(now time.Time) []model.Chemical {
	chemicals := []model.Chemical{
		{ID: 1, PartNumber: "CH-1001", LotNumber: "LOT2401", Description: "Polysulfide Sealant Class B", Manufacturer: "PPG Aerospace",
			Category: "Sealant", Location: "Chem Cabinet 1", Quantity: 24, Unit: "cartridge", MinimumStockLevel: 6,
			ExpirationDate: now.AddDate(0, 8, 0), Status: model.ChemicalGood},
		{ID: 2, PartNumber: "CH-1002", LotNumber: "LOT2402", Description: "Epoxy Primer", Manufacturer: "Akzo Nobel",
			Category: "Paint", Location: "Paint Shop Locker", Quantity: 3, Unit: "gallon", MinimumStockLevel: 4,
			ExpirationDate: now.AddDate(0, 4, 0), Status: model.ChemicalLowStock},
		{ID: 3, PartNumber: "CH-1003", LotNumber: "LOT2403", Description: "Corrosion Inhibiting Compound", Manufacturer: "LPS Labs",
			Category: "Lubricant", Location: "Chem Cabinet 2", Quantity: 12, Unit: "can", MinimumStockLevel: 4,
			ExpirationDate: now.AddDate(0, 0, 20), Status: model.ChemicalExpiring},
		{ID: 4, PartNumber: "CH-1004", LotNumber: "LOT2301", Description: "Hydraulic Fluid MIL-PRF-5606", Manufacturer: "Royco",
			Category: "Fluid", Location: "Hangar 1 - Fluids Rack", Quantity: 8, Unit: "quart", MinimumStockLevel: 2,
			ExpirationDate: now.AddDate(0, 0, -10), Status: model.ChemicalExpired},
	}
	for i := range chemicals {
		chemicals[i].CreatedAt = &now
		chemicals[i].UpdatedAt = &now
	}
	return chemicals
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supplyline-sync/internal/db/dbtest"
	"supplyline-sync/internal/model"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) Store {
	t.Helper()
	return NewGormStore(dbtest.New(t), WithClock(func() time.Time { return testNow }))
}

func ptr[T any](v T) *T { return &v }

func seedChemical(t *testing.T, s Store, c model.Chemical) model.Chemical {
	t.Helper()
	if c.Unit == "" {
		c.Unit = "ml"
	}
	if c.Status == "" {
		c.Status = model.ChemicalGood
	}
	if c.ExpirationDate.IsZero() {
		c.ExpirationDate = testNow.AddDate(1, 0, 0)
	}
	require.NoError(t, s.UpsertChemical(context.Background(), &c))
	return c
}

func seedTool(t *testing.T, s Store, number string) model.Tool {
	t.Helper()
	tool := model.Tool{
		ToolNumber:   number,
		SerialNumber: "SN-" + number,
		Description:  "Tool " + number,
		Category:     "General",
		Location:     "Crib A",
		Status:       model.ToolAvailable,
	}
	require.NoError(t, s.UpsertTool(context.Background(), &tool))
	return tool
}

func TestIssueChemical_Scenario(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	chem := seedChemical(t, s, model.Chemical{PartNumber: "PN001", LotNumber: "LOT001", Quantity: 100, MinimumStockLevel: 10})

	ok, err := s.IssueChemical(ctx, chem.ID, 30, 1, "Hangar 1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.GetChemical(ctx, chem.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Quantity)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, got.UpdatedAt.Equal(testNow))

	ok, err = s.IssueChemical(ctx, chem.ID, 1000, 1, "Hangar 1")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err = s.GetChemical(ctx, chem.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Quantity, "a rejected issuance must not change stock")

	issuances, err := s.ListIssuancesForChemical(ctx, chem.ID)
	require.NoError(t, err)
	require.Len(t, issuances, 1)
	assert.Equal(t, 30.0, issuances[0].QuantityIssued)
	assert.Equal(t, IssuedBySystem, issuances[0].IssuedBy)
}

func TestIssueChemical_Rejections(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	chem := seedChemical(t, s, model.Chemical{PartNumber: "PN002", LotNumber: "L1", Quantity: 5})

	testCases := []struct {
		name       string
		chemicalID int64
		quantity   float64
	}{
		{"zero quantity", chem.ID, 0},
		{"negative quantity", chem.ID, -2},
		{"unknown chemical", chem.ID + 100, 1},
		{"more than stock", chem.ID, 5.5},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := s.IssueChemical(ctx, tc.chemicalID, tc.quantity, 1, "Bay")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}

	n, err := s.CountIssuances(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err := s.IssueChemical(ctx, chem.ID, 5, 1, "Bay")
	require.NoError(t, err)
	assert.True(t, ok, "issuing the entire stock is allowed")
	got, _ := s.GetChemical(ctx, chem.ID)
	assert.Equal(t, 0.0, got.Quantity)
}

func TestListActiveChemicals_ExcludesArchivedAndSorts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedChemical(t, s, model.Chemical{PartNumber: "PN-C", LotNumber: "L1", Quantity: 1})
	seedChemical(t, s, model.Chemical{PartNumber: "PN-A", LotNumber: "L1", Quantity: 1})
	seedChemical(t, s, model.Chemical{PartNumber: "PN-B", LotNumber: "L1", Quantity: 1, IsArchived: true, Status: model.ChemicalArchived})

	active, err := s.ListActiveChemicals(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "PN-A", active[0].PartNumber)
	assert.Equal(t, "PN-C", active[1].PartNumber)

	archived, err := s.ListArchivedChemicals(ctx)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "PN-B", archived[0].PartNumber)
}

func TestListLowStockChemicals_Boundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedChemical(t, s, model.Chemical{PartNumber: "AT", LotNumber: "1", Quantity: 10, MinimumStockLevel: 10})
	seedChemical(t, s, model.Chemical{PartNumber: "BELOW", LotNumber: "1", Quantity: 2, MinimumStockLevel: 10})
	seedChemical(t, s, model.Chemical{PartNumber: "ABOVE", LotNumber: "1", Quantity: 11, MinimumStockLevel: 10})
	seedChemical(t, s, model.Chemical{PartNumber: "GONE", LotNumber: "1", Quantity: 0, MinimumStockLevel: 10, IsArchived: true})

	low, err := s.ListLowStockChemicals(ctx)
	require.NoError(t, err)
	var parts []string
	for _, c := range low {
		parts = append(parts, c.PartNumber)
	}
	assert.Equal(t, []string{"AT", "BELOW"}, parts)

	n, err := s.CountLowStockChemicals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestExpiryFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedChemical(t, s, model.Chemical{PartNumber: "OLD", LotNumber: "1", ExpirationDate: testNow.Add(-24 * time.Hour)})
	seedChemical(t, s, model.Chemical{PartNumber: "SOON", LotNumber: "1", ExpirationDate: testNow.Add(10 * 24 * time.Hour)})
	seedChemical(t, s, model.Chemical{PartNumber: "LATER", LotNumber: "1", ExpirationDate: testNow.Add(90 * 24 * time.Hour)})

	expiring, err := s.ListExpiringChemicals(ctx)
	require.NoError(t, err)
	require.Len(t, expiring, 2)
	assert.Equal(t, "OLD", expiring[0].PartNumber)
	assert.Equal(t, "SOON", expiring[1].PartNumber)

	expired, err := s.ListExpiredChemicals(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "OLD", expired[0].PartNumber)
}

func TestCheckoutAndReturnTool(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tool := seedTool(t, s, "HT001")
	user := model.User{EmployeeNumber: "EMP001", Name: "John Doe", Department: "Maintenance", IsActive: true}
	require.NoError(t, s.UpsertUser(ctx, &user))

	checkout := model.ToolCheckout{
		UserID:             user.ID,
		CheckoutDate:       testNow,
		ExpectedReturnDate: testNow.Add(7 * 24 * time.Hour),
		CheckedOutBy:       "John Doe",
	}
	require.NoError(t, s.CheckoutTool(ctx, &checkout, tool.ID))
	require.NotZero(t, checkout.ID)

	got, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ToolCheckedOut, got.Status)

	active, err := s.GetActiveCheckoutForTool(ctx, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, checkout.ID, active.ID)

	info, err := s.GetToolWithCheckoutInfo(ctx, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, info.CheckedOutToName)
	assert.Equal(t, "John Doe", *info.CheckedOutToName)

	t.Run("second checkout is refused", func(t *testing.T) {
		again := model.ToolCheckout{UserID: user.ID, CheckoutDate: testNow, ExpectedReturnDate: testNow, CheckedOutBy: "x"}
		err := s.CheckoutTool(ctx, &again, tool.ID)
		assert.ErrorIs(t, err, ErrToolAlreadyCheckedOut)
		n, _ := s.CountActiveCheckouts(ctx)
		assert.Equal(t, 1, n)
	})

	require.NoError(t, s.ReturnTool(ctx, checkout.ID, tool.ID, "Good", ptr("cleaned")))

	got, err = s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ToolAvailable, got.Status)

	returned, err := s.GetCheckout(ctx, checkout.ID)
	require.NoError(t, err)
	assert.False(t, returned.IsActive)
	require.NotNil(t, returned.ActualReturnDate)
	assert.True(t, returned.ActualReturnDate.Equal(testNow))
	assert.Equal(t, "Good", *returned.ReturnCondition)
	assert.Equal(t, "cleaned", *returned.ReturnNotes)

	info, err = s.GetToolWithCheckoutInfo(ctx, tool.ID)
	require.NoError(t, err)
	assert.Nil(t, info.CheckoutID)
}

func TestCheckoutTool_UnknownTool(t *testing.T) {
	s := newTestStore(t)
	checkout := model.ToolCheckout{UserID: 1, CheckoutDate: testNow, ExpectedReturnDate: testNow, CheckedOutBy: "x"}
	err := s.CheckoutTool(context.Background(), &checkout, 42)
	assert.ErrorIs(t, err, ErrNotFound)
	n, _ := s.CountCheckouts(context.Background())
	assert.Zero(t, n)
}

func TestApplyCheckout_ClosesOtherActiveCheckouts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tool := seedTool(t, s, "HT050")
	require.NoError(t, s.UpsertCheckout(ctx, &model.ToolCheckout{
		ID: 1, ToolID: tool.ID, UserID: 1, CheckoutDate: testNow.Add(-time.Hour),
		ExpectedReturnDate: testNow, CheckedOutBy: "John Smith", IsActive: true,
	}))

	confirmed := model.ToolCheckout{ID: 2, UserID: 2, CheckoutDate: testNow, ExpectedReturnDate: testNow.Add(time.Hour), CheckedOutBy: "Jane Smith"}
	closed, err := s.ApplyCheckout(ctx, &confirmed, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	active, err := s.GetActiveCheckoutForTool(ctx, tool.ID)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, int64(2), active.ID)
	n, err := s.CountActiveCheckouts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.GetTool(ctx, tool.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ToolCheckedOut, got.Status)

	closed, err = s.ApplyCheckout(ctx, &confirmed, tool.ID)
	require.NoError(t, err)
	assert.Zero(t, closed, "re-applying the same checkout closes nothing")
}

func TestReturnTool_MissingCheckoutIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	tool := seedTool(t, s, "HT002")
	require.NoError(t, s.UpdateToolStatus(ctx, tool.ID, model.ToolMaintenance))

	require.NoError(t, s.ReturnTool(ctx, 999, tool.ID, "Good", nil))

	got, _ := s.GetTool(ctx, tool.ID)
	assert.Equal(t, model.ToolMaintenance, got.Status)
}

func TestToolRoundTripAndIdempotentUpsert(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	due := testNow.Add(48 * time.Hour)
	created := testNow.Add(-time.Hour)
	tool := model.Tool{
		ID:                      7,
		ToolNumber:              "HT007",
		SerialNumber:            "SN007",
		Description:             "Torque wrench",
		Category:                "CL415",
		Location:                "Crib B",
		Status:                  model.ToolAvailable,
		Condition:               ptr("Good"),
		Notes:                   ptr("calibrated"),
		CreatedAt:               &created,
		RequiresCalibration:     true,
		CalibrationDueDate:      &due,
		CalibrationIntervalDays: ptr(90),
	}
	require.NoError(t, s.UpsertTool(ctx, &tool))
	require.NoError(t, s.UpsertTool(ctx, &tool))

	got, err := s.GetTool(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, tool, *got)

	n, err := s.CountTools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	missing, err := s.GetTool(ctx, 8)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byNumber, err := s.GetToolByNumber(ctx, "HT007")
	require.NoError(t, err)
	assert.Equal(t, int64(7), byNumber.ID)
}

func TestUpsert_ReplacesNaturalKeyConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("user with a new id", func(t *testing.T) {
		require.NoError(t, s.UpsertUser(ctx, &model.User{ID: 7, EmployeeNumber: "EMP001", Name: "Local John", Department: "Maintenance", IsActive: true}))
		require.NoError(t, s.UpsertUser(ctx, &model.User{ID: 1, EmployeeNumber: "EMP001", Name: "John Smith", Department: "Maintenance", IsActive: true}))

		got, err := s.GetUserByEmployeeNumber(ctx, "EMP001")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(1), got.ID)
		assert.Equal(t, "John Smith", got.Name)

		stale, err := s.GetUser(ctx, 7)
		require.NoError(t, err)
		assert.Nil(t, stale)
	})

	t.Run("local-only tool confirmed by the backend", func(t *testing.T) {
		local := model.Tool{ToolNumber: "HT009", SerialNumber: "SN-HT009", Description: "Rivet gun", Category: "General", Location: "Crib A", Status: model.ToolAvailable, ClientRef: "0b7f8c1e-3d4a-4f5b-9c6d-7e8f9a0b1c2d"}
		require.NoError(t, s.UpsertTool(ctx, &local))
		require.NotZero(t, local.ID)

		confirmed := local
		confirmed.ID = 900
		confirmed.ClientRef = ""
		require.NoError(t, s.UpsertTool(ctx, &confirmed))

		got, err := s.GetToolByNumber(ctx, "HT009")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(900), got.ID)

		localOnly, err := s.CountLocalOnlyTools(ctx)
		require.NoError(t, err)
		assert.Zero(t, localOnly)
	})

	t.Run("tool colliding on serial number only", func(t *testing.T) {
		require.NoError(t, s.UpsertTool(ctx, &model.Tool{ID: 30, ToolNumber: "HT030", SerialNumber: "SN-SHARED", Description: "Old", Category: "General", Location: "Crib A", Status: model.ToolAvailable}))
		require.NoError(t, s.UpsertTool(ctx, &model.Tool{ID: 31, ToolNumber: "HT031", SerialNumber: "SN-SHARED", Description: "New", Category: "General", Location: "Crib A", Status: model.ToolAvailable}))

		old, err := s.GetTool(ctx, 30)
		require.NoError(t, err)
		assert.Nil(t, old)
		got, err := s.GetToolBySerialNumber(ctx, "SN-SHARED")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "HT031", got.ToolNumber)
	})

	t.Run("chemical with the same part and lot", func(t *testing.T) {
		seedChemical(t, s, model.Chemical{ID: 40, PartNumber: "PN040", LotNumber: "LOT1", Quantity: 5})
		seedChemical(t, s, model.Chemical{ID: 41, PartNumber: "PN040", LotNumber: "LOT1", Quantity: 8})
		seedChemical(t, s, model.Chemical{ID: 42, PartNumber: "PN040", LotNumber: "LOT2", Quantity: 3})

		got, err := s.GetChemicalByPartAndLot(ctx, "PN040", "LOT1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, int64(41), got.ID)
		assert.Equal(t, 8.0, got.Quantity)

		other, err := s.GetChemical(ctx, 42)
		require.NoError(t, err)
		assert.NotNil(t, other, "a different lot is not a conflict")
	})
}

func TestUpdate_MissingRowIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ghost := model.Tool{ID: 55, ToolNumber: "X", SerialNumber: "Y", Status: model.ToolAvailable}
	require.NoError(t, s.UpdateTool(ctx, &ghost))

	n, err := s.CountTools(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCalibrationFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	add := func(number string, requires bool, due *time.Time) {
		tool := model.Tool{ToolNumber: number, SerialNumber: "S" + number, Status: model.ToolAvailable,
			RequiresCalibration: requires, CalibrationDueDate: due}
		require.NoError(t, s.UpsertTool(ctx, &tool))
	}
	add("OVERDUE", true, ptr(testNow.Add(-time.Hour)))
	add("DUE", true, ptr(testNow.Add(20*24*time.Hour)))
	add("FAR", true, ptr(testNow.Add(60*24*time.Hour)))
	add("NOCAL", false, ptr(testNow.Add(-time.Hour)))

	soon, err := s.ListCalibrationDueSoon(ctx)
	require.NoError(t, err)
	require.Len(t, soon, 2)
	assert.Equal(t, "OVERDUE", soon[0].ToolNumber)
	assert.Equal(t, "DUE", soon[1].ToolNumber)

	overdue, err := s.ListOverdueCalibration(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "OVERDUE", overdue[0].ToolNumber)
}

func TestChemicalWithUsage(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	chem := seedChemical(t, s, model.Chemical{PartNumber: "PN9", LotNumber: "L", Quantity: 50, MinimumStockLevel: 40})

	ok, err := s.IssueChemical(ctx, chem.ID, 5, 1, "Bay")
	require.NoError(t, err)
	require.True(t, ok)

	usage, err := s.GetChemicalWithUsage(ctx, chem.ID)
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, 5.0, usage.TotalIssued)
	assert.Equal(t, 45.0, usage.Quantity)
	assert.Equal(t, 40.0, usage.RemainingQuantity)

	critical, err := s.ListCriticalStockChemicals(ctx)
	require.NoError(t, err)
	require.Len(t, critical, 1)
	assert.Equal(t, "PN9", critical[0].PartNumber)

	total, err := s.TotalIssuedForChemical(ctx, chem.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, total)
}

func TestReplaceTools(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seedTool(t, s, "LOCAL1")

	remote := []model.Tool{
		{ID: 10, ToolNumber: "R1", SerialNumber: "RS1", Status: model.ToolAvailable},
		{ID: 11, ToolNumber: "R2", SerialNumber: "RS2", Status: model.ToolRetired},
	}
	require.NoError(t, s.ReplaceTools(ctx, remote))

	tools, err := s.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "R1", tools[0].ToolNumber)
	assert.Equal(t, "R2", tools[1].ToolNumber)
}

func TestUsersQueries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	users := []model.User{
		{EmployeeNumber: "EMP002", Name: "Zed", Department: model.DepartmentMaterials, IsActive: true},
		{EmployeeNumber: "EMP001", Name: "Amy", Department: model.DepartmentMaintenance, IsActive: true},
		{EmployeeNumber: "EMP003", Name: "Bob", Department: model.DepartmentMaintenance, IsActive: false},
	}
	require.NoError(t, s.UpsertUsers(ctx, users))
	assert.NotZero(t, users[0].ID, "batch upsert should fill generated ids")

	active, err := s.ListActiveUsers(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Amy", active[0].Name)

	u, err := s.GetUserByEmployeeNumber(ctx, "EMP003")
	require.NoError(t, err)
	assert.Equal(t, "Bob", u.Name)

	n, err := s.CountActiveUsersByDepartment(ctx, model.DepartmentMaintenance)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, s.UpdateLastLogin(ctx, u.ID, testNow))
	u, _ = s.GetUser(ctx, u.ID)
	require.NotNil(t, u.LastLogin)
	assert.True(t, u.LastLogin.Equal(testNow))
}

func TestWatch_EmitsOnCommit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := newTestStore(t)

	updates := Watch(ctx, s, s.ListTools, TableTools)

	receive := func() []model.Tool {
		select {
		case tools := <-updates:
			return tools
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for snapshot")
			return nil
		}
	}

	assert.Empty(t, receive(), "initial snapshot should be empty")

	seedTool(t, s, "HT100")
	snapshot := receive()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "HT100", snapshot[0].ToolNumber)

	// Writes to an unrelated table do not produce a snapshot.
	seedChemical(t, s, model.Chemical{PartNumber: "P", LotNumber: "L"})
	seedTool(t, s, "HT101")
	snapshot = receive()
	assert.Len(t, snapshot, 2)

	cancel()
	for range updates {
	}
}

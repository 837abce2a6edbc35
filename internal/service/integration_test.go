//go:build integration

package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("TEST_DB_HOST", "localhost"),
		getEnv("TEST_DB_PORT", "5432"),
		getEnv("TEST_DB_USER", "postgres"),
		getEnv("TEST_DB_PASSWORD", "postgres"),
		getEnv("TEST_DB_NAME", "parking_test_db"),
	)

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatalf("failed to connect to test database: %v", err)
	}

	// Drop and recreate tables for clean state
	testDB.Exec("DROP TABLE IF EXISTS slot_requests")
	testDB.Exec("DROP TABLE IF EXISTS parking_slots")
	testDB.Exec("DROP TABLE IF EXISTS vehicles")
	testDB.Exec("DROP TABLE IF EXISTS audit_logs")
	testDB.Exec("DROP TABLE IF EXISTS users")

	if err := testDB.AutoMigrate(
		&model.User{},
		&model.Vehicle{},
		&model.ParkingSlot{},
		&model.SlotRequest{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("failed to auto-migrate test database: %v", err)
	}

	code := m.Run()
	os.Exit(code)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cleanTables() {
	testDB.Exec("DELETE FROM slot_requests")
	testDB.Exec("DELETE FROM parking_slots")
	testDB.Exec("DELETE FROM vehicles")
	testDB.Exec("DELETE FROM audit_logs")
	testDB.Exec("DELETE FROM users")
}

type integrationEnv struct {
	slots    SlotService
	requests SlotRequestService
	admin    model.User
}

func newIntegrationEnv(t *testing.T) *integrationEnv {
	t.Helper()
	cleanTables()

	txManager := repository.NewTransactionManager(testDB)
	slotRepo := repository.NewSlotRepository(testDB)
	requestRepo := repository.NewSlotRequestRepository(testDB)
	vehicleRepo := repository.NewVehicleRepository(testDB)
	auditRepo := repository.NewAuditRepository(testDB)
	gen := NewSlotNumberGenerator(slotRepo)

	slots := NewSlotService(slotRepo, requestRepo, auditRepo, txManager, gen, nil)
	requests := NewSlotRequestService(requestRepo, slotRepo, vehicleRepo, auditRepo, txManager, slots, nil, nil)

	admin := model.User{Name: "Admin", Email: "admin@example.com", Password: "x", Role: model.RoleAdmin}
	require.NoError(t, testDB.Create(&admin).Error)

	return &integrationEnv{slots: slots, requests: requests, admin: admin}
}

func (e *integrationEnv) createUserWithCar(t *testing.T, n int) (model.User, model.Vehicle) {
	t.Helper()
	user := model.User{
		Name:     fmt.Sprintf("User %d", n),
		Email:    fmt.Sprintf("user%d@example.com", n),
		Password: "x",
		Role:     model.RoleUser,
	}
	require.NoError(t, testDB.Create(&user).Error)

	vehicle := model.Vehicle{
		UserID:      user.ID,
		PlateNumber: fmt.Sprintf("51A-%05d", n),
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
	}
	require.NoError(t, testDB.Create(&vehicle).Error)
	return user, vehicle
}

// Ten pending requests race for a single available slot: exactly one approval
// wins, the rest surface conflicts, and the slot ends up OCCUPIED once.
func TestConcurrentApprovals_ExactlyOneWinner(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	slot := model.ParkingSlot{
		SlotNumber:  "SLOT-100",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationNorth,
		Status:      model.SlotAvailable,
	}
	require.NoError(t, testDB.Create(&slot).Error)

	const racers = 10
	requestIDs := make([]string, racers)
	for i := 0; i < racers; i++ {
		user, vehicle := env.createUserWithCar(t, i)
		req := model.SlotRequest{UserID: user.ID, VehicleID: vehicle.ID, Status: model.RequestPending}
		require.NoError(t, testDB.Create(&req).Error)
		requestIDs[i] = req.ID.String()
	}

	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.requests.ApproveRequest(ctx, requestIDs[i], env.admin.ID.String(), "")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners, "exactly one approval should win the slot")

	var approvedCount int64
	testDB.Model(&model.SlotRequest{}).Where("status = ?", model.RequestApproved).Count(&approvedCount)
	assert.Equal(t, int64(1), approvedCount)

	var reloaded model.ParkingSlot
	require.NoError(t, testDB.First(&reloaded, "id = ?", slot.ID).Error)
	assert.Equal(t, model.SlotOccupied, reloaded.Status)
}

// Two bulk creates under the same prefix run concurrently: every created slot
// number must still be unique, with collisions resolved by redrawing.
func TestConcurrentBulkCreate_UniqueNumbers(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	const perBatch = 20
	dto := BulkSlotDTO{
		Count:       perBatch,
		Prefix:      "WEST",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeSmall,
		Location:    model.LocationWest,
	}

	var wg sync.WaitGroup
	results := make([]BulkSlotResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.slots.CreateSlotsBulk(ctx, env.admin.ID.String(), dto)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, perBatch, results[0].TotalCreated)
	assert.Equal(t, perBatch, results[1].TotalCreated)

	var numbers []string
	testDB.Model(&model.ParkingSlot{}).Pluck("slot_number", &numbers)
	require.Len(t, numbers, 2*perBatch)

	seen := map[string]bool{}
	for _, n := range numbers {
		assert.False(t, seen[n], "slot number %s created twice", n)
		seen[n] = true
	}
}

// A slot with an approved assignment cannot be deleted, even when the delete
// races the approval.
func TestDeleteSlot_GuardAgainstApproved(t *testing.T) {
	env := newIntegrationEnv(t)
	ctx := context.Background()

	slot := model.ParkingSlot{
		SlotNumber:  "SLOT-200",
		VehicleType: model.VehicleTypeCar,
		Size:        model.SizeMedium,
		Location:    model.LocationSouth,
		Status:      model.SlotAvailable,
	}
	require.NoError(t, testDB.Create(&slot).Error)

	user, vehicle := env.createUserWithCar(t, 100)
	req := model.SlotRequest{UserID: user.ID, VehicleID: vehicle.ID, Status: model.RequestPending}
	require.NoError(t, testDB.Create(&req).Error)

	_, err := env.requests.ApproveRequest(ctx, req.ID.String(), env.admin.ID.String(), slot.ID.String())
	require.NoError(t, err)

	err = env.slots.DeleteSlot(ctx, env.admin.ID.String(), slot.ID.String())
	assert.ErrorIs(t, err, ErrHasActiveAssignment)
}

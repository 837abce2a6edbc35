package service

import (
	"context"
	"time"

	"parking-backend/internal/model"
	"parking-backend/internal/repository"

	"github.com/google/uuid"
)

// Func-field mocks. Unset audit/tx behavior defaults to success so tests only
// spell out what they assert on.

// --- Mock SlotRepository ---

type mockSlotRepo struct {
	createFn             func(ctx context.Context, slot *model.ParkingSlot) error
	findByIDFn           func(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error)
	findWithAssignmentFn func(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error)
	existsFn             func(ctx context.Context, slotNumber string) (bool, error)
	numbersByPrefixFn    func(ctx context.Context, prefix string) ([]string, error)
	listFn               func(ctx context.Context, filter repository.SlotFilter) ([]model.ParkingSlot, int64, error)
	findFirstAvailableFn func(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error)
	occupyFn             func(ctx context.Context, id uuid.UUID) (bool, error)
	updateFn             func(ctx context.Context, slot *model.ParkingSlot) error
	deleteFn             func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSlotRepo) Create(ctx context.Context, slot *model.ParkingSlot) error {
	return m.createFn(ctx, slot)
}
func (m *mockSlotRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockSlotRepo) FindByIDWithAssignment(ctx context.Context, id uuid.UUID) (*model.ParkingSlot, error) {
	return m.findWithAssignmentFn(ctx, id)
}
func (m *mockSlotRepo) ExistsBySlotNumber(ctx context.Context, slotNumber string) (bool, error) {
	return m.existsFn(ctx, slotNumber)
}
func (m *mockSlotRepo) NumbersByPrefix(ctx context.Context, prefix string) ([]string, error) {
	return m.numbersByPrefixFn(ctx, prefix)
}
func (m *mockSlotRepo) List(ctx context.Context, filter repository.SlotFilter) ([]model.ParkingSlot, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockSlotRepo) FindFirstAvailable(ctx context.Context, vehicleType, size string, location *string) (*model.ParkingSlot, error) {
	return m.findFirstAvailableFn(ctx, vehicleType, size, location)
}
func (m *mockSlotRepo) OccupyIfAvailable(ctx context.Context, id uuid.UUID) (bool, error) {
	return m.occupyFn(ctx, id)
}
func (m *mockSlotRepo) Update(ctx context.Context, slot *model.ParkingSlot) error {
	return m.updateFn(ctx, slot)
}
func (m *mockSlotRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- Mock SlotRequestRepository ---

type mockRequestRepo struct {
	createFn           func(ctx context.Context, req *model.SlotRequest) error
	findByIDFn         func(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error)
	findWithRelFn      func(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error)
	findPendingOwnedFn func(ctx context.Context, id, userID uuid.UUID) (*model.SlotRequest, error)
	findLatestBySlotFn func(ctx context.Context, slotID uuid.UUID) (*model.SlotRequest, error)
	countApprovedFn    func(ctx context.Context, slotID uuid.UUID) (int64, error)
	listFn             func(ctx context.Context, filter repository.RequestFilter) ([]model.SlotRequest, int64, error)
	updateFn           func(ctx context.Context, req *model.SlotRequest) error
	deleteFn           func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRequestRepo) Create(ctx context.Context, req *model.SlotRequest) error {
	return m.createFn(ctx, req)
}
func (m *mockRequestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockRequestRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.SlotRequest, error) {
	return m.findWithRelFn(ctx, id)
}
func (m *mockRequestRepo) FindPendingOwned(ctx context.Context, id, userID uuid.UUID) (*model.SlotRequest, error) {
	return m.findPendingOwnedFn(ctx, id, userID)
}
func (m *mockRequestRepo) FindLatestBySlotID(ctx context.Context, slotID uuid.UUID) (*model.SlotRequest, error) {
	return m.findLatestBySlotFn(ctx, slotID)
}
func (m *mockRequestRepo) CountApprovedBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	return m.countApprovedFn(ctx, slotID)
}
func (m *mockRequestRepo) List(ctx context.Context, filter repository.RequestFilter) ([]model.SlotRequest, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockRequestRepo) Update(ctx context.Context, req *model.SlotRequest) error {
	return m.updateFn(ctx, req)
}
func (m *mockRequestRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- Mock VehicleRepository ---

type mockVehicleRepo struct {
	createFn    func(ctx context.Context, vehicle *model.Vehicle) error
	findByIDFn  func(ctx context.Context, id uuid.UUID) (*model.Vehicle, error)
	findOwnedFn func(ctx context.Context, id, userID uuid.UUID) (*model.Vehicle, error)
	listFn      func(ctx context.Context, filter repository.VehicleFilter) ([]model.Vehicle, int64, error)
	updateFn    func(ctx context.Context, vehicle *model.Vehicle) error
	deleteFn    func(ctx context.Context, id uuid.UUID) error
}

func (m *mockVehicleRepo) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return m.createFn(ctx, vehicle)
}
func (m *mockVehicleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Vehicle, error) {
	return m.findByIDFn(ctx, id)
}
func (m *mockVehicleRepo) FindOwned(ctx context.Context, id, userID uuid.UUID) (*model.Vehicle, error) {
	return m.findOwnedFn(ctx, id, userID)
}
func (m *mockVehicleRepo) List(ctx context.Context, filter repository.VehicleFilter) ([]model.Vehicle, int64, error) {
	return m.listFn(ctx, filter)
}
func (m *mockVehicleRepo) Update(ctx context.Context, vehicle *model.Vehicle) error {
	return m.updateFn(ctx, vehicle)
}
func (m *mockVehicleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFn(ctx, id)
}

// --- Mock AuditRepository ---

type mockAuditRepo struct {
	entries []model.AuditLog
	logFn   func(ctx context.Context, entry *model.AuditLog) error
}

func (m *mockAuditRepo) Log(ctx context.Context, entry *model.AuditLog) error {
	if m.logFn != nil {
		return m.logFn(ctx, entry)
	}
	m.entries = append(m.entries, *entry)
	return nil
}
func (m *mockAuditRepo) List(ctx context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return m.entries, int64(len(m.entries)), nil
}

// --- Fake TransactionManager ---

// fakeTxManager runs the body directly; rollback semantics are covered by the
// integration tests against a real database.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- Mock ApprovalNotifier ---

type mockNotifier struct {
	calls []string
	err   error
}

func (m *mockNotifier) NotifyApproval(ctx context.Context, recipient, slotNumber, plateNumber string, approvedAt time.Time) error {
	m.calls = append(m.calls, recipient+"/"+slotNumber+"/"+plateNumber)
	return m.err
}

// internal/service/maintenance/service.go
package maintenance

import (
	"context"
	"fmt"
	"strings"

	"fleetrent-service/internal/domain/maintenance"
	"fleetrent-service/internal/domain/reservation"
	"fleetrent-service/internal/domain/vehicle"
	"fleetrent-service/internal/pkg/daterange"
	xerrors "fleetrent-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Availability is the part of the availability checker this service needs.
type Availability interface {
	LoadVehicle(ctx context.Context, vehicleID int64) (*vehicle.Vehicle, error)
	Invalidate(ctx context.Context, vehicleID int64)
}

// MaintenanceService manages out-of-service windows. Blocks never touch
// existing reservations; they only affect later availability checks.
type MaintenanceService struct {
	blocks       maintenance.Repository
	availability Availability
	logger       *zap.Logger
}

func NewMaintenanceService(blocks maintenance.Repository, availability Availability, logger *zap.Logger) *MaintenanceService {
	return &MaintenanceService{blocks: blocks, availability: availability, logger: logger}
}

// CreateBlock takes the vehicle out of service for rng.
func (s *MaintenanceService) CreateBlock(ctx context.Context, vehicleID int64, rng daterange.Range, reason string, actor reservation.Actor) (*maintenance.Block, error) {
	if !actor.IsStaff() {
		return nil, fmt.Errorf("%w: only staff can schedule maintenance", xerrors.ErrForbidden)
	}
	if !rng.Start.Before(rng.End) {
		return nil, fmt.Errorf("%w: maintenance must last at least one day", xerrors.ErrInvalidRange)
	}
	if _, err := s.availability.LoadVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	block := &maintenance.Block{
		VehicleID: vehicleID,
		StartDate: rng.Start,
		EndDate:   rng.End,
		Reason:    strings.TrimSpace(reason),
		CreatedBy: actor.ID,
	}
	if err := s.blocks.Create(ctx, block); err != nil {
		s.logger.Error("failed to create maintenance block", zap.Int64("vehicle_id", vehicleID), zap.Error(err))
		return nil, fmt.Errorf("failed to create maintenance block: %w", err)
	}

	s.availability.Invalidate(ctx, vehicleID)
	s.logger.Info("maintenance scheduled",
		zap.Int64("block_id", block.ID),
		zap.Int64("vehicle_id", vehicleID),
		zap.String("range", rng.String()),
		zap.Int64("by", actor.ID),
	)
	return block, nil
}

func (s *MaintenanceService) ListBlocks(ctx context.Context, vehicleID int64) ([]maintenance.Block, error) {
	if _, err := s.availability.LoadVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}
	blocks, err := s.blocks.ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list maintenance blocks: %w", err)
	}
	return blocks, nil
}

func (s *MaintenanceService) DeleteBlock(ctx context.Context, id int64, actor reservation.Actor) error {
	if !actor.IsStaff() {
		return fmt.Errorf("%w: only staff can remove maintenance", xerrors.ErrForbidden)
	}

	block, err := s.blocks.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.blocks.Delete(ctx, id); err != nil {
		return err
	}

	s.availability.Invalidate(ctx, block.VehicleID)
	s.logger.Info("maintenance removed", zap.Int64("block_id", id), zap.Int64("vehicle_id", block.VehicleID))
	return nil
}

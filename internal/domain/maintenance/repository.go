package maintenance

import (
	"context"

	"fleetrent-service/internal/pkg/daterange"
)

type Repository interface {
	Create(ctx context.Context, b *Block) error
	FindByID(ctx context.Context, id int64) (*Block, error)
	ListOverlapping(ctx context.Context, vehicleID int64, r daterange.Range) ([]Block, error)
	ListByVehicle(ctx context.Context, vehicleID int64) ([]Block, error)
	Delete(ctx context.Context, id int64) error
}

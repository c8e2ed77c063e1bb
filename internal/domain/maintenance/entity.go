package maintenance

import (
	"time"

	"fleetrent-service/internal/pkg/daterange"
)

// Block takes a vehicle out of service for [StartDate, EndDate).
type Block struct {
	ID        int64     `json:"id" db:"id"`
	VehicleID int64     `json:"vehicle_id" db:"vehicle_id"`
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedBy int64     `json:"created_by" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func (b *Block) Range() daterange.Range {
	return daterange.Range{Start: b.StartDate, End: b.EndDate}
}

// CreateBlockRequest is bound from the admin API.
type CreateBlockRequest struct {
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
	Reason    string `json:"reason" binding:"max=500"`
}

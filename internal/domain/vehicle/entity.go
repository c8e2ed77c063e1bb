// internal/domain/vehicle/entity.go
package vehicle

import "time"

type Status string

const (
	StatusActive      Status = "active"
	StatusInactive    Status = "inactive"
	StatusMaintenance Status = "maintenance"
)

// Vehicle is owned by fleet management. The reservation engine only reads the
// rate, the day bounds and the operational status.
type Vehicle struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Make          string    `json:"make" db:"make"`
	Model         string    `json:"model" db:"model"`
	NumberPlate   string    `json:"number_plate" db:"number_plate"`
	DailyRate     int64     `json:"daily_rate" db:"daily_rate"` // minor currency units
	MinRentalDays int       `json:"min_rental_days" db:"min_rental_days"`
	MaxRentalDays int       `json:"max_rental_days" db:"max_rental_days"` // 0 means unbounded
	Status        Status    `json:"status" db:"status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsBookable reports whether new reservations may target this vehicle.
func (v *Vehicle) IsBookable() bool {
	return v.Status == StatusActive
}

// Summary is the lightweight view embedded in reservation responses.
type Summary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	NumberPlate string `json:"number_plate"`
}

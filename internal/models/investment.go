package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// PerformancePoint is one period of a simulated valuation series.
// Value is in minor units; DriftPct is the period's applied drift in percent.
type PerformancePoint struct {
	Period   int     `json:"t"`
	Value    int64   `json:"value"`
	DriftPct float64 `json:"drift"`
}

// PerformanceSeries is stored as a JSON column.
type PerformanceSeries []PerformancePoint

// Value implements driver.Valuer.
func (s PerformanceSeries) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *PerformanceSeries) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// AllocationSlice is one asset line of an execution's allocation breakdown.
// Allocation is a percentage of the invested pool; Amount the resulting
// minor-unit stake; Color a UI hint cycled from a fixed palette.
type AllocationSlice struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Allocation float64 `json:"allocation"`
	Amount     int64   `json:"amount"`
	Color      string  `json:"color"`
}

// AllocationBreakdown is stored as a JSON column.
type AllocationBreakdown []AllocationSlice

// Value implements driver.Valuer.
func (b AllocationBreakdown) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner.
func (b *AllocationBreakdown) Scan(src interface{}) error {
	return scanJSON(src, b)
}

func scanJSON(src, dst interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
}

// InvestmentExecution is the immutable record of a room's investment run.
type InvestmentExecution struct {
	Base
	RoomID         string              `gorm:"type:uuid;index;not null" json:"room_id"`
	Allocations    AllocationBreakdown `gorm:"type:jsonb" json:"allocations"`
	InvestedAmount int64               `gorm:"type:bigint;not null" json:"invested_amount"`
	StartedAt      time.Time           `json:"started_at"`
	CreatedBy      string              `gorm:"type:uuid;not null" json:"created_by"`
}

// InvestmentAnalytics is the single live valuation snapshot for a room.
// It is replaced on re-execution and deleted when the room closes.
type InvestmentAnalytics struct {
	Base
	RoomID         string              `gorm:"type:uuid;uniqueIndex;not null" json:"room_id"`
	InvestedAmount int64               `gorm:"type:bigint;not null" json:"invested_amount"`
	Series         PerformanceSeries   `gorm:"type:jsonb" json:"series"`
	Breakdown      AllocationBreakdown `gorm:"type:jsonb" json:"breakdown"`
}

// FinalValue returns the last valuation in the series, falling back to the
// invested amount when the series is empty.
func (a *InvestmentAnalytics) FinalValue() int64 {
	if len(a.Series) == 0 {
		return a.InvestedAmount
	}
	return a.Series[len(a.Series)-1].Value
}

package model

import (
	"fmt"
	"strconv"
	"time"

	"isp-hotspot-billing/internal/domain"
)

type DurationUnit string

const (
	DurationHours DurationUnit = "HOURS"
	DurationDays  DurationUnit = "DAYS"
)

// Plan is a billable access package: bandwidth plus a validity window.
type Plan struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Speed         string       `json:"speed"` // RouterOS rate limit, e.g. "5M/5M"
	Price         int64        `json:"price"`
	DurationValue int          `json:"duration_value"`
	DurationUnit  DurationUnit `json:"duration_unit"`
	UserID        string       `json:"user_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// AccessDuration converts a validity window to a time.Duration.
func AccessDuration(value int, unit DurationUnit) (time.Duration, error) {
	if value <= 0 {
		return 0, fmt.Errorf("%w: duration value %d", domain.ErrInvalidArgument, value)
	}
	switch unit {
	case DurationDays:
		return time.Duration(value) * 24 * time.Hour, nil
	case DurationHours:
		return time.Duration(value) * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: duration unit %q", domain.ErrInvalidArgument, unit)
	}
}

// BillingDays reports the whole days a window is billed as. Hourly windows
// round down but never below one day.
func BillingDays(value int, unit DurationUnit) int {
	if unit == DurationHours {
		d := value / 24
		if d < 1 {
			d = 1
		}
		return d
	}
	return value
}

// UptimeLimit renders the window as a RouterOS limit-uptime value ("7d", "24h").
func UptimeLimit(value int, unit DurationUnit) string {
	if unit == DurationHours {
		return fmt.Sprintf("%dh", value)
	}
	return fmt.Sprintf("%dd", value)
}

// ParseUptimeLimit reads a limit-uptime value back into a duration. Only the
// trailing "h" and "d" suffixes used by this service are understood.
func ParseUptimeLimit(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: time limit %q", domain.ErrInvalidArgument, s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: time limit %q", domain.ErrInvalidArgument, s)
	}
	switch s[len(s)-1] {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("%w: time limit %q", domain.ErrInvalidArgument, s)
	}
}

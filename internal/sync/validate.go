package sync

import (
	"errors"
	"fmt"
	"time"
)

// Date-range validation errors.
var (
	ErrBadDate        = errors.New("date must be an 8-digit YYYYMMDD string")
	ErrEndBeforeStart = errors.New("end date is before start date")
	ErrRangeTooLarge  = errors.New("date range exceeds the maximum window")
)

// DefaultMaxRangeDays is the widest window one sync may cover. The
// upstream rejects wider query windows.
const DefaultMaxRangeDays = 31

// ValidateDateRange checks an 8-digit start/end pair before a sync is
// attempted. Validation belongs to the caller of the coordinator (route
// handler or CLI), not the coordinator itself.
func ValidateDateRange(startDate, endDate string, maxDays int) error {
	start, err := time.Parse("20060102", startDate)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadDate, startDate)
	}
	end, err := time.Parse("20060102", endDate)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrBadDate, endDate)
	}

	days := int(end.Sub(start).Hours() / 24)
	if days < 0 {
		return ErrEndBeforeStart
	}
	if maxDays > 0 && days > maxDays {
		return fmt.Errorf("%w: %d days (max %d)", ErrRangeTooLarge, days, maxDays)
	}
	return nil
}

package domain

import "time"

// RetentionPolicy holds a repository's retention windows in days. Zero
// means immediate expiration for save/checkpoint windows and immediate
// physical deletion after a logical delete.
type RetentionPolicy struct {
	SaveDays                  float64 `json:"saveDays"`
	CheckpointDays            float64 `json:"checkpointDays"`
	DiffCacheDays             float64 `json:"diffCacheDays"`
	DirectoryVersionCacheDays float64 `json:"directoryVersionCacheDays"`
	LogicalDeleteDays         float64 `json:"logicalDeleteDays"`
}

// DefaultRetention returns the server-wide retention defaults applied to
// new repositories.
func DefaultRetention() RetentionPolicy {
	return RetentionPolicy{
		SaveDays:                  7,
		CheckpointDays:            30,
		DiffCacheDays:             7,
		DirectoryVersionCacheDays: 7,
		LogicalDeleteDays:         30,
	}
}

// Validate rejects negative windows.
func (p RetentionPolicy) Validate() *Error {
	for _, d := range []float64{p.SaveDays, p.CheckpointDays, p.DiffCacheDays, p.DirectoryVersionCacheDays, p.LogicalDeleteDays} {
		if d < 0 {
			return NewError(KindValidation, CodeInvalidRetentionDays)
		}
	}
	return nil
}

// DaysToDuration converts a day count to a wall-clock duration.
func DaysToDuration(days float64) time.Duration {
	return time.Duration(days * 24 * float64(time.Hour))
}

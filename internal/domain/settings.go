package domain

// Settings is the singleton consultation configuration. It is loaded
// once per operation and passed into the code that needs it; nothing in
// this service mutates it.
//
// OvertimeRate is surfaced to clients alongside the slot listing but is
// not applied by any pricing rule here; cost is always hours times
// HourlyRate.
type Settings struct {
	HourlyRate        int64 `json:"hourly_rate"`
	OvertimeRate      int64 `json:"overtime_rate"`
	CancellationHours int   `json:"cancellation_hours"`
}

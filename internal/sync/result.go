package sync

import "math"

// Result summarizes one sync invocation. It is returned to the caller and
// never persisted.
type Result struct {
	TotalFetched   int     `json:"total_fetched"`
	Inserted       int     `json:"inserted"`
	Duplicates     int     `json:"duplicates"`
	APICalls       int64   `json:"api_calls"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	ItemsPerSecond float64 `json:"items_per_second"`
}

// newResult fills the derived fields: duplicates is fetched minus inserted,
// throughput is zero when no time elapsed.
func newResult(fetched, inserted int, apiCalls int64, elapsedSeconds float64) *Result {
	throughput := 0.0
	if elapsedSeconds > 0 {
		throughput = float64(fetched) / elapsedSeconds
	}
	return &Result{
		TotalFetched:   fetched,
		Inserted:       inserted,
		Duplicates:     fetched - inserted,
		APICalls:       apiCalls,
		ElapsedSeconds: round2(elapsedSeconds),
		ItemsPerSecond: round2(throughput),
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

package adapter

import "time"

// HealthResult is one health-check observation for an adapter instance.
// Results are transient; the factory keeps only the latest per instance.
type HealthResult struct {
	AdapterID string            `json:"adapter_id"`
	State     string            `json:"state"`
	Healthy   bool              `json:"healthy"`
	Timestamp time.Time         `json:"timestamp"`
	Latency   time.Duration     `json:"latency_ms"`
	Errors    []string          `json:"errors,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// HealthyResult builds a passing health result.
func HealthyResult(adapterID string, state State, latency time.Duration) HealthResult {
	return HealthResult{
		AdapterID: adapterID,
		State:     state.String(),
		Healthy:   true,
		Timestamp: time.Now(),
		Latency:   latency,
	}
}

// UnhealthyResult builds a failing health result with the observed errors.
func UnhealthyResult(adapterID string, state State, latency time.Duration, errs ...string) HealthResult {
	return HealthResult{
		AdapterID: adapterID,
		State:     state.String(),
		Timestamp: time.Now(),
		Latency:   latency,
		Errors:    errs,
	}
}

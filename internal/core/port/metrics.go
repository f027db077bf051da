package port

// AuthMetrics captures telemetry hooks for authentication flows.
type AuthMetrics interface {
	ObserveLogin(outcome string)
	ObserveRefresh(outcome string)
	IncLockout()
	ObserveSweep(sessions, attempts int64)
}

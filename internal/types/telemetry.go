package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricDispatchAttempt    = "DispatchAttempt"
	MetricDispatchLatency    = "DispatchLatency"
	MetricRecipientsResolved = "RecipientsResolved"
	MetricTokensResolved     = "TokensResolved"
	MetricEventSkipped       = "EventSkipped"

	// Dimension Keys
	DimEventKind = "EventKind"
	DimResult    = "Result"
	DimReason    = "Reason"

	// Metric Namespace
	MetricNamespace = "RallyPoint/Fanout"
)

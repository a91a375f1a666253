package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// StatementsRefreshedData contains data for StatementsRefreshed events
type StatementsRefreshedData struct {
	Ticker        string `json:"ticker"`
	StatementType string `json:"statement_type"`
	Periods       int    `json:"periods"`
	Reason        string `json:"reason"`
}

// EventType returns the event type for StatementsRefreshedData
func (d *StatementsRefreshedData) EventType() EventType {
	return StatementsRefreshed
}

// StaleServedData contains data for StaleServed events
type StaleServedData struct {
	Ticker        string  `json:"ticker"`
	StatementType string  `json:"statement_type"`
	AgeHours      float64 `json:"age_hours"`
	Error         string  `json:"error"`
}

// EventType returns the event type for StaleServedData
func (d *StaleServedData) EventType() EventType {
	return StaleServed
}

// BatchCompletedData contains data for BatchCompleted events
type BatchCompletedData struct {
	RunID      string `json:"run_id"`
	Requested  int    `json:"requested"`
	Succeeded  int    `json:"succeeded"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// EventType returns the event type for BatchCompletedData
func (d *BatchCompletedData) EventType() EventType {
	return BatchCompleted
}

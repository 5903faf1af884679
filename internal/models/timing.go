package models

import "time"

// TimingRecord captures the elapsed time of a single stage invocation within
// a run. Not part of StorageSnapshot. The orchestrator does not create or
// persist TimingRecords; no timings.json artifact is written.
type TimingRecord struct {
	RunID       string           `json:"runId"`
	Stage       string           `json:"stage"`
	StartedAt   time.Time        `json:"startedAt"`
	CompletedAt time.Time        `json:"completedAt"`
	TotalMs     int64            `json:"totalMs"`
	Phases      map[string]int64 `json:"phases,omitempty"`
	Status      string           `json:"status"` // "success", "failed", "skipped"
	Error       string           `json:"error,omitempty"`
	Provider    string           `json:"provider,omitempty"`    // set by the reasoning stage
	TokensIn    int              `json:"tokensIn,omitempty"`
	TokensOut   int              `json:"tokensOut,omitempty"`
}

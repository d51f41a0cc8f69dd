package model

import (
	"time"
)

// TurnOutcome records how a turn finished.
type TurnOutcome string

const (
	OutcomePending  TurnOutcome = "pending"
	OutcomeAnswered TurnOutcome = "answered"
	OutcomeError    TurnOutcome = "error"
	OutcomeCanceled TurnOutcome = "canceled"
)

// Turn is one user message plus the system's eventual response. A turn is
// mutated only by its owning session worker and is immutable once finalized.
type Turn struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	CreatedAt time.Time     `json:"created_at"`
	Request   *QueryRequest `json:"request,omitempty"`
	Response  *Response     `json:"response,omitempty"`
	Outcome   TurnOutcome   `json:"outcome"`
}

// Response is the final payload for one turn: an ordered composition of a
// data summary (if the turn queried data) followed by advisory text. It is
// never emitted before the query it depends on has completed or failed.
type Response struct {
	TurnID      string       `json:"turn_id"`
	DataSummary string       `json:"data_summary,omitempty"`
	Result      *QueryResult `json:"result,omitempty"`
	Advice      string       `json:"advice,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// HistoryEntry is the compact form of a finalized turn handed to the
// translator and the advice backend as conversation context.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

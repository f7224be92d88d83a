package reconcile

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outcome classifies a legacy asset row.
type Outcome string

const (
	OutcomeResolved   Outcome = "resolved"
	OutcomeUnresolved Outcome = "unresolved"
	OutcomeInvalid    Outcome = "invalid"
	// OutcomeAmbiguous rows are resolved from the first of several catalog
	// matches; they are counted as resolved too.
	OutcomeAmbiguous Outcome = "ambiguous"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// RunOptions selects the region and the write mode of a run. DryRun
// resolves without writing; Apply additionally rewrites the assets in the
// Quotes collection.
type RunOptions struct {
	TargetState string `json:"targetState"`
	DryRun      bool   `json:"dryRun"`
	Apply       bool   `json:"apply"`
}

// Summary reports the counters of a finished or aborted run.
type Summary struct {
	RunID       string        `json:"runId"`
	TargetState string        `json:"targetState"`
	VersionID   interface{}   `json:"versionId,omitempty"`
	DryRun      bool          `json:"dryRun"`
	Apply       bool          `json:"apply"`
	Scanned     int           `json:"scanned"`
	Resolved    int           `json:"resolved"`
	Unresolved  int           `json:"unresolved"`
	Invalid     int           `json:"invalid"`
	Ambiguous   int           `json:"ambiguous"`
	Staged      int           `json:"staged"`
	Applied     int           `json:"applied"`
	Duration    time.Duration `json:"-"`
	DurationMs  int64         `json:"durationMs"`
}

// Resolution is the outcome of the catalog resolver for one descriptor.
// Unresolved descriptors are cached too, with Found false.
type Resolution struct {
	Found       bool        `bson:"found"`
	Matches     int         `bson:"matches"`
	MakeID      interface{} `bson:"makeId,omitempty"`
	ModelID     interface{} `bson:"modelId,omitempty"`
	BodyStyleID interface{} `bson:"bodyStyleId,omitempty"`
}

// Update pairs a legacy asset with the catalog ids that replace its codes.
type Update struct {
	QuoteID       interface{}
	LegacyQuoteID interface{}
	AssetID       interface{}
	Year          interface{}

	MakeOld      interface{}
	ModelOld     interface{}
	BodyStyleOld interface{}

	MakeID      interface{}
	ModelID     interface{}
	BodyStyleID interface{}
}

// idString renders an opaque store identifier for keys and SQL columns.
func idString(id interface{}) string {
	switch v := id.(type) {
	case nil:
		return ""
	case primitive.ObjectID:
		return v.Hex()
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

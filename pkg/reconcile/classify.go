package reconcile

import (
	"fmt"

	"github.com/google/uuid"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionSkip   Action = "skip"
)

const ReasonNoMatch = "no match"

type Classification struct {
	Action     Action
	TargetID   uuid.UUID
	MatchedKey Field
	Reason     string
}

func (c Classification) Matched() bool {
	return c.MatchedKey != ""
}

// Classify decides what to do with one record. The first candidate key (in the given
// order) that hits the index decides both the verdict and the target.
func Classify(rec NormalizedRecord, idx *ExistingIndex, keys []Field, strategy Strategy) Classification {
	for _, k := range keys {
		v, ok := rec.Get(k)
		if !ok {
			continue
		}
		id, hit := idx.Lookup(k, v)
		if !hit {
			continue
		}
		c := Classification{MatchedKey: k, Reason: fmt.Sprintf("matched by %s", k)}
		switch strategy {
		case StrategySkip:
			c.Action = ActionSkip
			c.TargetID = id
		case StrategyCreateNew:
			c.Action = ActionCreate
			c.Reason += " (forced create)"
		default:
			c.Action = ActionUpdate
			c.TargetID = id
		}
		return c
	}
	return Classification{Action: ActionCreate, Reason: ReasonNoMatch}
}

type Classified struct {
	Record NormalizedRecord
	Classification
}

// Plan is the classified work of one invocation. Skips never reach the committer.
type Plan struct {
	Creates []Classified
	Updates []Classified
	Skips   []Classified
}

func BuildPlan(records []NormalizedRecord, idx *ExistingIndex, keys []Field, strategy Strategy) Plan {
	var p Plan
	for _, rec := range records {
		c := Classified{Record: rec, Classification: Classify(rec, idx, keys, strategy)}
		switch c.Action {
		case ActionCreate:
			p.Creates = append(p.Creates, c)
		case ActionUpdate:
			p.Updates = append(p.Updates, c)
		case ActionSkip:
			p.Skips = append(p.Skips, c)
		}
	}
	return p
}

func (p Plan) Len() int {
	return len(p.Creates) + len(p.Updates) + len(p.Skips)
}

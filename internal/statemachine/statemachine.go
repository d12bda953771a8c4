// Package statemachine holds the authoritative transition tables for the
// order, assignment, and invoice lifecycles. Every mutating operation in the
// fulfillment layer validates its transition here before any write happens;
// status comparisons never live at call sites.
package statemachine

import (
	"fmt"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	"github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

// TransitionDetails is attached to every STATE_CONFLICT error so the caller
// can reconcile against the aggregate's current state without a follow-up read.
type TransitionDetails struct {
	AggregateType enums.AggregateType `json:"aggregate_type"`
	CurrentStatus string              `json:"current_status"`
	TargetStatus  string              `json:"target_status"`
	AllowedNext   []string            `json:"allowed_next"`
}

func transitionError(aggregate enums.AggregateType, from, to string, allowed []string) *errors.Error {
	msg := fmt.Sprintf("%s cannot move from %s to %s", aggregate, from, to)
	return errors.New(errors.CodeStateConflict, msg).WithDetails(TransitionDetails{
		AggregateType: aggregate,
		CurrentStatus: from,
		TargetStatus:  to,
		AllowedNext:   allowed,
	})
}

package statemachine

import (
	"testing"

	"github.com/agyemangopoku/farmlink-backend/pkg/enums"
	pkgerrors "github.com/agyemangopoku/farmlink-backend/pkg/errors"
)

func TestOrderTransitions(t *testing.T) {
	cases := []struct {
		name string
		from enums.OrderStatus
		to   enums.OrderStatus
		ok   bool
	}{
		{"draft to published", enums.OrderStatusDraft, enums.OrderStatusPublished, true},
		{"draft to assigned skips publish", enums.OrderStatusDraft, enums.OrderStatusAssigned, false},
		{"published to assigning", enums.OrderStatusPublished, enums.OrderStatusAssigning, true},
		{"published to published", enums.OrderStatusPublished, enums.OrderStatusPublished, false},
		{"assigning to assigned", enums.OrderStatusAssigning, enums.OrderStatusAssigned, true},
		{"assigned to in_progress", enums.OrderStatusAssigned, enums.OrderStatusInProgress, true},
		{"assigned reopens after rejection", enums.OrderStatusAssigned, enums.OrderStatusAssigning, true},
		{"in_progress to partially_delivered", enums.OrderStatusInProgress, enums.OrderStatusPartiallyDelivered, true},
		{"in_progress straight to fully_delivered", enums.OrderStatusInProgress, enums.OrderStatusFullyDelivered, true},
		{"partially_delivered to fully_delivered", enums.OrderStatusPartiallyDelivered, enums.OrderStatusFullyDelivered, true},
		{"fully_delivered to completed", enums.OrderStatusFullyDelivered, enums.OrderStatusCompleted, true},
		{"completed is terminal", enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{"cancelled is terminal", enums.OrderStatusCancelled, enums.OrderStatusDraft, false},
		{"cancel from in_progress", enums.OrderStatusInProgress, enums.OrderStatusCancelled, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OrderCanTransition(tc.from, tc.to); got != tc.ok {
				t.Fatalf("OrderCanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
			}
			err := EnsureOrderTransition(tc.from, tc.to)
			if tc.ok && err != nil {
				t.Fatalf("EnsureOrderTransition(%s, %s) unexpected error: %v", tc.from, tc.to, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("EnsureOrderTransition(%s, %s) expected error", tc.from, tc.to)
			}
		})
	}
}

func TestEnsureOrderTransitionErrorCarriesCurrentState(t *testing.T) {
	err := EnsureOrderTransition(enums.OrderStatusPublished, enums.OrderStatusDraft)
	if err == nil {
		t.Fatal("expected error")
	}

	appErr := pkgerrors.As(err)
	if appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeStateConflict, appErr.Code())
	}

	details, ok := appErr.Details().(TransitionDetails)
	if !ok {
		t.Fatalf("expected TransitionDetails, got %T", appErr.Details())
	}
	if details.CurrentStatus != "published" {
		t.Fatalf("expected current status published, got %s", details.CurrentStatus)
	}
	if details.TargetStatus != "draft" {
		t.Fatalf("expected target status draft, got %s", details.TargetStatus)
	}
	if len(details.AllowedNext) == 0 {
		t.Fatal("expected allowed next statuses to be listed")
	}
}

func TestAssignmentTransitions(t *testing.T) {
	cases := []struct {
		name string
		from enums.AssignmentStatus
		to   enums.AssignmentStatus
		ok   bool
	}{
		{"pending to accepted", enums.AssignmentStatusPending, enums.AssignmentStatusAccepted, true},
		{"pending to rejected", enums.AssignmentStatusPending, enums.AssignmentStatusRejected, true},
		{"reject after acceptance", enums.AssignmentStatusAccepted, enums.AssignmentStatusRejected, false},
		{"reject while preparing", enums.AssignmentStatusPreparing, enums.AssignmentStatusRejected, false},
		{"accepted to preparing", enums.AssignmentStatusAccepted, enums.AssignmentStatusPreparing, true},
		{"preparing to ready", enums.AssignmentStatusPreparing, enums.AssignmentStatusReady, true},
		{"ready to in_transit", enums.AssignmentStatusReady, enums.AssignmentStatusInTransit, true},
		{"in_transit to delivered", enums.AssignmentStatusInTransit, enums.AssignmentStatusDelivered, true},
		{"delivered to verified", enums.AssignmentStatusDelivered, enums.AssignmentStatusVerified, true},
		{"verified to paid", enums.AssignmentStatusVerified, enums.AssignmentStatusPaid, true},
		{"delivered cannot be cancelled", enums.AssignmentStatusDelivered, enums.AssignmentStatusCancelled, false},
		{"cancel before delivery", enums.AssignmentStatusInTransit, enums.AssignmentStatusCancelled, true},
		{"paid is terminal", enums.AssignmentStatusPaid, enums.AssignmentStatusVerified, false},
		{"skip verification", enums.AssignmentStatusDelivered, enums.AssignmentStatusPaid, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := AssignmentCanTransition(tc.from, tc.to); got != tc.ok {
				t.Fatalf("AssignmentCanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
			}
		})
	}
}

func TestEnsureAssignmentTransitionRejectWhilePreparing(t *testing.T) {
	err := EnsureAssignmentTransition(enums.AssignmentStatusPreparing, enums.AssignmentStatusRejected)
	if err == nil {
		t.Fatal("expected error")
	}

	appErr := pkgerrors.As(err)
	if appErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected %s, got %s", pkgerrors.CodeStateConflict, appErr.Code())
	}

	details := appErr.Details().(TransitionDetails)
	if details.CurrentStatus != "preparing" {
		t.Fatalf("expected current status preparing, got %s", details.CurrentStatus)
	}
}

func TestInvoiceTransitions(t *testing.T) {
	cases := []struct {
		name string
		from enums.InvoiceStatus
		to   enums.InvoiceStatus
		ok   bool
	}{
		{"pending to approved", enums.InvoiceStatusPending, enums.InvoiceStatusApproved, true},
		{"pending to rejected", enums.InvoiceStatusPending, enums.InvoiceStatusRejected, true},
		{"pending to disputed", enums.InvoiceStatusPending, enums.InvoiceStatusDisputed, true},
		{"pending straight to paid", enums.InvoiceStatusPending, enums.InvoiceStatusPaid, false},
		{"approved to processing", enums.InvoiceStatusApproved, enums.InvoiceStatusProcessing, true},
		{"approved to disputed", enums.InvoiceStatusApproved, enums.InvoiceStatusDisputed, true},
		{"processing to paid", enums.InvoiceStatusProcessing, enums.InvoiceStatusPaid, true},
		{"processing cannot be rejected", enums.InvoiceStatusProcessing, enums.InvoiceStatusRejected, false},
		{"paid is terminal", enums.InvoiceStatusPaid, enums.InvoiceStatusDisputed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InvoiceCanTransition(tc.from, tc.to); got != tc.ok {
				t.Fatalf("InvoiceCanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.ok)
			}
		})
	}
}

func TestAllowedNextReturnsCopies(t *testing.T) {
	next := OrderAllowedNext(enums.OrderStatusDraft)
	if len(next) == 0 {
		t.Fatal("expected successors for draft")
	}
	next[0] = enums.OrderStatusCompleted

	again := OrderAllowedNext(enums.OrderStatusDraft)
	if again[0] == enums.OrderStatusCompleted {
		t.Fatal("mutating the returned slice must not affect the table")
	}
}

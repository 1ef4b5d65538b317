package services

import (
	"testing"

	"github.com/matterdesk/matterdesk/internal/models"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     models.MatterStatus
		to       models.MatterStatus
		role     string
		expected bool
	}{
		{"accept for review", models.MatterPendingReview, models.MatterInReview, models.RoleCaseManager, true},
		{"reject", models.MatterPendingReview, models.MatterRejected, models.RoleCaseManager, true},
		{"resume", models.MatterOnHold, models.MatterInProgress, models.RoleCaseManager, true},
		{"close", models.MatterCompleted, models.MatterClosed, models.RoleCaseManager, true},
		{"admin has no transition rights", models.MatterPendingReview, models.MatterInReview, models.RoleAdminManager, false},
		{"associate has no transition rights", models.MatterAssigned, models.MatterInProgress, models.RoleAssociateLawyer, false},
		{"client has no transition rights", models.MatterInProgress, models.MatterCompleted, models.RoleClient, false},
		{"skip ahead", models.MatterPendingReview, models.MatterInProgress, models.RoleCaseManager, false},
		{"backwards", models.MatterInProgress, models.MatterAssigned, models.RoleCaseManager, false},
		{"reopen closed", models.MatterClosed, models.MatterInProgress, models.RoleCaseManager, false},
		{"reopen rejected", models.MatterRejected, models.MatterPendingReview, models.RoleCaseManager, false},
		{"self loop", models.MatterInProgress, models.MatterInProgress, models.RoleCaseManager, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to, tt.role); got != tt.expected {
				t.Errorf("CanTransition(%s, %s, %s) = %v, expected %v", tt.from, tt.to, tt.role, got, tt.expected)
			}
		})
	}
}

func TestTerminalStatesHaveNoOutboundEdges(t *testing.T) {
	for _, edge := range Transitions() {
		if edge.From.Terminal() {
			t.Errorf("terminal state %s has outbound edge to %s", edge.From, edge.To)
		}
	}
}

func TestEdgesUseKnownStatuses(t *testing.T) {
	for _, edge := range Transitions() {
		if !edge.From.Valid() || !edge.To.Valid() {
			t.Errorf("edge %s -> %s references an unknown status", edge.From, edge.To)
		}
	}
}

func TestAvailableTransitions(t *testing.T) {
	got := AvailableTransitions(models.MatterInReview, models.RoleCaseManager)
	if len(got) != 1 || got[0].To != models.MatterAwaitingDocuments {
		t.Errorf("InReview should only offer request_documents directly, got %+v", got)
	}

	got = AvailableTransitions(models.MatterInProgress, models.RoleCaseManager)
	if len(got) != 2 {
		t.Errorf("InProgress should offer pause and complete, got %+v", got)
	}

	if got := AvailableTransitions(models.MatterInProgress, models.RoleAssociateLawyer); len(got) != 0 {
		t.Errorf("associates should see no transitions, got %+v", got)
	}
	if got := AvailableTransitions(models.MatterClosed, models.RoleCaseManager); len(got) != 0 {
		t.Errorf("closed matters should offer nothing, got %+v", got)
	}
}

func TestTransitions_ReturnsCopy(t *testing.T) {
	edges := Transitions()
	edges[0].Role = models.RoleClient
	if !CanTransition(models.MatterPendingReview, models.MatterInReview, models.RoleCaseManager) {
		t.Error("mutating the returned slice should not affect the edge table")
	}
}

func TestIsClientRelevant(t *testing.T) {
	if IsClientRelevant(models.MatterInReview) {
		t.Error("InReview is internal only")
	}
	if !IsClientRelevant(models.MatterRejected) || !IsClientRelevant(models.MatterAssigned) {
		t.Error("Rejected and Assigned should notify the client")
	}
}

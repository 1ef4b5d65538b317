package services

import "github.com/matterdesk/matterdesk/internal/models"

// Transition is one permitted edge of the matter state machine.
type Transition struct {
	From   models.MatterStatus `json:"from"`
	To     models.MatterStatus `json:"to"`
	Role   string              `json:"role"`
	Action string              `json:"action"`
	// ViaAssignment edges are only driven by AssignmentService.Assign.
	ViaAssignment bool `json:"via_assignment"`
}

var transitions = []Transition{
	{From: models.MatterPendingReview, To: models.MatterInReview, Role: models.RoleCaseManager, Action: "accept_for_review"},
	{From: models.MatterPendingReview, To: models.MatterRejected, Role: models.RoleCaseManager, Action: "reject_case"},
	{From: models.MatterInReview, To: models.MatterAwaitingDocuments, Role: models.RoleCaseManager, Action: "request_documents"},
	{From: models.MatterInReview, To: models.MatterAssigned, Role: models.RoleCaseManager, Action: "mark_assigned", ViaAssignment: true},
	{From: models.MatterAssigned, To: models.MatterInProgress, Role: models.RoleCaseManager, Action: "start_work"},
	{From: models.MatterInProgress, To: models.MatterOnHold, Role: models.RoleCaseManager, Action: "pause"},
	{From: models.MatterInProgress, To: models.MatterCompleted, Role: models.RoleCaseManager, Action: "mark_completed"},
	{From: models.MatterOnHold, To: models.MatterInProgress, Role: models.RoleCaseManager, Action: "resume"},
	{From: models.MatterCompleted, To: models.MatterClosed, Role: models.RoleCaseManager, Action: "close_case"},
}

// Destinations the filing client hears about.
var clientRelevantStatuses = map[models.MatterStatus]bool{
	models.MatterAwaitingDocuments: true,
	models.MatterAssigned:          true,
	models.MatterInProgress:        true,
	models.MatterOnHold:            true,
	models.MatterCompleted:         true,
	models.MatterClosed:            true,
	models.MatterRejected:          true,
}

// Transitions returns a copy of the edge table.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

func findEdge(from, to models.MatterStatus) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// IsEdge reports whether from -> to is in the declared graph, regardless of role.
func IsEdge(from, to models.MatterStatus) bool {
	_, ok := findEdge(from, to)
	return ok
}

// CanTransition reports whether role may move a matter from -> to.
func CanTransition(from, to models.MatterStatus, role string) bool {
	edge, ok := findEdge(from, to)
	return ok && edge.Role == role
}

// AvailableTransitions lists the edges role can request directly from status.
func AvailableTransitions(status models.MatterStatus, role string) []Transition {
	var out []Transition
	for _, t := range transitions {
		if t.From == status && t.Role == role && !t.ViaAssignment {
			out = append(out, t)
		}
	}
	return out
}

func IsClientRelevant(status models.MatterStatus) bool {
	return clientRelevantStatuses[status]
}

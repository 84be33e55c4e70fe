// Package lifecycle holds the ticket state machine and the role permission
// table. It has no I/O; the service layer applies its decisions.
package lifecycle

import (
	"errors"
	"fmt"

	"cityfix-service/internal/model"
)

var (
	ErrPermissionDenied       = errors.New("permission denied")
	ErrInvalidStateTransition = errors.New("invalid state transition")
)

type Action string

const (
	ActionCreate   Action = "create"
	ActionAssign   Action = "assign"
	ActionComplete Action = "complete"
	ActionReject   Action = "reject"
	ActionFeedback Action = "feedback"
	ActionComment  Action = "comment"
)

// permissions is the role × action table. Missing entries deny.
// Actor-specific guards (operator claims only for self, completes only
// when assigned, feedback only by the ticket owner) are applied on top.
var permissions = map[model.Role]map[Action]bool{
	model.RoleCitizen: {
		ActionCreate:   true,
		ActionFeedback: true,
		ActionComment:  true,
	},
	model.RoleOperator: {
		ActionAssign:   true,
		ActionComplete: true,
		ActionComment:  true,
	},
	model.RoleManager: {
		ActionAssign:   true,
		ActionComplete: true,
		ActionReject:   true,
		ActionComment:  true,
	},
	model.RoleAdmin: {
		ActionAssign:   true,
		ActionComplete: true,
		ActionReject:   true,
		ActionComment:  true,
	},
}

func Allowed(role model.Role, action Action) bool {
	return permissions[role][action]
}

// Authorize is Allowed as an error.
func Authorize(role model.Role, action Action) error {
	if !Allowed(role, action) {
		return fmt.Errorf("%w: role %q cannot %s tickets", ErrPermissionDenied, role, action)
	}
	return nil
}

func IsTerminal(status model.TicketStatus) bool {
	return status == model.TicketStatusCompleted || status == model.TicketStatusRejected
}

// Next returns the status a ticket in from moves to when action is applied.
// Feedback and comments leave the status unchanged.
func Next(from model.TicketStatus, action Action) (model.TicketStatus, error) {
	switch action {
	case ActionAssign:
		if from == model.TicketStatusPending {
			return model.TicketStatusInProgress, nil
		}
	case ActionComplete:
		if from == model.TicketStatusInProgress {
			return model.TicketStatusCompleted, nil
		}
	case ActionReject:
		if !IsTerminal(from) && from.Valid() {
			return model.TicketStatusRejected, nil
		}
	case ActionFeedback:
		if from == model.TicketStatusCompleted {
			return from, nil
		}
	case ActionComment:
		if from.Valid() {
			return from, nil
		}
	}
	return "", fmt.Errorf("%w: cannot %s a %s ticket", ErrInvalidStateTransition, action, from)
}

// HoldsOperator reports whether tickets in status carry an assigned operator.
func HoldsOperator(status model.TicketStatus) bool {
	return status == model.TicketStatusInProgress || status == model.TicketStatusCompleted
}

// ForStatus maps a requested target status to the action that reaches it.
func ForStatus(target model.TicketStatus) (Action, bool) {
	switch target {
	case model.TicketStatusInProgress:
		return ActionAssign, true
	case model.TicketStatusCompleted:
		return ActionComplete, true
	case model.TicketStatusRejected:
		return ActionReject, true
	}
	return "", false
}

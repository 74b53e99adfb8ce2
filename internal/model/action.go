package model

import (
	"fmt"
	"time"
)

// ActionType is what the user did with a transaction.
type ActionType string

const (
	ActionCategorize ActionType = "categorize"
	ActionOmit       ActionType = "omit"
)

// ParseActionType validates an action name.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionCategorize, ActionOmit:
		return ActionType(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// UserAction is one entry of the append-only user decision log.
type UserAction struct {
	TransactionID string
	Action        ActionType
	CategoryID    string // set for ActionCategorize
	Timestamp     time.Time
	Transaction   Transaction // snapshot at decision time
}

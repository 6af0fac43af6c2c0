package agent

import "encoding/json"

// WhereClause is the raw ternary S-expression `[operator, field, value]`
// attached to an add/remove EventOperation. It is kept as a raw JSON value
// end to end; only pkg/discovery/whereclause knows how to interpret it.
type WhereClause = json.RawMessage

// EventOperation configures one side (add, remove, or set) of an event
// handler: the event signature(s) that drive it and an optional filter
// deciding whether a given occurrence actually applies. Events holds one
// or more signatures — the same operation can be triggered by several
// distinct events (see SPEC_FULL.md §3).
type EventOperation struct {
	Events []string     `json:"events"`
	Where  *WhereClause `json:"where,omitempty"`
}

// HandlerMode distinguishes the handler kinds a HandlerDefinition can carry.
type HandlerMode int

const (
	// ModeEvent is a plain event-log handler driven by add/remove/set
	// operations; with none configured, handler.New materializes a set
	// operation from the top-level event.
	ModeEvent HandlerMode = iota
	// ModeAccessControl is the fixed OpenZeppelin AccessControl preset.
	ModeAccessControl
)

// HandlerDefinition is the declarative configuration for one output field,
// decoded from the JSON handler config document (see SPEC_FULL.md §6).
type HandlerDefinition struct {
	Mode HandlerMode

	// Event-mode fields. At least one of {Event, Add, Remove, Set} must be
	// present; if only Event is given, a synthetic Set operation carrying
	// that single event is materialized at construction time.
	Event   string          `json:"event,omitempty"`
	Select  json.RawMessage `json:"select,omitempty"`
	Add     *EventOperation `json:"add,omitempty"`
	Remove  *EventOperation `json:"remove,omitempty"`
	Set     *EventOperation `json:"set,omitempty"`
	GroupBy string          `json:"group_by,omitempty"`

	// AccessControl-mode fields.
	RoleNames       map[string]string `json:"role_names,omitempty"`
	PickRoleMembers string            `json:"pick_role_members,omitempty"`

	IgnoreRelative bool `json:"ignore_relative,omitempty"`
}

// HandlerResult is what a handler's execution reports for one field: either
// a value, or an error message explaining why none could be produced.
type HandlerResult struct {
	Field  string
	Value  *HandlerValue
	Error  string
	Hidden bool
}

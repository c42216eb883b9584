package ticketstate

import (
	"strings"
)

type State struct {
	Name string
}

func (s State) Code() string {
	return s.Name
}

func (s State) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s.Name != States.Open.Name
}

type Enum struct {
	Open      State
	Completed State
	Cancelled State
}

var States = Enum{
	Open:      State{Name: "open"},
	Completed: State{Name: "completed"},
	Cancelled: State{Name: "cancelled"},
}

var All = []State{
	States.Open,
	States.Completed,
	States.Cancelled,
}

// ByName returns the state for a given name, or nil if not found
func ByName(name string) *State {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

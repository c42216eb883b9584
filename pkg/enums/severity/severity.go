package severity

import (
	"strings"
)

// Tier is an SLA severity tier. Rank orders tiers from least to most severe.
type Tier struct {
	Name string
	Rank int
}

func (t Tier) Code() string {
	return t.Name
}

func (t Tier) Label() string {
	parts := strings.Split(t.Name, "-")
	for i := range parts {
		if len(parts[i]) > 0 {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, " ")
}

// Above reports whether t is strictly more severe than other.
func (t Tier) Above(other Tier) bool {
	return t.Rank > other.Rank
}

// Delayed reports whether a ticket finished in this tier counts as delayed.
func (t Tier) Delayed() bool {
	return t.Rank >= Tiers.Overdue.Rank
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.Name), nil
}

func (t *Tier) UnmarshalText(b []byte) error {
	found := ByName(string(b))
	if found == nil {
		*t = Tier{Name: string(b), Rank: -1}
		return nil
	}
	*t = *found
	return nil
}

type Enum struct {
	OnTime    Tier
	Attention Tier
	Overdue   Tier
}

var Tiers = Enum{
	OnTime:    Tier{Name: "on-time", Rank: 0},
	Attention: Tier{Name: "attention", Rank: 1},
	Overdue:   Tier{Name: "overdue", Rank: 2},
}

var All = []Tier{
	Tiers.OnTime,
	Tiers.Attention,
	Tiers.Overdue,
}

// ByName returns the tier for a given name, or nil if not found
func ByName(name string) *Tier {
	for _, t := range All {
		if t.Name == name {
			return &t
		}
	}
	return nil
}

package station

import "strings"

// Station is a kitchen preparation station. Items routed to different
// stations are prepared in parallel.
type Station struct {
	Name string
}

func (s Station) Code() string {
	return s.Name
}

func (s Station) Label() string {
	if len(s.Name) == 0 {
		return ""
	}
	return strings.ToUpper(s.Name[:1]) + s.Name[1:]
}

type Enum struct {
	Grill   Station
	Fryer   Station
	Cold    Station
	Pasta   Station
	Dessert Station
	Bar     Station
	Other   Station
}

var Stations = Enum{
	Grill:   Station{Name: "grill"},
	Fryer:   Station{Name: "fryer"},
	Cold:    Station{Name: "cold"},
	Pasta:   Station{Name: "pasta"},
	Dessert: Station{Name: "dessert"},
	Bar:     Station{Name: "bar"},
	Other:   Station{Name: "other"},
}

var All = []Station{
	Stations.Grill,
	Stations.Fryer,
	Stations.Cold,
	Stations.Pasta,
	Stations.Dessert,
	Stations.Bar,
	Stations.Other,
}

// ByName returns the station for a given name, or nil if not found
func ByName(name string) *Station {
	for _, s := range All {
		if s.Name == name {
			return &s
		}
	}
	return nil
}

// Resolve returns the station code for name, falling back to Other for
// empty or unknown names.
func Resolve(name string) string {
	if s := ByName(name); s != nil {
		return s.Code()
	}
	return Stations.Other.Code()
}

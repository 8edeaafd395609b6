// Package viewstate holds the serializable per-view UI state persisted
// alongside records. The presentation layer owns the contents; the store
// only round-trips them through the snapshot.
package viewstate

// View names one of the concurrently rendered views.
type View string

const (
	ViewTable      View = "table"
	ViewStaff      View = "staff"
	ViewSimulation View = "simulation"
	ViewRetake     View = "retake"
)

// State is one view's snapshot: sort, filters, scroll, active tab.
type State struct {
	SortKey   string            `json:"sortKey,omitempty"`
	SortDesc  bool              `json:"sortDesc,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	ScrollX   int               `json:"scrollX,omitempty"`
	ScrollY   int               `json:"scrollY,omitempty"`
	ActiveTab string            `json:"activeTab,omitempty"`
}

// Clone deep-copies the state so snapshot consumers never share the
// filters map with the presentation layer.
func (s State) Clone() State {
	cp := s
	if s.Filters != nil {
		cp.Filters = make(map[string]string, len(s.Filters))
		for k, v := range s.Filters {
			cp.Filters[k] = v
		}
	}
	return cp
}

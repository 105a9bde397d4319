// Package stations registers the known test stands with the core registry.
// Import this package for its side effects.
package stations

import "github.com/JonMunkholm/mtsload/internal/core"

// Id bases keep each table's surrogate keys in a disjoint block so rows can be
// merged across stations without collisions.
const (
	TableTopBase    int64 = 1
	RotaryBase      int64 = 2_000_000_000_000_000_000
	MTS810Base      int64 = 3_000_000_000_000_000_000
	PlaceholderBase int64 = 4_000_000_000_000_000_000
)

func init() {
	core.Register(core.Station{
		Key:     "table_top",
		Label:   "Table Top",
		Folders: []string{"Table Top"},
		IDBase:  TableTopBase,
	})
	core.Register(core.Station{
		Key:     "rotary",
		Label:   "Rotary (T24-64)",
		Folders: []string{"T24-64"},
		IDBase:  RotaryBase,
	})
	core.Register(core.Station{
		Key:     "mts_810",
		Label:   "MTS 810",
		Folders: []string{"MTS 810"},
		IDBase:  MTS810Base,
	})
	core.Register(core.Station{
		Key:     "placeholder",
		Label:   "Placeholder",
		Folders: []string{"placeholder"},
		IDBase:  PlaceholderBase,
	})
}

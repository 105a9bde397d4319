package core

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Station is a test stand whose log files land in one destination table.
type Station struct {
	Key     string   // destination table: "table_top"
	Label   string   // display name: "Table Top"
	Folders []string // parent-folder names that identify the stand
	IDBase  int64    // first surrogate id handed out for this table
}

// SequenceName is the name of the id sequence backing the station's table.
func (s Station) SequenceName() string {
	return s.Key + "_id_seq"
}

// SequenceStart is the value the station's sequence is created with.
func (s Station) SequenceStart() int64 {
	if s.IDBase < 1 {
		return 1
	}
	return s.IDBase
}

// IDRange is the half-open interval of ids owned by a station.
type IDRange struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"` // exclusive
}

// Contains reports whether id falls in the range.
func (r IDRange) Contains(id int64) bool {
	return id >= r.Start && id < r.End
}

// Resolution is the outcome of mapping a file to a station.
type Resolution struct {
	Station Station
	Folder  string
	OK      bool
}

var (
	registry   = make(map[string]Station)
	registryMu sync.RWMutex
)

// Register adds a station to the registry.
// Panics on a duplicate key, id base or folder name.
func Register(st Station) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[st.Key]; exists {
		panic(fmt.Sprintf("station already registered: %s", st.Key))
	}
	for _, other := range registry {
		if other.SequenceStart() == st.SequenceStart() {
			panic(fmt.Sprintf("station %s reuses id base of %s", st.Key, other.Key))
		}
		for _, f := range st.Folders {
			if containsFold(other.Folders, f) {
				panic(fmt.Sprintf("folder %q already mapped to station %s", f, other.Key))
			}
		}
	}

	registry[st.Key] = st
}

// Get returns a station by key.
func Get(key string) (Station, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	st, ok := registry[key]
	return st, ok
}

// All returns all registered stations ordered by id base.
func All() []Station {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Station, 0, len(registry))
	for _, st := range registry {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SequenceStart() < result[j].SequenceStart()
	})
	return result
}

// Ranges returns the id range owned by every station. Each range ends where
// the next station's begins; the last one runs to MaxInt64.
func Ranges() map[string]IDRange {
	stations := All()
	out := make(map[string]IDRange, len(stations))
	for i, st := range stations {
		end := int64(math.MaxInt64)
		if i+1 < len(stations) {
			end = stations[i+1].SequenceStart()
		}
		out[st.Key] = IDRange{Start: st.SequenceStart(), End: end}
	}
	return out
}

// ResolveFolder maps a parent-folder name to its station. Matching ignores case.
func ResolveFolder(folder string) Resolution {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, st := range registry {
		if containsFold(st.Folders, folder) {
			return Resolution{Station: st, Folder: folder, OK: true}
		}
	}
	return Resolution{Folder: folder}
}

// ResolvePath maps a file to its station using the name of its parent folder.
func ResolvePath(path string) Resolution {
	return ResolveFolder(filepath.Base(filepath.Dir(path)))
}

// StationCount returns the number of registered stations.
func StationCount() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered stations.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Station)
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

package stations

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mtsload/internal/core"
)

func TestRegisteredStations(t *testing.T) {
	tests := []struct {
		folder string
		table  string
		start  int64
	}{
		{"Table Top", "table_top", 1},
		{"T24-64", "rotary", 2_000_000_000_000_000_000},
		{"MTS 810", "mts_810", 3_000_000_000_000_000_000},
		{"placeholder", "placeholder", 4_000_000_000_000_000_000},
	}

	require.Equal(t, len(tests), core.StationCount())
	for _, tt := range tests {
		res := core.ResolveFolder(tt.folder)
		require.True(t, res.OK, tt.folder)
		assert.Equal(t, tt.table, res.Station.Key)
		assert.Equal(t, tt.start, res.Station.SequenceStart())
		assert.Equal(t, tt.table+"_id_seq", res.Station.SequenceName())
	}
}

func TestIDRangesPartitionKeySpace(t *testing.T) {
	ranges := core.Ranges()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("every positive id belongs to exactly one station", prop.ForAll(
		func(id int64) bool {
			owners := 0
			for _, r := range ranges {
				if r.Contains(id) {
					owners++
				}
			}
			return owners == 1
		},
		gen.Int64Range(1, math.MaxInt64-1),
	))

	properties.Property("ids near block boundaries belong to the upper block", prop.ForAll(
		func(offset int64) bool {
			for _, st := range core.All() {
				id := st.SequenceStart() + offset
				if !ranges[st.Key].Contains(id) {
					return false
				}
			}
			return true
		},
		gen.Int64Range(0, 1_000_000),
	))

	properties.TestingRun(t)
}

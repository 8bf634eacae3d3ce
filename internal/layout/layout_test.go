package layout

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ev(id, start, end string) Event {
	return Event{ID: id, StartTime: start, EndTime: end}
}

func TestCompute_Scenarios(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		events []Event
		want   map[string]Position
	}{
		{
			name:   "empty input",
			events: nil,
			want:   map[string]Position{},
		},
		{
			name:   "single event",
			events: []Event{ev("a", "10:00", "11:00")},
			want: map[string]Position{
				"a": {WidthPercent: 97, LeftPercent: 1.5, Lane: 0, Lanes: 1},
			},
		},
		{
			name:   "touching events stay full width",
			events: []Event{ev("a", "08:00", "09:00"), ev("b", "09:00", "10:00")},
			want: map[string]Position{
				"a": {WidthPercent: 97, LeftPercent: 1.5, Lane: 0, Lanes: 1},
				"b": {WidthPercent: 97, LeftPercent: 1.5, Lane: 0, Lanes: 1},
			},
		},
		{
			name:   "nested overlap uses two lanes",
			events: []Event{ev("a", "08:00", "10:00"), ev("b", "08:30", "09:30")},
			want: map[string]Position{
				"a": {WidthPercent: 49, LeftPercent: 0.5, Lane: 0, Lanes: 2},
				"b": {WidthPercent: 49, LeftPercent: 50.5, Lane: 1, Lanes: 2},
			},
		},
		{
			name: "chained overlap reuses freed lane",
			events: []Event{
				ev("a", "08:00", "09:00"),
				ev("b", "08:30", "09:30"),
				ev("c", "09:15", "10:00"),
			},
			want: map[string]Position{
				"a": {WidthPercent: 49, LeftPercent: 0.5, Lane: 0, Lanes: 2},
				"b": {WidthPercent: 49, LeftPercent: 50.5, Lane: 1, Lanes: 2},
				"c": {WidthPercent: 49, LeftPercent: 0.5, Lane: 0, Lanes: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Compute(tt.events)
			require.NotNil(t, got)
			require.Len(t, got, len(tt.want))
			for id, want := range tt.want {
				assert.Equal(t, want.Lane, got[id].Lane, id)
				assert.Equal(t, want.Lanes, got[id].Lanes, id)
				assert.InDelta(t, want.WidthPercent, got[id].WidthPercent, 1e-9, id)
				assert.InDelta(t, want.LeftPercent, got[id].LeftPercent, 1e-9, id)
			}
		})
	}
}

func TestCompute_ThreeLanes(t *testing.T) {
	t.Parallel()

	got := Compute([]Event{
		ev("a", "09:00", "12:00"),
		ev("b", "09:00", "10:00"),
		ev("c", "09:30", "11:00"),
		ev("d", "12:30", "13:00"),
	})

	third := 100.0 / 3
	assert.InDelta(t, third-1, got["a"].WidthPercent, 1e-9)
	assert.InDelta(t, 0.5, got["a"].LeftPercent, 1e-9)
	assert.InDelta(t, third+0.5, got["b"].LeftPercent, 1e-9)
	assert.InDelta(t, 2*third+0.5, got["c"].LeftPercent, 1e-9)
	assert.Equal(t, 3, got["c"].Lanes)
	assert.Equal(t, Position{WidthPercent: 97, LeftPercent: 1.5, Lanes: 1}, got["d"])
}

func TestCompute_StableForEqualStarts(t *testing.T) {
	t.Parallel()

	got := Compute([]Event{
		ev("late", "10:00", "11:00"),
		ev("first", "09:00", "10:30"),
		ev("second", "09:00", "09:45"),
	})

	assert.Equal(t, 0, got["first"].Lane)
	assert.Equal(t, 1, got["second"].Lane)
	assert.Equal(t, 1, got["late"].Lane)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	in := []Event{ev("b", "10:00", "11:00"), ev("a", "09:00", "10:30")}
	snapshot := append([]Event(nil), in...)

	_ = Compute(in)
	assert.Equal(t, snapshot, in)
}

func TestClusters(t *testing.T) {
	t.Parallel()

	clusters := Clusters([]Event{
		ev("c", "09:15", "10:00"),
		ev("a", "08:00", "09:00"),
		ev("b", "08:30", "09:30"),
		ev("d", "10:00", "10:30"),
		ev("e", "13:00", "14:00"),
	})

	require.Len(t, clusters, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(clusters[0]))
	assert.Equal(t, []string{"d"}, ids(clusters[1]))
	assert.Equal(t, []string{"e"}, ids(clusters[2]))
	assert.Nil(t, Clusters(nil))
}

func TestOverlaps(t *testing.T) {
	t.Parallel()

	assert.True(t, Overlaps(ev("", "08:00", "10:00"), ev("", "09:59", "11:00")))
	assert.False(t, Overlaps(ev("", "08:00", "09:00"), ev("", "09:00", "10:00")))
	assert.False(t, Overlaps(ev("", "09:00", "10:00"), ev("", "08:00", "09:00")))
	assert.True(t, Overlaps(ev("", "08:00", "12:00"), ev("", "09:00", "10:00")))
}

// Randomised checks of the properties every layout must hold: no two events
// in one lane intersect, a cluster uses exactly as many lanes as its deepest
// instant, lone events get the default, and reruns are identical.
func TestCompute_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(42, 7))

	for round := range 300 {
		events := randomDay(rng, 1+rng.IntN(14))

		got := Compute(events)
		require.Len(t, got, len(events))
		assert.Equal(t, got, Compute(events), "round %d not idempotent", round)

		for _, cluster := range Clusters(events) {
			columns := Columns(cluster)
			for _, col := range columns {
				for i := range col {
					for j := i + 1; j < len(col); j++ {
						require.False(t, Overlaps(col[i], col[j]), "round %d: %v and %v share a lane", round, col[i], col[j])
					}
				}
			}

			depth := maxDepth(cluster)
			require.Equal(t, depth, len(columns), "round %d: lanes != max simultaneous", round)
			for _, e := range cluster {
				require.Equal(t, len(columns), got[e.ID].Lanes)
			}
		}

		for _, e := range events {
			alone := true
			for _, other := range events {
				if other.ID != e.ID && Overlaps(e, other) {
					alone = false
					break
				}
			}
			if alone {
				assert.Equal(t, SingletonWidthPercent, got[e.ID].WidthPercent, "round %d: %v", round, e)
				assert.Equal(t, SingletonLeftPercent, got[e.ID].LeftPercent, "round %d: %v", round, e)
			}
		}
	}
}

func randomDay(rng *rand.Rand, n int) []Event {
	out := make([]Event, 0, n)
	for i := range n {
		start := 7*60 + 15*rng.IntN(40)
		end := start + 15*(1+rng.IntN(12))
		out = append(out, ev(fmt.Sprintf("e%d", i), FormatClock(start), FormatClock(end)))
	}
	return out
}

func maxDepth(events []Event) int {
	best := 0
	for _, probe := range events {
		n := 0
		for _, e := range events {
			if e.StartTime <= probe.StartTime && probe.StartTime < e.EndTime {
				n++
			}
		}
		best = max(best, n)
	}
	return best
}

func ids(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

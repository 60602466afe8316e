package trace

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"probedash/internal/model"
)

type fakeLocator map[string]string

func (f fakeLocator) Locate(ip string) (string, bool) {
	label, ok := f[ip]
	return label, ok
}

func TestDecodeHops_OrdersByIndex(t *testing.T) {
	t.Parallel()

	hops, err := DecodeHops(`[{"hop":2,"ip":"*","location":"timeout"},{"hop":1,"ip":"10.0.0.1","location":"pending"}]`)
	require.NoError(t, err)
	require.Len(t, hops, 2)
	assert.Equal(t, 1, hops[0].HopIndex)
	assert.Equal(t, "10.0.0.1", hops[0].IP)
	assert.True(t, hops[1].Unresolved())
}

func TestDecodeHops_EmptyAndMalformed(t *testing.T) {
	t.Parallel()

	hops, err := DecodeHops("")
	require.NoError(t, err)
	assert.Empty(t, hops)

	hops, err = DecodeHops("[{")
	require.Error(t, err)
	assert.Empty(t, hops)
}

func TestValidHops_DropsUnresolved(t *testing.T) {
	t.Parallel()

	hops := []model.TraceHop{{HopIndex: 1, IP: "1.1.1.1"}, {HopIndex: 2, IP: "*"}, {HopIndex: 3, IP: ""}, {HopIndex: 4, IP: "8.8.8.8"}}
	got := ValidHops(hops)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[1].HopIndex)
}

func TestEnrich_FillsPlaceholders(t *testing.T) {
	t.Parallel()

	runs := []model.TraceRun{{
		Target: "8.8.8.8",
		Hops: []model.TraceHop{
			{HopIndex: 1, IP: "10.0.0.1", ResolvedLocation: "pending"},
			{HopIndex: 2, IP: "*"},
			{HopIndex: 3, IP: "8.8.8.8", ResolvedLocation: "United States"},
			{HopIndex: 4, IP: "9.9.9.9"},
		},
	}}
	loc := fakeLocator{"10.0.0.1": "Private - RFC1918 - Local Network", "8.8.8.8": "ignored"}

	got := Enrich(runs, loc, "pending")
	require.Len(t, got[0].Hops, 3)
	assert.Equal(t, "Private - RFC1918 - Local Network", got[0].Hops[0].ResolvedLocation)
	assert.Equal(t, "United States", got[0].Hops[1].ResolvedLocation)
	assert.Equal(t, "", got[0].Hops[2].ResolvedLocation)
	assert.Len(t, runs[0].Hops, 4, "input must not be modified")
	assert.Equal(t, "pending", runs[0].Hops[0].ResolvedLocation)
}

func TestLatestByTarget(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	runs := []model.TraceRun{
		{Target: "b", Timestamp: t0},
		{Target: "a", Timestamp: t0},
		{Target: "a", Timestamp: t0.Add(time.Hour), Error: "late"},
	}
	got := LatestByTarget(runs)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Target)
	assert.Equal(t, "late", got[0].Error)
}

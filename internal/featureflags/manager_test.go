package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(BulkUpdateApprovals, 1))
	assert.True(t, m.Enabled(BulkUpdateApprovals, 0))
	assert.Equal(t, SourceDefault, m.Source(BulkUpdateApprovals))
	assert.False(t, m.Enabled("never_registered", 1))
	assert.Equal(t, SourceUnknown, m.Source("never_registered"))

	var nilManager *Manager
	assert.True(t, nilManager.Enabled(BulkUpdateApprovals, 7))
	assert.Equal(t, "on", nilManager.Raw()[BulkUpdateApprovals])
}

func TestConfigOverridesDefault(t *testing.T) {
	m := NewManager(" BULK_UPDATE_APPROVALS = off ")
	assert.False(t, m.Enabled(BulkUpdateApprovals, 1))
	assert.Equal(t, SourceConfig, m.Source(BulkUpdateApprovals))
	assert.Equal(t, "off", m.Raw()[BulkUpdateApprovals])
}

func TestBooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0,g=maybe")
	for _, name := range []string{"a", "c", "e"} {
		assert.True(t, m.Enabled(name, 1), name)
	}
	for _, name := range []string{"b", "d", "f", "g"} {
		assert.False(t, m.Enabled(name, 1), name)
	}
}

func TestPercentageRollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,over=250%,broken=x%")

	assert.True(t, m.Enabled("always", 1))
	assert.True(t, m.Enabled("over", 1))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))
	assert.False(t, m.Enabled("canary", 0), "partial rollout needs a user")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	assert.InDelta(t, 250, enabled, 100)
}

func TestRawAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,=on,w= ")

	raw := m.Raw()
	assert.Equal(t, map[string]string{
		BulkUpdateApprovals: "on",
		"x":                 "on",
		"y":                 "20%",
		"z":                 "off",
	}, raw)

	snap := m.Snapshot(123)
	assert.Len(t, snap, 4)
	assert.True(t, snap["x"])
	assert.False(t, snap["z"])
}

package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r, err := NewRegistry([]string{"Windshield", "RearView", "Windshield"})
	require.NoError(t, err)

	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Has("Windshield"))
	assert.False(t, r.Has("windshield"))
	assert.False(t, r.Has(""))
	assert.Equal(t, []string{"RearView", "Windshield"}, r.Names())
}

func TestRegistry_BlankName(t *testing.T) {
	_, err := NewRegistry([]string{"Windshield", " "})
	assert.Error(t, err)
}

func TestDefaultNames(t *testing.T) {
	r, err := NewRegistry(DefaultNames)
	require.NoError(t, err)
	assert.Equal(t, 6, r.Len())
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "enter LeftMirror", Transition{Zone: "LeftMirror", Event: Enter}.String())
	assert.Equal(t, "exit LeftMirror", Transition{Zone: "LeftMirror", Event: Exit}.String())
	assert.Equal(t, "Event(9)", Event(9).String())
}

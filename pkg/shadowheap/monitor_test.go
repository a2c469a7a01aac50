package shadowheap

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMonitor_MallocFreeRoundTrip(t *testing.T) {
	m, err := NewMonitor()
	require.NoError(t, err)

	p := m.Malloc(256)
	require.NotZero(t, p)
	m.Free(p)
}

func TestNewMonitor_RejectsUnrecognizedEnvVar(t *testing.T) {
	t.Setenv("SHADOWHEAP_NOT_A_REAL_SWITCH", "1")
	_, err := NewMonitor()
	require.Error(t, err)
}

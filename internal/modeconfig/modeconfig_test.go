package modeconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenUnset(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.False(t, cfg.DisablePointerChecks)
	assert.Equal(t, uint64(DefaultInitialCapacity), cfg.InitialCapacity)
}

func TestLoad_ParsesDisableSwitches(t *testing.T) {
	cfg, err := Load([]string{
		"SHADOWHEAP_DISABLE_PTRCHECKS=1",
		"SHADOWHEAP_DISABLE_TCACHECKS=0",
		"IRRELEVANT_VAR=1",
	})
	require.NoError(t, err)
	assert.True(t, cfg.DisablePointerChecks)
	assert.False(t, cfg.DisableTcacheChecks)
}

func TestLoad_RejectsUnknownShadowheapVar(t *testing.T) {
	_, err := Load([]string{"SHADOWHEAP_TYPOED_SWITCH=1"})
	require.Error(t, err)
}

func TestLoad_RejectsMalformedBoolean(t *testing.T) {
	_, err := Load([]string{"SHADOWHEAP_DISABLE_PTRCHECKS=yes"})
	require.Error(t, err)
}

func TestLoad_SizeInitialAcceptsHexAndDecimal(t *testing.T) {
	cfg, err := Load([]string{"SHADOWHEAP_SIZE_INITIAL=0x100"})
	require.NoError(t, err)
	assert.Equal(t, uint64(256), cfg.InitialCapacity)

	cfg, err = Load([]string{"SHADOWHEAP_SIZE_INITIAL=256"})
	require.NoError(t, err)
	assert.Equal(t, uint64(256), cfg.InitialCapacity)
}

func TestLoad_RejectsMalformedSize(t *testing.T) {
	_, err := Load([]string{"SHADOWHEAP_SIZE_INITIAL=not-a-number"})
	require.Error(t, err)
}

// Copyright 2024 Mike Carlton
// Released under terms of the MIT License:
//   http://www.opensource.org/licenses/mit-license.php

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultWhenFileAbsent(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Save(Config{Precision: 6}))
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint32(6), cfg.Precision)
}

func TestLoadClampsPrecisionAboveTwenty(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	require.NoError(t, Save(Config{Precision: 99}))
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, uint32(20), cfg.Precision)
}

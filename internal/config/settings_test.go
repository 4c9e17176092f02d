package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	attempts := 5
	delay := uint64(1000)
	backoff := 2.0
	timeout := uint64(5000)

	original := Settings{
		Devices: []DriverConfig{{
			ID:                   "srv",
			Name:                 "Primary",
			Address:              "opc.tcp://127.0.0.1:4840/",
			ScanRateMS:           1000,
			ConnectRetryAttempts: &attempts,
			ConnectRetryDelayMS:  &delay,
			ConnectRetryBackoff:  &backoff,
			ConnectTimeoutMS:     &timeout,
		}},
		Tags: []TagConfig{{
			Path:       "Plant/Temperature",
			DriverID:   "srv",
			Address:    "ns=2;s=Temperature",
			PollRateMS: 1000,
		}},
	}

	require.NoError(t, Save(path, original))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, original.Devices[0].ID, loaded.Devices[0].ID)
	assert.Equal(t, original.Devices[0].Address, loaded.Devices[0].Address)
	assert.Equal(t, original.Tags, loaded.Tags)
	assert.Equal(t, 5, loaded.Devices[0].Attempts())
	assert.Equal(t, 2.0, loaded.Devices[0].Backoff())
}

func TestDriverConfigDefaults(t *testing.T) {
	d := DriverConfig{ID: "x"}
	assert.Equal(t, DefaultConnectRetryAttempts, d.Attempts())
	assert.Equal(t, uint64(DefaultConnectRetryDelayMS), d.DelayMS())
	assert.Equal(t, DefaultConnectRetryBackoff, d.Backoff())
	assert.Equal(t, uint64(DefaultConnectTimeoutMS), d.TimeoutMS())
	assert.Equal(t, "opcua", d.DriverType())
}

func TestStoreReplaceFailureLeavesCurrentUnchanged(t *testing.T) {
	store := NewStore(Settings{Devices: []DriverConfig{{ID: "original"}}})

	err := store.Replace("/nonexistent/dir/config.toml", Settings{Devices: []DriverConfig{{ID: "replacement"}}})
	require.Error(t, err)

	assert.Equal(t, "original", store.Get().Devices[0].ID)
}

func TestStoreReplaceSuccessSwapsCurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	store := NewStore(Settings{Devices: []DriverConfig{{ID: "original"}}})

	require.NoError(t, store.Replace(path, Settings{Devices: []DriverConfig{{ID: "replacement"}}}))
	assert.Equal(t, "replacement", store.Get().Devices[0].ID)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()

	assert.Equal(t, "MT", p.State)
	assert.Equal(t, []string{"bozeman", "livingston", "missoula"}, p.AggregateCities)
	assert.Equal(t, []float64{-111.0640, 45.6903}, p.CityOverrides["bozeman"])
	assert.Equal(t, []float64{-112.5393, 45.9987}, p.ManualPlaceOverrides["butte"])
	assert.Equal(t, "anaconda", p.PlaceAliases["anaconda-deer lodge county"])
	assert.Equal(t, []string{"ZIP", "EMPLOYER", "ADDRESS", "PHONE"}, p.PlaceholderColumns)
	assert.True(t, p.IsAggregate("missoula"))
	assert.False(t, p.IsAggregate("helena"))
	assert.NoError(t, p.Validate())
}

func TestPolicy_IsAggregate_IgnoresCaseAndSpace(t *testing.T) {
	p := &Policy{AggregateCities: []string{" Bozeman "}}
	assert.True(t, p.IsAggregate("bozeman"))
	assert.True(t, p.IsAggregate("BOZEMAN "))
	assert.False(t, p.IsAggregate(""))
	assert.False(t, p.IsAggregate("belgrade"))
}

func TestLoadPolicy_EmptyPathUsesDefault(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)
}

func TestLoadPolicy_NormalizesKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := `
policy:
  state: " wy "
  aggregate_cities: [" Cheyenne", casper, CASPER]
  city_overrides:
    "Cheyenne ": [-104.82, 41.14]
  manual_place_overrides:
    Laramie: [-105.59, 41.31]
  place_aliases:
    "Laramie City ": " LARAMIE"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	p, err := LoadPolicy(path)
	require.NoError(t, err)

	assert.Equal(t, "WY", p.State)
	assert.Equal(t, []string{"casper", "cheyenne"}, p.AggregateCities)
	assert.Equal(t, []float64{-104.82, 41.14}, p.CityOverrides["cheyenne"])
	assert.Equal(t, []float64{-105.59, 41.31}, p.ManualPlaceOverrides["laramie"])
	assert.Equal(t, "laramie", p.PlaceAliases["laramie city"])
	assert.Equal(t, []string{"ZIP", "EMPLOYER", "ADDRESS", "PHONE"}, p.PlaceholderColumns)
}

func TestLoadPolicy_BadCoordinate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	doc := `
policy:
  city_overrides:
    bozeman: [-111.06]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "city_overrides[bozeman]")
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadPolicy_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy: [\n"), 0o644))

	_, err := LoadPolicy(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse policy")
}

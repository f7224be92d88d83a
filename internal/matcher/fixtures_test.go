package matcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const scenarioFixtures = `{
  "VehicleMasters": [
    {"_id": {"$oid": "64b7f0c2a1b2c3d4e5f60718"}, "status": "Active", "states": ["WI", "IL"]},
    {"_id": "M2", "status": "Inactive", "states": ["WI"]}
  ],
  "Quotes": [
    {"_id": "Q1", "legacyQuotes": [
      {"_id": "L1", "sourceSystem": 1, "assets": [
        {"_id": "A1", "year": 2015, "make": 3, "model": 7, "bodyStyle": 2}
      ]}
    ]}
  ],
  "VehicleCatalogs": [
    {"versionId": {"$oid": "64b7f0c2a1b2c3d4e5f60718"}, "year": 2015,
     "makes": [{"_id": "MK1", "key": "3"}],
     "models": [{"_id": "MG1", "models": [{"_id": "MD1", "key": "7"}]}],
     "bodyStyles": [{"_id": "MD1", "bodyStyles": [{"_id": "BS1", "key": "2"}]}]}
  ]
}`

func TestParseFixtures(t *testing.T) {
	f, err := ParseFixtures([]byte(scenarioFixtures))
	require.NoError(t, err)

	require.Len(t, f.VehicleMasters, 2)
	oid, err := primitive.ObjectIDFromHex("64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	assert.Equal(t, oid, f.VehicleMasters[0].ID)
	require.Len(t, f.Quotes, 1)
	assert.Equal(t, 1, f.Quotes[0].LegacyQuotes[0].SourceSystem)
	require.Len(t, f.VehicleCatalogs, 1)
	assert.Equal(t, 2015, f.VehicleCatalogs[0].Year)
}

func TestParseFixtures_Invalid(t *testing.T) {
	_, err := ParseFixtures([]byte(`{"VehicleMasters": [`))
	assert.Error(t, err)
}

func TestLoadFixtures_EndToEnd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(scenarioFixtures), 0o600))

	src, err := LoadFixtures(path)
	require.NoError(t, err)
	ctx := context.Background()

	cur, err := src.ActiveVersions(ctx, "WI")
	require.NoError(t, err)
	version, ok, err := First(ctx, cur)
	require.NoError(t, err)
	require.True(t, ok)

	assets, err := src.LegacyAssets(ctx)
	require.NoError(t, err)
	rows, err := Collect(ctx, assets)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	a := rows[0].LegacyQuote.Asset
	year, ok := a.Year.(int32)
	require.True(t, ok)

	matchCur, err := src.MatchCatalogs(ctx, queryFor(version.ID, int(year), a.Make, a.Model, a.BodyStyle))
	require.NoError(t, err)
	matches, err := Collect(ctx, matchCur)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "MD1", matches[0].Models.Model.ID)
}

func TestLoadFixtures_MissingFile(t *testing.T) {
	_, err := LoadFixtures(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

package matcher

import (
	"fmt"
	"os"

	"quote-vehicle-reconciler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

// Fixtures is an offline snapshot of the three collections, written as
// MongoDB Extended JSON keyed by collection name.
type Fixtures struct {
	VehicleMasters  []models.VehicleMaster  `bson:"VehicleMasters"`
	Quotes          []models.Quote          `bson:"Quotes"`
	VehicleCatalogs []models.VehicleCatalog `bson:"VehicleCatalogs"`
}

// ParseFixtures decodes canonical or relaxed Extended JSON.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var f Fixtures
	if err := bson.UnmarshalExtJSON(data, false, &f); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	return &f, nil
}

// LoadFixtures reads a fixture file into a MemorySource.
func LoadFixtures(path string) (*MemorySource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	f, err := ParseFixtures(data)
	if err != nil {
		return nil, err
	}
	return NewMemorySource(f.VehicleMasters, f.Quotes, f.VehicleCatalogs), nil
}

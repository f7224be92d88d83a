// internal/models/vehicle_master.go
package models

const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// VehicleMaster is a document of the VehicleMasters collection. Its _id is the
// versionId that scopes a vehicle catalog snapshot.
type VehicleMaster struct {
	ID     interface{} `bson:"_id" json:"_id"`
	Status string      `bson:"status" json:"status"`
	States []string    `bson:"states" json:"states"`
}

// VersionRef is the projection returned by the active-state filter.
type VersionRef struct {
	ID interface{} `bson:"_id" json:"_id"`
}

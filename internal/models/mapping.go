package models

// MappingTable identifies which correspondence table a DataMapping belongs to
// on the test-management server.
type MappingTable string

const (
	MappingTableIncidents  MappingTable = "incidents"
	MappingTableStatuses   MappingTable = "statuses"
	MappingTableTypes      MappingTable = "types"
	MappingTablePriorities MappingTable = "priorities"
	MappingTableSeverities MappingTable = "severities"
	MappingTableReleases   MappingTable = "releases"
	MappingTableUsers      MappingTable = "users"
	MappingTableCustom     MappingTable = "custom-properties"
)

// DataMapping links an internal numeric identifier in the test-management
// system to a string key in an external bug tracker.
//
// ProjectID is zero for tables that are not project scoped (users). When
// several external records correspond to one internal id, exactly one record
// should carry IsPrimary.
type DataMapping struct {
	ProjectID   int    `json:"project_id,omitempty"`
	InternalID  int    `json:"internal_id"`
	ExternalKey string `json:"external_key"`
	IsPrimary   bool   `json:"is_primary,omitempty"`
}

// MappingCollection is the snapshot of one mapping table fetched at the start
// of a project sync pass. The server returns records in storage order and
// lookup semantics are first-match-wins, so order is preserved as received.
type MappingCollection struct {
	Table    MappingTable  `json:"table"`
	Mappings []DataMapping `json:"mappings"`
}

package mapping

import (
	"context"
	"fmt"

	"github.com/ternarybob/nexo/internal/models"
)

// Store persists mapping changes back to the test-management server in
// batches. Implemented by the testmgmt client.
type Store interface {
	AddMappings(ctx context.Context, projectID int, table models.MappingTable, add []models.DataMapping) error
	RemoveMappings(ctx context.Context, projectID int, table models.MappingTable, remove []models.DataMapping) error
}

// Journal accumulates mapping changes made during a project sync pass.
// Mappings are never updated in place: a correction is recorded as an add of
// the new record plus a remove of the old one. Changes stay local until
// Flush pushes them as batches at a phase checkpoint.
//
// Not safe for concurrent use; a pass is single threaded.
type Journal struct {
	projectID int
	added     map[models.MappingTable][]models.DataMapping
	removed   map[models.MappingTable][]models.DataMapping
}

// NewJournal creates an empty journal for one project pass.
func NewJournal(projectID int) *Journal {
	return &Journal{
		projectID: projectID,
		added:     make(map[models.MappingTable][]models.DataMapping),
		removed:   make(map[models.MappingTable][]models.DataMapping),
	}
}

// Add records a new mapping to be persisted at the next checkpoint.
func (j *Journal) Add(table models.MappingTable, m models.DataMapping) {
	j.added[table] = append(j.added[table], m)
}

// Remove records an obsolete mapping for batch removal at the next
// checkpoint.
func (j *Journal) Remove(table models.MappingTable, m models.DataMapping) {
	j.removed[table] = append(j.removed[table], m)
}

// Replace records a correction: the old record is removed and the new one
// added, both at the next checkpoint.
func (j *Journal) Replace(table models.MappingTable, old, new models.DataMapping) {
	j.Remove(table, old)
	j.Add(table, new)
}

// Pending reports how many changes are waiting to be flushed.
func (j *Journal) Pending() int {
	n := 0
	for _, ms := range j.added {
		n += len(ms)
	}
	for _, ms := range j.removed {
		n += len(ms)
	}
	return n
}

// Flush pushes all accumulated changes to the store, adds before removes,
// one batch call per table per direction. On success the journal is reset;
// on failure it is left intact so the checkpoint can be retried.
func (j *Journal) Flush(ctx context.Context, store Store) error {
	for table, ms := range j.added {
		if len(ms) == 0 {
			continue
		}
		if err := store.AddMappings(ctx, j.projectID, table, ms); err != nil {
			return fmt.Errorf("failed to add %s mappings: %w", table, err)
		}
	}
	for table, ms := range j.removed {
		if len(ms) == 0 {
			continue
		}
		if err := store.RemoveMappings(ctx, j.projectID, table, ms); err != nil {
			return fmt.Errorf("failed to remove %s mappings: %w", table, err)
		}
	}
	j.added = make(map[models.MappingTable][]models.DataMapping)
	j.removed = make(map[models.MappingTable][]models.DataMapping)
	return nil
}

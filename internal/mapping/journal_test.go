package mapping

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/nexo/internal/models"
)

type fakeStore struct {
	added   map[models.MappingTable][]models.DataMapping
	removed map[models.MappingTable][]models.DataMapping
	failOn  models.MappingTable
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		added:   make(map[models.MappingTable][]models.DataMapping),
		removed: make(map[models.MappingTable][]models.DataMapping),
	}
}

func (f *fakeStore) AddMappings(_ context.Context, _ int, table models.MappingTable, add []models.DataMapping) error {
	if table == f.failOn {
		return errors.New("server unavailable")
	}
	f.added[table] = append(f.added[table], add...)
	return nil
}

func (f *fakeStore) RemoveMappings(_ context.Context, _ int, table models.MappingTable, remove []models.DataMapping) error {
	if table == f.failOn {
		return errors.New("server unavailable")
	}
	f.removed[table] = append(f.removed[table], remove...)
	return nil
}

func TestJournalFlush(t *testing.T) {
	j := NewJournal(1)
	j.Add(models.MappingTableIncidents, models.DataMapping{ProjectID: 1, InternalID: 10, ExternalKey: "BUG-1", IsPrimary: true})
	j.Add(models.MappingTableIncidents, models.DataMapping{ProjectID: 1, InternalID: 11, ExternalKey: "BUG-2", IsPrimary: true})
	j.Add(models.MappingTableReleases, models.DataMapping{ProjectID: 1, InternalID: 3, ExternalKey: "v1.2"})

	assert.Equal(t, 3, j.Pending())

	store := newFakeStore()
	require.NoError(t, j.Flush(context.Background(), store))

	assert.Len(t, store.added[models.MappingTableIncidents], 2)
	assert.Len(t, store.added[models.MappingTableReleases], 1)
	assert.Equal(t, 0, j.Pending(), "flush should reset the journal")

	// A second flush is a no-op.
	require.NoError(t, j.Flush(context.Background(), store))
	assert.Len(t, store.added[models.MappingTableIncidents], 2)
}

func TestJournalReplace(t *testing.T) {
	old := models.DataMapping{ProjectID: 1, InternalID: 10, ExternalKey: "BUG-1"}
	updated := models.DataMapping{ProjectID: 1, InternalID: 10, ExternalKey: "BUG-99", IsPrimary: true}

	j := NewJournal(1)
	j.Replace(models.MappingTableIncidents, old, updated)
	assert.Equal(t, 2, j.Pending())

	store := newFakeStore()
	require.NoError(t, j.Flush(context.Background(), store))

	require.Len(t, store.added[models.MappingTableIncidents], 1)
	require.Len(t, store.removed[models.MappingTableIncidents], 1)
	assert.Equal(t, "BUG-99", store.added[models.MappingTableIncidents][0].ExternalKey)
	assert.Equal(t, "BUG-1", store.removed[models.MappingTableIncidents][0].ExternalKey)
}

func TestJournalFlushFailureKeepsChanges(t *testing.T) {
	j := NewJournal(1)
	j.Add(models.MappingTableIncidents, models.DataMapping{ProjectID: 1, InternalID: 10, ExternalKey: "BUG-1"})

	store := newFakeStore()
	store.failOn = models.MappingTableIncidents
	err := j.Flush(context.Background(), store)
	require.Error(t, err)
	assert.Equal(t, 1, j.Pending(), "failed flush should keep pending changes for retry")

	// Retry after the store recovers.
	store.failOn = ""
	require.NoError(t, j.Flush(context.Background(), store))
	assert.Equal(t, 0, j.Pending())
	assert.Len(t, store.added[models.MappingTableIncidents], 1)
}

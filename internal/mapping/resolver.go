// Package mapping provides lookup and bookkeeping over the data-mapping
// tables that link internal test-management identifiers to external bug
// tracker keys.
//
// Lookups are pure: they scan the given slice in order, never mutate it, and
// return nil when nothing matches. Not-found is an expected outcome, not an
// error; callers decide what it means for the field they are translating.
// Because the server never de-duplicates a mapping table, more than one
// record can match a query, and first-match-in-order wins.
package mapping

import "github.com/ternarybob/nexo/internal/models"

// FindByInternalID returns the first mapping whose project and internal id
// both match, or nil.
func FindByInternalID(projectID, internalID int, mappings []models.DataMapping) *models.DataMapping {
	for i := range mappings {
		if mappings[i].ProjectID == projectID && mappings[i].InternalID == internalID {
			return &mappings[i]
		}
	}
	return nil
}

// FindGlobalByInternalID returns the first mapping matching the internal id
// alone. Used for tables that are not project scoped, such as users, where
// ProjectID is never meaningfully populated.
func FindGlobalByInternalID(internalID int, mappings []models.DataMapping) *models.DataMapping {
	for i := range mappings {
		if mappings[i].InternalID == internalID {
			return &mappings[i]
		}
	}
	return nil
}

// FindByExternalKey returns the first mapping whose project and external key
// both match, or nil. With onlyPrimary set, records without the primary flag
// are passed over even when they match; a collection holding only
// non-primary matches yields nil rather than falling back.
func FindByExternalKey(projectID int, externalKey string, mappings []models.DataMapping, onlyPrimary bool) *models.DataMapping {
	for i := range mappings {
		if mappings[i].ProjectID != projectID || mappings[i].ExternalKey != externalKey {
			continue
		}
		if onlyPrimary && !mappings[i].IsPrimary {
			continue
		}
		return &mappings[i]
	}
	return nil
}

// FindGlobalByExternalKey returns the first mapping matching the external
// key alone, ignoring project scope and the primary flag. Used for user
// mappings.
func FindGlobalByExternalKey(externalKey string, mappings []models.DataMapping) *models.DataMapping {
	for i := range mappings {
		if mappings[i].ExternalKey == externalKey {
			return &mappings[i]
		}
	}
	return nil
}

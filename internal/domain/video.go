package domain

import (
	"fmt"
	"strings"
)

// VideoRecord is the unit persisted into the vector index.
type VideoRecord struct {
	ID        string    `json:"id"`
	Embedding []float32 `json:"embedding"`
	Metadata  Metadata  `json:"metadata"`
}

// Validate enforces the persistence invariants: an id, a non-empty vector and
// a storage location in the metadata.
func (r VideoRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return InvalidInputf("video record id is required")
	}
	if len(r.Embedding) == 0 {
		return InvalidInputf("video record %q has an empty embedding", r.ID)
	}
	if strings.TrimSpace(r.Metadata.StorageLocation()) == "" {
		return InvalidInputf("video record %q metadata lacks %s", r.ID, MetaStorageLocation)
	}
	return nil
}

func (r VideoRecord) String() string {
	return fmt.Sprintf("VideoRecord{id=%s dim=%d location=%s}", r.ID, len(r.Embedding), r.Metadata.StorageLocation())
}

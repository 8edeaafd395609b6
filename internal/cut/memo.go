package cut

import (
	"fmt"
	"time"
)

// EntityTypeCut is the entity type of memos attached to cut records.
const EntityTypeCut = "cut"

// Memo is free-text attached to one field of one entity. A memo with empty
// content is semantically absent and is never stored or persisted.
type Memo struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	FieldKey   string    `json:"fieldKey"`
	Content    string    `json:"content"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Key returns the store key for this memo.
func (m Memo) Key() string {
	return MemoKey(m.EntityType, m.EntityID, m.FieldKey)
}

// MemoKey builds the composite memo key.
func MemoKey(entityType, entityID, fieldKey string) string {
	return fmt.Sprintf("%s:%s_%s", entityType, entityID, fieldKey)
}

package configurator

import "context"

// StorageKey is the key the conversation id is persisted under.
const StorageKey = "spapperi_conversation_id"

// IdentityStore persists the single conversation id across process restarts.
// Load returns ok=false when nothing is stored.
type IdentityStore interface {
	Load(ctx context.Context) (id string, ok bool, err error)
	Save(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

package editor

import (
	"fmt"
	"sort"
	"strings"

	"annotator/internal/domain"

	"github.com/samber/lo"
)

// Action is an editor command reachable from the keyboard.
type Action string

const (
	ActionAdd            Action = "add"
	ActionDelete         Action = "delete"
	ActionCancelPolygon  Action = "cancel_polygon"
	ActionUndoVertex     Action = "undo_vertex"
	ActionRemovePolygon  Action = "remove_polygon"
	ActionToggleGridCell Action = "toggle_grid_cell"
	ActionToggleGrid     Action = "toggle_grid"
)

// DefaultBindings returns the stock key for every action.
func DefaultBindings() map[Action]string {
	return map[Action]string{
		ActionAdd:            "e",
		ActionDelete:         "r",
		ActionCancelPolygon:  "Escape",
		ActionUndoVertex:     "Backspace",
		ActionRemovePolygon:  "b",
		ActionToggleGridCell: "w",
		ActionToggleGrid:     "g",
	}
}

// Keymap resolves keys to actions. Keys match case-insensitively, and every
// bound key is intercepted so the viewer's own handling never sees it.
type Keymap struct {
	byKey    map[string]Action
	bindings map[Action]string
}

// NewKeymap builds a Keymap from DefaultBindings overridden by bindings.
// Unknown actions, empty keys and keys bound twice are rejected.
func NewKeymap(bindings map[Action]string) (*Keymap, error) {
	merged := DefaultBindings()
	for action, key := range bindings {
		if _, ok := merged[action]; !ok {
			return nil, fmt.Errorf("%w: unknown action %q", domain.ErrValidation, action)
		}
		merged[action] = key
	}

	k := &Keymap{byKey: make(map[string]Action, len(merged)), bindings: merged}
	for action, key := range merged {
		norm := normalizeKey(key)
		if norm == "" {
			return nil, fmt.Errorf("%w: empty key for %s", domain.ErrValidation, action)
		}
		if other, dup := k.byKey[norm]; dup {
			return nil, fmt.Errorf("%w: key %q bound to both %s and %s", domain.ErrValidation, key, other, action)
		}
		k.byKey[norm] = action
	}
	return k, nil
}

// MustDefaultKeymap returns the stock Keymap.
func MustDefaultKeymap() *Keymap {
	k, err := NewKeymap(nil)
	if err != nil {
		panic(err)
	}
	return k
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Lookup returns the action bound to key.
func (k *Keymap) Lookup(key string) (Action, bool) {
	a, ok := k.byKey[normalizeKey(key)]
	return a, ok
}

// Intercepts reports whether key must be withheld from the viewer's
// default key handling.
func (k *Keymap) Intercepts(key string) bool {
	_, ok := k.Lookup(key)
	return ok
}

// Bindings returns a copy of the action-to-key table.
func (k *Keymap) Bindings() map[Action]string {
	out := make(map[Action]string, len(k.bindings))
	for a, key := range k.bindings {
		out[a] = key
	}
	return out
}

// Actions lists the bound actions in a stable order.
func (k *Keymap) Actions() []Action {
	out := lo.Keys(k.bindings)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

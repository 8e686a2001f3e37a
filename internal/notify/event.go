// Package notify turns booking events into emails.
package notify

import (
	"fmt"
	"strings"
)

// EventKind is a business event on a booking. Values are stable on the wire.
type EventKind string

const (
	EventAdd      EventKind = "ADD"
	EventModify   EventKind = "MODIFY"
	EventDelete   EventKind = "DELETE"
	EventJoin     EventKind = "JOIN"
	EventLeave    EventKind = "LEAVE"
	EventKick     EventKind = "KICK"
	EventCanceled EventKind = "CANCELED"
)

// AllEventKinds is the consent vocabulary in display order.
var AllEventKinds = []EventKind{
	EventAdd,
	EventModify,
	EventDelete,
	EventJoin,
	EventLeave,
	EventKick,
	EventCanceled,
}

func (k EventKind) String() string {
	return string(k)
}

func (k EventKind) Valid() bool {
	for _, known := range AllEventKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Triggerable reports whether any booking operation emits this kind.
// CANCELED can be consented to but nothing raises it.
func (k EventKind) Triggerable() bool {
	return k.Valid() && k != EventCanceled
}

func ParseEventKind(raw string) (EventKind, error) {
	k := EventKind(strings.ToUpper(strings.TrimSpace(raw)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown event kind %q", raw)
	}
	return k, nil
}

// NormalizeConsents validates and de-duplicates a consent list, keeping order.
func NormalizeConsents(raw []string) ([]string, error) {
	out := make([]string, 0, len(raw))
	seen := make(map[EventKind]bool, len(raw))
	for _, r := range raw {
		k, err := ParseEventKind(r)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k.String())
	}
	return out, nil
}

package store

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Event kinds published on the change feed. EventAll subscribes to every
// kind on a table.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
	EventAll    = "*"
)

// Row is the payload of a change event: column name to value for the row
// that was written.
type Row map[string]any

// Event is one change notification.
type Event struct {
	Table string `json:"table"`
	Type  string `json:"type"`
	Row   Row    `json:"row"`
}

// Subscription is one listener on the feed. Events arrive on C until Close
// is called; a slow consumer has events dropped rather than blocking writers.
type Subscription struct {
	C      chan Event
	feed   *Feed
	id     int
	table  string
	event  string
	filter condition
}

func (s *Subscription) Close() {
	s.feed.remove(s.id)
}

// Feed is the in-process realtime change feed. Writers publish a row after a
// successful insert or delete; subscribers receive the rows whose filter
// predicate matches. An optional Bridge mirrors events across instances.
type Feed struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
	bridge *Bridge
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]*Subscription)}
}

// Subscribe registers a listener for events on table of the given type whose
// row matches filter. An empty filter matches every row. A malformed filter
// is an error so a typo never turns into a silent firehose.
func (f *Feed) Subscribe(table, event, filter string) (*Subscription, error) {
	cond, err := parseFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("bad feed filter %q: %w", filter, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	sub := &Subscription{
		C:      make(chan Event, 64),
		feed:   f,
		id:     f.nextID,
		table:  table,
		event:  event,
		filter: cond,
	}
	f.subs[sub.id] = sub
	return sub, nil
}

func (f *Feed) remove(id int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sub, ok := f.subs[id]; ok {
		delete(f.subs, id)
		close(sub.C)
	}
}

// Publish fans an event out to matching local subscribers and, when a bridge
// is attached, to the other instances sharing the feed.
func (f *Feed) Publish(table, event string, row Row) {
	f.deliver(Event{Table: table, Type: event, Row: row})

	f.mu.RLock()
	bridge := f.bridge
	f.mu.RUnlock()
	if bridge != nil {
		bridge.forward(Event{Table: table, Type: event, Row: row})
	}
}

// deliver sends to local subscribers only. The bridge uses it to re-inject
// events received from other instances without echoing them back out.
func (f *Feed) deliver(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, sub := range f.subs {
		if sub.table != ev.Table {
			continue
		}
		if sub.event != EventAll && sub.event != ev.Type {
			continue
		}
		if !sub.filter.matches(ev.Row) {
			continue
		}
		select {
		case sub.C <- ev:
		default:
			log.Printf("feed: dropping %s %s event for slow subscriber %d", ev.Table, ev.Type, sub.id)
		}
	}
}

// --- filter predicates ---
//
// Filters use the compact shape the hosted backend's change feed spoke:
//
//	sender_id=eq.abc
//	and(sender_id.eq.abc,receiver_id.eq.def)
//	or(and(sender_id.eq.a,receiver_id.eq.b),and(sender_id.eq.b,receiver_id.eq.a))

type condition interface {
	matches(row Row) bool
}

type matchAll struct{}

func (matchAll) matches(Row) bool { return true }

type eqCond struct {
	column string
	value  string
}

func (c eqCond) matches(row Row) bool {
	v, ok := row[c.column]
	if !ok {
		return false
	}
	return fmt.Sprintf("%v", v) == c.value
}

type andCond []condition

func (cs andCond) matches(row Row) bool {
	for _, c := range cs {
		if !c.matches(row) {
			return false
		}
	}
	return true
}

type orCond []condition

func (cs orCond) matches(row Row) bool {
	for _, c := range cs {
		if c.matches(row) {
			return true
		}
	}
	return false
}

func parseFilter(filter string) (condition, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return matchAll{}, nil
	}

	// Top level allows the `column=eq.value` spelling
	if i := strings.Index(filter, "=eq."); i > 0 && !strings.ContainsAny(filter[:i], "(,") {
		return eqCond{column: filter[:i], value: filter[i+len("=eq."):]}, nil
	}
	return parseCondition(filter)
}

func parseCondition(s string) (condition, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "and(") && strings.HasSuffix(s, ")"):
		parts, err := splitArgs(s[len("and(") : len(s)-1])
		if err != nil {
			return nil, err
		}
		conds := make(andCond, 0, len(parts))
		for _, p := range parts {
			c, err := parseCondition(p)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return conds, nil

	case strings.HasPrefix(s, "or(") && strings.HasSuffix(s, ")"):
		parts, err := splitArgs(s[len("or(") : len(s)-1])
		if err != nil {
			return nil, err
		}
		conds := make(orCond, 0, len(parts))
		for _, p := range parts {
			c, err := parseCondition(p)
			if err != nil {
				return nil, err
			}
			conds = append(conds, c)
		}
		return conds, nil

	default:
		// column.eq.value
		parts := strings.SplitN(s, ".", 3)
		if len(parts) != 3 || parts[1] != "eq" || parts[0] == "" {
			return nil, fmt.Errorf("unsupported condition %q", s)
		}
		return eqCond{column: parts[0], value: parts[2]}, nil
	}
}

// splitArgs splits on top-level commas, respecting nested parentheses.
func splitArgs(s string) ([]string, error) {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	parts = append(parts, s[start:])
	return parts, nil
}

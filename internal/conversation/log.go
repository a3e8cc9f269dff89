package conversation

import (
	"sort"

	"github.com/4xmen/whisper/internal/models"
)

// messageLog is the single ordered append-only sequence both the bulk load
// and the realtime feed insert into. Entries are keyed (timestamp, id) and
// deduplicated by id, so a push arriving while the initial load is still in
// flight can neither double-enter nor clobber newer state.
type messageLog struct {
	entries []models.ChatMessage
	seen    map[string]bool
}

func newMessageLog() *messageLog {
	return &messageLog{seen: make(map[string]bool)}
}

// insert places msg at its ordered position. Returns false when the id was
// already present.
func (l *messageLog) insert(msg models.ChatMessage) bool {
	if l.seen[msg.ID] {
		return false
	}
	l.seen[msg.ID] = true

	i := sort.Search(len(l.entries), func(i int) bool {
		e := l.entries[i]
		if !e.Timestamp.Equal(msg.Timestamp) {
			return e.Timestamp.After(msg.Timestamp)
		}
		return e.ID > msg.ID
	})

	l.entries = append(l.entries, models.ChatMessage{})
	copy(l.entries[i+1:], l.entries[i:])
	l.entries[i] = msg
	return true
}

func (l *messageLog) remove(id string) bool {
	if !l.seen[id] {
		return false
	}
	delete(l.seen, id)
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries = append(l.entries[:i], l.entries[i+1:]...)
			break
		}
	}
	return true
}

func (l *messageLog) clear() {
	l.entries = nil
	l.seen = make(map[string]bool)
}

func (l *messageLog) snapshot() []models.ChatMessage {
	return append([]models.ChatMessage(nil), l.entries...)
}

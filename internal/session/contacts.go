package session

import (
	"database/sql"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/store"
)

// AddContact looks up a user by email (falling back to a username match),
// creates a pending friend request, and appends a provisional contact to the
// local snapshot. Local state is only touched after the insert succeeds.
func (m *Manager) AddContact(userID, email string) (*models.Contact, error) {
	sess := m.Get(userID)
	if sess == nil {
		return nil, errs.Auth("no active session")
	}

	var candidateID string
	err := m.db.QueryRow("SELECT id FROM profiles WHERE email = ?", normalizeEmail(email)).Scan(&candidateID)
	if err == sql.ErrNoRows {
		err = m.db.QueryRow(
			"SELECT id FROM profiles WHERE username LIKE ? ESCAPE '\\' ORDER BY username LIMIT 1",
			escapeLike(email)+"%",
		).Scan(&candidateID)
	}
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Remote("failed to query profile", err)
	}

	if candidateID == userID {
		return nil, errs.Validation("cannot add yourself")
	}

	var isContact bool
	err = m.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM contacts WHERE user_id = ? AND contact_id = ?)",
		userID, candidateID,
	).Scan(&isContact)
	if err != nil {
		return nil, errs.Remote("failed to query contacts", err)
	}
	if isContact {
		return nil, errs.Conflict("already a contact")
	}

	// A pending request in either direction blocks a new one: at most one
	// non-terminal request per unordered pair.
	var pendingExists bool
	err = m.db.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM friend_requests
			WHERE status = 'pending'
			  AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))
		)
	`, userID, candidateID, candidateID, userID).Scan(&pendingExists)
	if err != nil {
		return nil, errs.Remote("failed to query friend requests", err)
	}
	if pendingExists {
		return nil, errs.Conflict("contact request already exists")
	}

	requestID := uuid.NewString()
	now := time.Now().UTC()
	_, err = m.db.Exec(
		"INSERT INTO friend_requests (id, sender_id, receiver_id, status, created_at) VALUES (?, ?, ?, 'pending', ?)",
		requestID, userID, candidateID, now,
	)
	if err != nil {
		return nil, errs.Remote("failed to insert friend request", err)
	}

	m.feed.Publish("friend_requests", store.EventInsert, store.Row{
		"id": requestID, "sender_id": userID, "receiver_id": candidateID, "status": models.RequestPending,
	})

	var contact models.Contact
	err = m.db.QueryRow(`
		SELECT id, username, email, avatar, status, status_message, created_at
		FROM profiles WHERE id = ?
	`, candidateID).Scan(
		&contact.ID, &contact.Name, &contact.Email, &contact.Avatar,
		&contact.Status, &contact.StatusMessage, &contact.LastActive,
	)
	if err != nil {
		return nil, errs.Remote("failed to query profile", err)
	}
	contact.RequestStatus = models.RequestPending

	request := models.FriendRequest{
		ID:         requestID,
		SenderID:   userID,
		ReceiverID: candidateID,
		Status:     models.RequestPending,
		CreatedAt:  now,
		SenderName: sess.User.Username,
	}

	m.mu.Lock()
	if live := m.sessions[userID]; live != nil {
		live.Contacts = append(live.Contacts, contact)
		live.Requests = append(live.Requests, request)
		live.User.SentRequests = append(live.User.SentRequests, candidateID)
	}
	if other := m.sessions[candidateID]; other != nil {
		other.Requests = append(other.Requests, request)
		other.User.ReceivedRequests = append(other.User.ReceivedRequests, userID)
	}
	m.mu.Unlock()

	return &contact, nil
}

// RemoveContact deletes both directions of the contact edge and every friend
// request between the pair, in one transaction.
func (m *Manager) RemoveContact(userID, contactID string) error {
	if m.Get(userID) == nil {
		return errs.Auth("no active session")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return errs.Remote("failed to delete contact", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"DELETE FROM contacts WHERE (user_id = ? AND contact_id = ?) OR (user_id = ? AND contact_id = ?)",
		userID, contactID, contactID, userID,
	); err != nil {
		return errs.Remote("failed to delete contact", err)
	}

	if _, err := tx.Exec(
		"DELETE FROM friend_requests WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		userID, contactID, contactID, userID,
	); err != nil {
		return errs.Remote("failed to delete friend request", err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Remote("failed to delete contact", err)
	}

	m.mu.Lock()
	for _, id := range []string{userID, contactID} {
		other := contactID
		if id == contactID {
			other = userID
		}
		if live := m.sessions[id]; live != nil {
			live.User.Friends = removeID(live.User.Friends, other)
			live.User.SentRequests = removeID(live.User.SentRequests, other)
			live.User.ReceivedRequests = removeID(live.User.ReceivedRequests, other)
			live.Contacts = removeContact(live.Contacts, other)
			live.Requests = removeRequestsBetween(live.Requests, userID, contactID)
		}
	}
	m.mu.Unlock()

	return nil
}

// AcceptFriendRequest transitions pending→accepted and inserts both contact
// edges. Only the receiver may act; terminal requests behave as missing.
func (m *Manager) AcceptFriendRequest(userID, requestID string) error {
	return m.resolveFriendRequest(userID, requestID, models.RequestAccepted)
}

// RejectFriendRequest transitions pending→rejected.
func (m *Manager) RejectFriendRequest(userID, requestID string) error {
	return m.resolveFriendRequest(userID, requestID, models.RequestRejected)
}

func (m *Manager) resolveFriendRequest(userID, requestID, outcome string) error {
	if m.Get(userID) == nil {
		return errs.Auth("no active session")
	}

	var senderID, receiverID, status string
	err := m.db.QueryRow(
		"SELECT sender_id, receiver_id, status FROM friend_requests WHERE id = ?", requestID,
	).Scan(&senderID, &receiverID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return errs.NotFound("request not found")
		}
		return errs.Remote("failed to query friend requests", err)
	}

	if receiverID != userID {
		return errs.Authorization("only the receiver can respond")
	}
	if status != models.RequestPending {
		// Terminal states never transition again
		return errs.NotFound("request not found")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return errs.Remote("failed to update friend request", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"UPDATE friend_requests SET status = ? WHERE id = ? AND status = 'pending'",
		outcome, requestID,
	); err != nil {
		return errs.Remote("failed to update friend request", err)
	}

	if outcome == models.RequestAccepted {
		for _, pair := range [][2]string{{senderID, receiverID}, {receiverID, senderID}} {
			if _, err := tx.Exec(
				"INSERT OR IGNORE INTO contacts (user_id, contact_id) VALUES (?, ?)",
				pair[0], pair[1],
			); err != nil {
				return errs.Remote("failed to insert contact", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Remote("failed to update friend request", err)
	}

	m.feed.Publish("friend_requests", store.EventUpdate, store.Row{
		"id": requestID, "sender_id": senderID, "receiver_id": receiverID, "status": outcome,
	})
	if outcome == models.RequestAccepted {
		m.feed.Publish("contacts", store.EventInsert, store.Row{"user_id": senderID, "contact_id": receiverID})
		m.feed.Publish("contacts", store.EventInsert, store.Row{"user_id": receiverID, "contact_id": senderID})
	}

	m.refreshAfterResolution(senderID, receiverID, requestID, outcome)
	return nil
}

// refreshAfterResolution mirrors the accepted/rejected outcome into any live
// session of either party. On accept both sides get a fresh contact
// projection: the sender's provisional entry becomes confirmed and the
// receiver's list gains the sender immediately, without a relogin.
func (m *Manager) refreshAfterResolution(senderID, receiverID, requestID, outcome string) {
	var senderView, receiverView *models.Contact
	if outcome == models.RequestAccepted {
		var err error
		if senderView, err = m.contactProjection(senderID, receiverID, ""); err != nil {
			log.Printf("session: failed to project contact for %s: %v", senderID, err)
		}
		if receiverView, err = m.contactProjection(receiverID, senderID, ""); err != nil {
			log.Printf("session: failed to project contact for %s: %v", receiverID, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range []string{senderID, receiverID} {
		live := m.sessions[id]
		if live == nil {
			continue
		}
		live.Requests = removeRequestByID(live.Requests, requestID)
		live.User.SentRequests = removeID(live.User.SentRequests, receiverID)
		live.User.ReceivedRequests = removeID(live.User.ReceivedRequests, senderID)

		other := senderID
		view := receiverView
		if id == senderID {
			other = receiverID
			view = senderView
		}

		if outcome == models.RequestAccepted {
			live.User.Friends = appendUnique(live.User.Friends, other)
			live.Contacts = upsertContact(live.Contacts, other, view)
		} else {
			live.Contacts = removeContact(live.Contacts, other)
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// escapeLike neutralizes sqlite LIKE wildcards so user input matches
// literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, v := range ids {
		if v == id {
			return ids
		}
	}
	return append(ids, id)
}

// upsertContact replaces the entry for id with the fresh projection, or
// appends it when missing. A nil projection only clears the provisional
// marker on an existing entry.
func upsertContact(contacts []models.Contact, id string, fresh *models.Contact) []models.Contact {
	for i := range contacts {
		if contacts[i].ID == id {
			if fresh != nil {
				contacts[i] = *fresh
			} else {
				contacts[i].RequestStatus = ""
			}
			return contacts
		}
	}
	if fresh != nil {
		return append(contacts, *fresh)
	}
	return contacts
}

func removeContact(contacts []models.Contact, id string) []models.Contact {
	out := contacts[:0]
	for _, c := range contacts {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func removeRequestByID(requests []models.FriendRequest, id string) []models.FriendRequest {
	out := requests[:0]
	for _, r := range requests {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

func removeRequestsBetween(requests []models.FriendRequest, a, b string) []models.FriendRequest {
	out := requests[:0]
	for _, r := range requests {
		if (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a) {
			continue
		}
		out = append(out, r)
	}
	return out
}

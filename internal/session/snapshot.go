package session

import (
	"database/sql"
	"strings"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/models"
)

// loadSession rebuilds a user's full snapshot from the store: profile,
// friends, pending requests in both directions, contacts (confirmed plus
// provisional outgoing), and group memberships.
func (m *Manager) loadSession(userID string) (*Session, error) {
	user, err := m.loadProfile(userID)
	if err != nil {
		return nil, err
	}

	rows, err := m.db.Query("SELECT contact_id FROM contacts WHERE user_id = ?", userID)
	if err != nil {
		return nil, errs.Remote("failed to query contacts", err)
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errs.Remote("failed to query contacts", err)
		}
		user.Friends = append(user.Friends, id)
	}
	rows.Close()

	requests, err := m.loadPendingRequests(userID)
	if err != nil {
		return nil, err
	}
	for _, r := range requests {
		if r.SenderID == userID {
			user.SentRequests = append(user.SentRequests, r.ReceiverID)
		} else {
			user.ReceivedRequests = append(user.ReceivedRequests, r.SenderID)
		}
	}

	contacts, err := m.loadContacts(user)
	if err != nil {
		return nil, err
	}

	groups, err := m.loadGroups(userID)
	if err != nil {
		return nil, err
	}

	return &Session{
		User:     *user,
		Contacts: contacts,
		Requests: requests,
		Groups:   groups,
	}, nil
}

func (m *Manager) loadProfile(userID string) (*models.User, error) {
	user := &models.User{}
	err := m.db.QueryRow(`
		SELECT id, username, email, avatar, status, status_message, bio, created_at
		FROM profiles WHERE id = ?
	`, userID).Scan(
		&user.ID, &user.Username, &user.Email, &user.Avatar,
		&user.Status, &user.StatusMessage, &user.Bio, &user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Remote("failed to query profile", err)
	}
	return user, nil
}

func (m *Manager) loadPendingRequests(userID string) ([]models.FriendRequest, error) {
	rows, err := m.db.Query(`
		SELECT r.id, r.sender_id, r.receiver_id, r.status, r.created_at, p.username, p.avatar
		FROM friend_requests r
		JOIN profiles p ON p.id = r.sender_id
		WHERE (r.sender_id = ? OR r.receiver_id = ?) AND r.status = 'pending'
		ORDER BY r.created_at
	`, userID, userID)
	if err != nil {
		return nil, errs.Remote("failed to query friend requests", err)
	}
	defer rows.Close()

	var requests []models.FriendRequest
	for rows.Next() {
		var r models.FriendRequest
		if err := rows.Scan(&r.ID, &r.SenderID, &r.ReceiverID, &r.Status, &r.CreatedAt, &r.SenderName, &r.SenderAvatar); err != nil {
			return nil, errs.Remote("failed to query friend requests", err)
		}
		requests = append(requests, r)
	}
	return requests, nil
}

// contactProjection builds one contact entry as seen by viewerID. LastActive
// falls back to account creation when no message has ever been exchanged. A
// nil contact with nil error means the profile was deleted underneath us.
func (m *Manager) contactProjection(viewerID, otherID, requestStatus string) (*models.Contact, error) {
	var c models.Contact
	err := m.db.QueryRow(`
		SELECT p.id, p.username, p.email, p.avatar, p.status, p.status_message,
			COALESCE(
				(SELECT MAX(timestamp) FROM messages
				 WHERE (sender_id = p.id AND receiver_id = ?) OR (sender_id = ? AND receiver_id = p.id)),
				p.created_at
			)
		FROM profiles p WHERE p.id = ?
	`, viewerID, viewerID, otherID).Scan(
		&c.ID, &c.Name, &c.Email, &c.Avatar, &c.Status, &c.StatusMessage, &c.LastActive,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errs.Remote("failed to query contacts", err)
	}
	c.RequestStatus = requestStatus
	return &c, nil
}

// loadContacts projects friends and outgoing pending requests into the
// contact list.
func (m *Manager) loadContacts(user *models.User) ([]models.Contact, error) {
	var contacts []models.Contact

	appendProjection := func(otherID, requestStatus string) error {
		c, err := m.contactProjection(user.ID, otherID, requestStatus)
		if err != nil {
			return err
		}
		if c != nil {
			contacts = append(contacts, *c)
		}
		return nil
	}

	for _, friendID := range user.Friends {
		if err := appendProjection(friendID, ""); err != nil {
			return nil, err
		}
	}
	for _, receiverID := range user.SentRequests {
		if err := appendProjection(receiverID, models.RequestPending); err != nil {
			return nil, err
		}
	}
	return contacts, nil
}

func (m *Manager) loadGroups(userID string) ([]models.ChatGroup, error) {
	rows, err := m.db.Query(`
		SELECT g.id, g.name, g.avatar, g.description, g.created_by, g.created_at
		FROM groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.created_at
	`, userID)
	if err != nil {
		return nil, errs.Remote("failed to query groups", err)
	}
	defer rows.Close()

	var groups []models.ChatGroup
	for rows.Next() {
		var g models.ChatGroup
		if err := rows.Scan(&g.ID, &g.Name, &g.Avatar, &g.Description, &g.CreatedBy, &g.CreatedAt); err != nil {
			return nil, errs.Remote("failed to query groups", err)
		}
		groups = append(groups, g)
	}
	rows.Close()

	for i := range groups {
		members, err := m.loadGroupMembers(groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].Members = members
	}
	return groups, nil
}

func (m *Manager) loadGroupMembers(groupID string) ([]string, error) {
	rows, err := m.db.Query("SELECT user_id FROM group_members WHERE group_id = ? ORDER BY joined_at", groupID)
	if err != nil {
		return nil, errs.Remote("failed to query group members", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errs.Remote("failed to query group members", err)
		}
		members = append(members, id)
	}
	return members, nil
}

// FilterContacts is the stateless contact-list derivation: a pure function
// of the latest snapshot and the search query, never of hidden state.
func FilterContacts(contacts []models.Contact, query string) []models.Contact {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return append([]models.Contact(nil), contacts...)
	}

	var out []models.Contact
	for _, c := range contacts {
		if strings.Contains(strings.ToLower(c.Name), query) ||
			strings.Contains(strings.ToLower(c.Email), query) {
			out = append(out, c)
		}
	}
	return out
}

package session

import (
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/models"
	"github.com/4xmen/whisper/internal/store"
)

// CreateGroup persists a new group with the creator always among the
// members, then the member rows.
func (m *Manager) CreateGroup(userID, name string, memberIDs []string) (*models.ChatGroup, error) {
	if m.Get(userID) == nil {
		return nil, errs.Auth("no active session")
	}

	name = strings.TrimSpace(name)
	if len(name) < 3 {
		return nil, errs.Validation("group name too short")
	}
	if len(memberIDs) == 0 {
		return nil, errs.Validation("group needs members")
	}

	members := appendUnique(append([]string(nil), memberIDs...), userID)

	group := &models.ChatGroup{
		ID:        uuid.NewString(),
		Name:      name,
		Members:   members,
		CreatedBy: userID,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := m.db.Begin()
	if err != nil {
		return nil, errs.Remote("failed to insert group", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO groups (id, name, avatar, description, created_by, created_at) VALUES (?, ?, '', '', ?, ?)",
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
	); err != nil {
		return nil, errs.Remote("failed to insert group", err)
	}

	for _, memberID := range members {
		if _, err := tx.Exec(
			"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
			group.ID, memberID,
		); err != nil {
			return nil, errs.Remote("failed to insert group member", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Remote("failed to insert group", err)
	}

	m.feed.Publish("groups", store.EventInsert, store.Row{
		"id": group.ID, "name": group.Name, "created_by": group.CreatedBy,
	})

	m.mu.Lock()
	for _, memberID := range members {
		if live := m.sessions[memberID]; live != nil {
			live.Groups = append(live.Groups, *group)
		}
	}
	m.mu.Unlock()

	return group, nil
}

// LeaveGroup removes the caller's membership. A creator leaving with other
// members present hands ownership to an arbitrary remaining member first;
// the last member leaving deletes the group.
func (m *Manager) LeaveGroup(userID, groupID string) error {
	if m.Get(userID) == nil {
		return errs.Auth("no active session")
	}

	var createdBy string
	err := m.db.QueryRow("SELECT created_by FROM groups WHERE id = ?", groupID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return errs.NotFound("group not found")
		}
		return errs.Remote("failed to query groups", err)
	}

	members, err := m.loadGroupMembers(groupID)
	if err != nil {
		return err
	}
	if !containsID(members, userID) {
		return errs.NotFound("not a group member")
	}

	tx, err := m.db.Begin()
	if err != nil {
		return errs.Remote("failed to update group", err)
	}
	defer tx.Rollback()

	remaining := removeID(append([]string(nil), members...), userID)

	switch {
	case len(remaining) == 0:
		if _, err := tx.Exec("DELETE FROM group_members WHERE group_id = ?", groupID); err != nil {
			return errs.Remote("failed to delete group member", err)
		}
		if _, err := tx.Exec("DELETE FROM groups WHERE id = ?", groupID); err != nil {
			return errs.Remote("failed to delete group", err)
		}

	case createdBy == userID:
		if _, err := tx.Exec("UPDATE groups SET created_by = ? WHERE id = ?", remaining[0], groupID); err != nil {
			return errs.Remote("failed to update group", err)
		}
		fallthrough

	default:
		if _, err := tx.Exec(
			"DELETE FROM group_members WHERE group_id = ? AND user_id = ?", groupID, userID,
		); err != nil {
			return errs.Remote("failed to delete group member", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Remote("failed to update group", err)
	}

	newOwner := createdBy
	if createdBy == userID && len(remaining) > 0 {
		newOwner = remaining[0]
	}

	m.mu.Lock()
	if live := m.sessions[userID]; live != nil {
		live.Groups = removeGroup(live.Groups, groupID)
	}
	for _, memberID := range remaining {
		if live := m.sessions[memberID]; live != nil {
			for i := range live.Groups {
				if live.Groups[i].ID == groupID {
					live.Groups[i].Members = removeID(live.Groups[i].Members, userID)
					live.Groups[i].CreatedBy = newOwner
				}
			}
		}
	}
	m.mu.Unlock()

	return nil
}

// AddToGroup lets the creator add one of their contacts to the group.
func (m *Manager) AddToGroup(userID, groupID, newMemberID string) error {
	sess := m.Get(userID)
	if sess == nil {
		return errs.Auth("no active session")
	}

	var createdBy string
	err := m.db.QueryRow("SELECT created_by FROM groups WHERE id = ?", groupID).Scan(&createdBy)
	if err != nil {
		if err == sql.ErrNoRows {
			return errs.NotFound("group not found")
		}
		return errs.Remote("failed to query groups", err)
	}

	if createdBy != userID {
		return errs.Authorization("only the creator can add members")
	}

	var isMember bool
	err = m.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = ? AND user_id = ?)",
		groupID, newMemberID,
	).Scan(&isMember)
	if err != nil {
		return errs.Remote("failed to query group members", err)
	}
	if isMember {
		return errs.Conflict("already a group member")
	}

	var isContact bool
	err = m.db.QueryRow(
		"SELECT EXISTS(SELECT 1 FROM contacts WHERE user_id = ? AND contact_id = ?)",
		userID, newMemberID,
	).Scan(&isContact)
	if err != nil {
		return errs.Remote("failed to query contacts", err)
	}
	if !isContact {
		return errs.NotFound("can only add contacts")
	}

	if _, err := m.db.Exec(
		"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)", groupID, newMemberID,
	); err != nil {
		return errs.Remote("failed to insert group member", err)
	}

	m.feed.Publish("group_members", store.EventInsert, store.Row{
		"group_id": groupID, "user_id": newMemberID,
	})

	m.mu.Lock()
	for _, live := range m.sessions {
		for i := range live.Groups {
			if live.Groups[i].ID == groupID {
				live.Groups[i].Members = appendUnique(live.Groups[i].Members, newMemberID)
			}
		}
	}
	m.mu.Unlock()

	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeGroup(groups []models.ChatGroup, id string) []models.ChatGroup {
	out := groups[:0]
	for _, g := range groups {
		if g.ID != id {
			out = append(out, g)
		}
	}
	return out
}

package session

import (
	"strings"

	"github.com/4xmen/whisper/internal/errs"
	"github.com/4xmen/whisper/internal/models"
)

// ProfileUpdate carries the optional fields of an UpdateProfile call. Nil
// means leave the column untouched.
type ProfileUpdate struct {
	Username      *string `json:"username,omitempty"`
	Avatar        *string `json:"avatar,omitempty"`
	Bio           *string `json:"bio,omitempty"`
	StatusMessage *string `json:"status_message,omitempty"`
}

// UpdateStatus persists the presence status, then mirrors it locally.
func (m *Manager) UpdateStatus(userID, status string, message *string) error {
	if m.Get(userID) == nil {
		return errs.Auth("no active session")
	}

	switch status {
	case models.StatusOnline, models.StatusAway, models.StatusBusy, models.StatusOffline:
	default:
		return errs.Validation("invalid request")
	}

	if _, err := m.db.Exec(
		"UPDATE profiles SET status = ?, status_message = ? WHERE id = ?",
		status, message, userID,
	); err != nil {
		return errs.Remote("failed to update status", err)
	}

	m.mu.Lock()
	if live := m.sessions[userID]; live != nil {
		live.User.Status = status
		live.User.StatusMessage = message
	}
	m.mu.Unlock()

	m.publishPresence(userID, status)

	return nil
}

// UpdateProfile persists the provided fields, then mirrors them locally.
func (m *Manager) UpdateProfile(userID string, update ProfileUpdate) error {
	if m.Get(userID) == nil {
		return errs.Auth("no active session")
	}

	if update.Username != nil {
		trimmed := strings.TrimSpace(*update.Username)
		if len(trimmed) < 3 {
			return errs.Validation("username too short")
		}
		update.Username = &trimmed
	}

	var sets []string
	var args []any
	if update.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *update.Username)
	}
	if update.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *update.Avatar)
	}
	if update.Bio != nil {
		sets = append(sets, "bio = ?")
		args = append(args, *update.Bio)
	}
	if update.StatusMessage != nil {
		sets = append(sets, "status_message = ?")
		args = append(args, *update.StatusMessage)
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, userID)
	if _, err := m.db.Exec(
		"UPDATE profiles SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return errs.Remote("failed to update profile", err)
	}

	m.mu.Lock()
	if live := m.sessions[userID]; live != nil {
		if update.Username != nil {
			live.User.Username = *update.Username
		}
		if update.Avatar != nil {
			live.User.Avatar = *update.Avatar
		}
		if update.Bio != nil {
			live.User.Bio = update.Bio
		}
		if update.StatusMessage != nil {
			live.User.StatusMessage = update.StatusMessage
		}
	}
	m.mu.Unlock()

	return nil
}

// UpdateAvatar is the single-field shortcut the avatar picker uses.
func (m *Manager) UpdateAvatar(userID, url string) error {
	return m.UpdateProfile(userID, ProfileUpdate{Avatar: &url})
}

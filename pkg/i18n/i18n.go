// Package i18n maps the terse internal failure keys used across the codebase
// to the notices shown to users. Handlers always pass errors through Notice
// before writing them to a response, so the browser never sees a raw key.
package i18n

import "strings"

var notices = map[string]string{
	"invalid request":                    "That request could not be understood.",
	"invalid email or password":          "The email or password is incorrect.",
	"email already registered":           "An account with this email already exists.",
	"username too short":                 "Usernames need at least 3 characters.",
	"invalid email":                      "That does not look like a valid email address.",
	"password too short":                 "Passwords need at least 6 characters.",
	"passwords do not match":             "The password confirmation does not match.",
	"no active session":                  "You need to be signed in to do that.",
	"unauthorized":                       "You need to be signed in to do that.",
	"missing authorization token":        "You need to be signed in to do that.",
	"invalid token":                      "Your session has expired. Please sign in again.",
	"user not found":                     "No user was found matching that email or name.",
	"cannot add yourself":                "You cannot add yourself as a contact.",
	"already a contact":                  "You are already connected with this person.",
	"contact request already exists":     "A contact request between you is already pending.",
	"request not found":                  "That contact request no longer exists.",
	"only the receiver can respond":      "Only the person who received the request can respond to it.",
	"group name too short":               "Group names need at least 3 characters.",
	"group needs members":                "Pick at least one contact to start a group.",
	"group not found":                    "That group no longer exists.",
	"not a group member":                 "You are not a member of this group.",
	"only the creator can add members":   "Only the group creator can add members.",
	"already a group member":             "That person is already in the group.",
	"can only add contacts":              "You can only add your own contacts to a group.",
	"assistant not found":                "That assistant is not available.",
	"can only delete own messages":       "You can only delete your own messages.",
	"message not found":                  "That message no longer exists.",
	"failed to send message":             "Your message could not be sent. Please try again.",
	"failed to load conversation":        "The conversation could not be loaded.",
	"failed to delete chat":              "The chat history could not be cleared.",
	"failed to update profile":           "Your profile could not be updated.",
	"failed to update status":            "Your status could not be updated.",
	"failed to update avatar":            "Your avatar could not be updated.",
	"rate limiter error":                 "Something went wrong. Please try again.",
	"rate limit exceeded":                "Too many attempts. Please wait a moment and try again.",
	"internal server error":              "Something went wrong on our side. Please try again.",
	"not found":                          "Not found.",
	"websocket upgrade failed":           "The realtime connection could not be established.",
	"invalid push subscription":          "The notification subscription could not be saved.",
}

var prefixNotices = map[string]string{
	"failed to hash password:":  "Your account could not be created. Please try again.",
	"failed to create profile:": "Your account could not be created. Please try again.",
	"failed to sign token:":     "Signing in failed. Please try again.",
	"failed to query":           "Something went wrong loading your data. Please try again.",
	"failed to insert":          "Saving your change failed. Please try again.",
	"failed to update":          "Saving your change failed. Please try again.",
	"failed to delete":          "Removing that failed. Please try again.",
}

// Notice returns the user-facing text for an internal failure key. Unknown
// keys fall through unchanged so nothing is ever swallowed silently.
func Notice(message string) string {
	if notice, ok := notices[message]; ok {
		return notice
	}
	for prefix, notice := range prefixNotices {
		if strings.HasPrefix(message, prefix) {
			return notice
		}
	}
	return message
}

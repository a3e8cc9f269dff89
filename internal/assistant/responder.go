package assistant

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/4xmen/whisper/internal/conversation"
	"github.com/4xmen/whisper/internal/models"
)

// chatStore is the slice of the conversation store the responder needs.
type chatStore interface {
	Messages() []models.ChatMessage
	Send(ctx context.Context, content string, replyTo *models.ReplyRef, synthetic *conversation.Synthetic) (*models.ChatMessage, bool)
}

// Responder drives one persona's side of an assistant conversation: a
// greeting when an empty chat is first opened, then a reply to every user
// message after a short randomized wait.
type Responder struct {
	store   chatStore
	persona Persona

	mu  sync.Mutex
	rng *rand.Rand

	minWait     time.Duration
	maxWait     time.Duration
	welcomeWait time.Duration
}

func NewResponder(store chatStore, persona Persona) *Responder {
	return &Responder{
		store:       store,
		persona:     persona,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		minWait:     time.Second,
		maxWait:     1500 * time.Millisecond,
		welcomeWait: 500 * time.Millisecond,
	}
}

// WithWaits overrides the reply and welcome delays. Zero delays make the
// responder synchronous, which tests rely on.
func (r *Responder) WithWaits(minWait, maxWait, welcomeWait time.Duration) *Responder {
	r.minWait, r.maxWait, r.welcomeWait = minWait, maxWait, welcomeWait
	return r
}

// WithRand replaces the RNG, pinning template and slot choices.
func (r *Responder) WithRand(rng *rand.Rand) *Responder {
	r.rng = rng
	return r
}

// Welcome greets a brand-new conversation. A chat that already has history
// is left alone.
func (r *Responder) Welcome(ctx context.Context) (*models.ChatMessage, bool) {
	if len(r.store.Messages()) > 0 {
		return nil, false
	}

	if !r.wait(ctx, r.welcomeWait) {
		return nil, false
	}

	return r.store.Send(ctx, "", nil, &conversation.Synthetic{
		SenderID:     r.persona.ID,
		SenderName:   r.persona.Name,
		SenderAvatar: r.persona.Avatar,
		Content:      WelcomeText(r.persona.Name),
	})
}

// Reply answers one user message after the randomized delay.
func (r *Responder) Reply(ctx context.Context, userMessage string) (*models.ChatMessage, bool) {
	r.mu.Lock()
	delay := r.minWait
	if r.maxWait > r.minWait {
		delay += time.Duration(r.rng.Int63n(int64(r.maxWait - r.minWait)))
	}
	text := Respond(r.persona, userMessage, r.rng)
	r.mu.Unlock()

	if !r.wait(ctx, delay) {
		return nil, false
	}

	return r.store.Send(ctx, "", nil, &conversation.Synthetic{
		SenderID:     r.persona.ID,
		SenderName:   r.persona.Name,
		SenderAvatar: r.persona.Avatar,
		Content:      text,
	})
}

func (r *Responder) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

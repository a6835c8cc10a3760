// Package intake converts inbound email into tickets. Each mail thread
// maps to at most one task: the thread id is the immutable identity,
// and repeat messages on a known thread append to the task's
// conversation instead of creating a new one.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/opsdeskhq/opsdesk/internal/event"
	"github.com/opsdeskhq/opsdesk/internal/model"
	"github.com/opsdeskhq/opsdesk/internal/sla"
	"github.com/opsdeskhq/opsdesk/internal/store"
)

// Mailbox abstracts the IMAP client for testing.
type Mailbox interface {
	FetchUnseen(ctx context.Context) ([]InboundMessage, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// Adapter polls the intake mailbox and turns messages into tickets.
// Safe to run from an overlapping scheduler: the unique thread index
// and the thread lookup make repeated processing idempotent.
type Adapter struct {
	mailbox      Mailbox
	store        store.Store
	bus          *event.Bus
	logger       *slog.Logger
	reporterID   int64
	defaultSLAID int64
}

// NewAdapter creates an intake Adapter. reporterID is the service
// account recorded as reporter on intake-created tickets.
func NewAdapter(
	mailbox Mailbox,
	s store.Store,
	bus *event.Bus,
	reporterID, defaultSLAID int64,
	logger *slog.Logger,
) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		mailbox:      mailbox,
		store:        s,
		bus:          bus,
		logger:       logger,
		reporterID:   reporterID,
		defaultSLAID: defaultSLAID,
	}
}

// PollOnce fetches unseen messages and processes each one. Messages
// are only marked seen after successful processing, so a failed item
// is retried on the next poll. Returns created and appended counts.
func (a *Adapter) PollOnce(ctx context.Context) (created, appended int, err error) {
	messages, err := a.mailbox.FetchUnseen(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("intake poll: %w", err)
	}

	var processed []uint32
	for _, msg := range messages {
		wasNew, perr := a.Process(ctx, msg)
		if perr != nil {
			a.logger.Warn("intake: processing message failed",
				"uid", msg.UID, "thread_id", msg.ThreadID(), "error", perr)
			continue
		}
		if wasNew {
			created++
		} else {
			appended++
		}
		processed = append(processed, msg.UID)
	}

	if err := a.mailbox.MarkSeen(ctx, processed); err != nil {
		a.logger.Warn("intake: marking messages seen failed", "error", err)
	}

	return created, appended, nil
}

// Process handles a single inbound message: a known thread id appends
// to the existing task's conversation, an unknown one opens a new
// PENDING ticket. Reports whether a new ticket was created.
func (a *Adapter) Process(ctx context.Context, msg InboundMessage) (bool, error) {
	threadID := msg.ThreadID()
	if threadID == "" {
		return false, fmt.Errorf("message UID %d has no message id", msg.UID)
	}

	senderName, senderEmail := ParseOrigin(msg.Origin)

	existing, err := a.store.GetTaskByThreadID(ctx, threadID)
	switch {
	case err == nil:
		return false, a.appendMessage(ctx, existing, senderEmail, msg)
	case errors.Is(err, store.ErrNotFound):
		return true, a.createTicket(ctx, threadID, senderName, senderEmail, msg)
	default:
		return false, err
	}
}

func (a *Adapter) appendMessage(
	ctx context.Context,
	task *model.Task,
	senderEmail string,
	msg InboundMessage,
) error {
	body := msg.TextBody
	if body == "" {
		body = msg.Subject
	}

	m := &model.Message{
		TaskID:      task.ID,
		SenderEmail: senderEmail,
		Body:        body,
	}
	entry := &model.AuditEntry{
		ActorID: a.reporterID,
		Action:  model.AuditCommentAdded,
	}
	if err := a.store.CreateMessageWithAudit(ctx, m, entry); err != nil {
		return fmt.Errorf("appending to ticket %d: %w", task.ID, err)
	}

	a.bus.Publish(ctx, event.TaskEvent{
		Kind:        event.KindCommented,
		Task:        *task,
		CommentBody: body,
	})

	return nil
}

func (a *Adapter) createTicket(
	ctx context.Context,
	threadID, senderName, senderEmail string,
	msg InboundMessage,
) error {
	tmpl, err := a.store.GetSLAByID(ctx, a.defaultSLAID)
	if err != nil {
		return fmt.Errorf("loading default SLA: %w", err)
	}

	title := msg.Subject
	if title == "" {
		title = "(no subject)"
	}

	now := msg.Date.UTC()
	if now.IsZero() {
		now = time.Now().UTC()
	}
	dueAt := sla.ComputeDueDate(tmpl.DurationHrs, now)

	task := &model.Task{
		Title:       title,
		Description: msg.TextBody,
		Status:      model.StatusPending,
		DueAt:       &dueAt,
		IsTicket:    true,
		ThreadID:    threadID,
		SenderName:  senderName,
		SenderEmail: senderEmail,
		SLAID:       a.defaultSLAID,
		ReporterID:  a.reporterID,
		CreatedAt:   now,
	}
	entry := &model.AuditEntry{
		ActorID:  a.reporterID,
		Action:   model.AuditTaskCreated,
		NewValue: title,
	}
	if err := a.store.CreateTaskWithAudit(ctx, task, entry); err != nil {
		return fmt.Errorf("creating ticket for thread %q: %w", threadID, err)
	}

	return nil
}

// ParseOrigin splits a free-text origin header (`Jane Doe
// <jane@example.com>`) into a display name and address. A bare address
// yields an empty name; unparseable input is returned as the name.
func ParseOrigin(origin string) (name, email string) {
	origin = strings.TrimSpace(origin)
	if origin == "" {
		return "", ""
	}

	addr, err := mail.ParseAddress(origin)
	if err != nil {
		return origin, ""
	}
	return addr.Name, addr.Address
}

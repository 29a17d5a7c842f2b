// Copyright (c) 2025 Hariharen
// SPDX-License-Identifier: MIT

package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/hariharen9/localseek/internal/ollama"
	"github.com/hariharen9/localseek/internal/protocol"
	"github.com/hariharen9/localseek/internal/session"
	"github.com/hariharen9/localseek/internal/storage"
)

// =============================================================================
// DISPATCHER
// =============================================================================

// InsertTextFunc hands text to the host editor. The host surface is external;
// a nil func turns insertText into an error toast.
type InsertTextFunc func(text string) error

// Dispatcher executes presentation-layer commands against the session, the
// store, and the model client, and answers through the session's notifier.
type Dispatcher struct {
	session    *session.Session
	store      *storage.Store
	client     *ollama.Client
	notifier   session.Notifier
	insertText InsertTextFunc
}

// Options configures a Dispatcher.
type Options struct {
	Session    *session.Session
	Store      *storage.Store
	Client     *ollama.Client
	Notifier   session.Notifier
	InsertText InsertTextFunc
}

// New creates a Dispatcher.
func New(opts Options) *Dispatcher {
	return &Dispatcher{
		session:    opts.Session,
		store:      opts.Store,
		client:     opts.Client,
		notifier:   opts.Notifier,
		insertText: opts.InsertText,
	}
}

// DispatchRaw validates a raw command envelope and executes it. Malformed
// envelopes answer with an error toast and return the validation error.
func (d *Dispatcher) DispatchRaw(ctx context.Context, raw []byte) error {
	cmd, err := protocol.ParseCommand(raw)
	if err != nil {
		d.notifier.Notify(protocol.Toast(protocol.ToastError, err.Error()))
		return err
	}
	return d.Dispatch(ctx, cmd)
}

// Dispatch executes one validated command. Streaming commands block until the
// stream completes; callers wanting concurrency run Dispatch in a goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd protocol.Command) error {
	switch cmd.Kind {
	case protocol.CmdSendMessage:
		return d.sendMessage(ctx, cmd)
	case protocol.CmdNewConversation:
		return d.newConversation()
	case protocol.CmdListConversations:
		d.listConversations()
		return nil
	case protocol.CmdLoadConversation:
		return d.loadConversation(cmd.ConversationID)
	case protocol.CmdDeleteConversation:
		d.store.Delete(cmd.ConversationID)
		d.listConversations()
		return nil
	case protocol.CmdClearHistory:
		d.store.Clear()
		d.notifier.Notify(protocol.Notification{Kind: protocol.NoteChatCleared})
		d.notifier.Notify(protocol.Toast(protocol.ToastInfo, "Chat history cleared."))
		return nil
	case protocol.CmdListModels:
		return d.listModels(ctx)
	case protocol.CmdPullModel:
		return d.pullModel(ctx, cmd.ModelName)
	case protocol.CmdDeleteModel:
		return d.deleteModel(ctx, cmd.ModelName)
	case protocol.CmdInsertText:
		return d.doInsertText(cmd.Text)
	default:
		return fmt.Errorf("unhandled command kind %q", cmd.Kind)
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

func (d *Dispatcher) sendMessage(ctx context.Context, cmd protocol.Command) error {
	err := d.session.Submit(ctx, cmd.Text, cmd.Model, cmd.UseKnowledgeBase)
	if errors.Is(err, session.ErrBusy) {
		d.notifier.Notify(protocol.Toast(protocol.ToastWarning, session.ErrBusy.Error()))
	}
	return err
}

func (d *Dispatcher) newConversation() error {
	err := d.session.NewConversation()
	if errors.Is(err, session.ErrBusy) {
		d.notifier.Notify(protocol.Toast(protocol.ToastWarning, session.ErrBusy.Error()))
	}
	return err
}

func (d *Dispatcher) loadConversation(id string) error {
	err := d.session.Load(id)
	if errors.Is(err, session.ErrBusy) {
		d.notifier.Notify(protocol.Toast(protocol.ToastWarning, session.ErrBusy.Error()))
	}
	return err
}

func (d *Dispatcher) listConversations() {
	d.notifier.Notify(protocol.Notification{
		Kind:          protocol.NoteConversationList,
		Conversations: d.session.Conversations(),
	})
}

func (d *Dispatcher) listModels(ctx context.Context) error {
	models, err := d.client.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("listing models failed")
		d.notifier.Notify(protocol.Toast(protocol.ToastError, "Cannot list models. Is Ollama running?"))
		return err
	}
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name)
	}
	d.notifier.Notify(protocol.Notification{Kind: protocol.NoteModelList, Models: names})
	return nil
}

func (d *Dispatcher) pullModel(ctx context.Context, name string) error {
	err := d.client.PullModel(ctx, name, func(p ollama.PullProgress) {
		d.notifier.Notify(protocol.Notification{
			Kind:      protocol.NotePullProgress,
			ModelName: name,
			Status:    p.Status,
			Percent:   p.Percent(),
		})
	})
	if err != nil {
		d.notifier.Notify(protocol.Toast(protocol.ToastError, fmt.Sprintf("Pulling %s failed: %v", name, err)))
		return err
	}
	d.notifier.Notify(protocol.Toast(protocol.ToastInfo, fmt.Sprintf("Model %s is ready.", name)))
	return d.listModels(ctx)
}

func (d *Dispatcher) deleteModel(ctx context.Context, name string) error {
	if err := d.client.DeleteModel(ctx, name); err != nil {
		d.notifier.Notify(protocol.Toast(protocol.ToastError, fmt.Sprintf("Deleting %s failed: %v", name, err)))
		return err
	}
	d.notifier.Notify(protocol.Toast(protocol.ToastInfo, fmt.Sprintf("Model %s deleted.", name)))
	return d.listModels(ctx)
}

func (d *Dispatcher) doInsertText(text string) error {
	if d.insertText == nil {
		d.notifier.Notify(protocol.Toast(protocol.ToastError, "No editor available for insertion."))
		return errors.New("insertText: no host editor wired")
	}
	if err := d.insertText(text); err != nil {
		d.notifier.Notify(protocol.Toast(protocol.ToastError, "Inserting text failed: "+err.Error()))
		return err
	}
	return nil
}

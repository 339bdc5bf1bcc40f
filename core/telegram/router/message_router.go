package router

import (
	"strings"
	"time"

	tg "github.com/m3rciful/logibot/core/telegram"
	"github.com/m3rciful/logibot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Locker serializes processing of updates that belong to the same actor.
// Acquire blocks until the per-actor slot is free and returns its release func.
type Locker interface {
	Acquire(actorID int64) (release func())
}

// DefaultActorKey derives the serialization key for an update: the chat id,
// falling back to the sender id. Dialog state must be keyed the same way,
// otherwise two senders in one chat could mutate it under different locks.
func DefaultActorKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}

// Dialog intercepts text updates before generic command dispatch.
// Intercept returns the handler name and true when the update was consumed,
// e.g. by a session gate, a dialog shortcut, or an in-progress conversation.
type Dialog interface {
	Intercept(c tele.Context) (handler string, handled bool, err error)
}

// TextOptions controls fallback behaviour for text/document updates.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes builds handlers for text and document routing.
// All text goes through a single route: dialog interception first, then
// registry command lookup (including button aliases), then the fallback.
func TextRoutes(lock Locker, dialog Dialog, reg *tg.Registry, opts TextOptions) []tg.Route {
	handler := func(c tele.Context) error {
		start := time.Now()
		text := c.Text()

		if lock != nil {
			release := lock.Acquire(DefaultActorKey(c))
			defer release()
		}

		if dialog != nil {
			name, handled, err := dialog.Intercept(c)
			if handled {
				if name == "" {
					name = "dialog"
				}
				logHandlerSummary(c, name, start, "", "", err)
				return err
			}
		}

		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(commandToken(text)); ok && cmd.Handler != nil {
				name := normalizeHandlerName(key)
				return handleWithSummary(c, name, start, "", "", func() error {
					return cmd.Handler(c)
				})
			}
		}

		if reg != nil {
			if fb := reg.TextFallback(); fb != nil {
				return handleWithSummary(c, "fallback", start, "", "", func() error {
					return fb(c)
				})
			}
		}

		if opts.UnknownText != nil {
			return handleWithSummary(c, "unknown_text", start, "", "", func() error {
				return opts.UnknownText(c)
			})
		}

		logHandlerSummary(c, "unknown_text", start, "skip", "ok", nil)
		return nil
	}

	docHandler := func(c tele.Context) error {
		start := time.Now()
		if opts.UnknownDocument != nil {
			return handleWithSummary(c, "unexpected_document", start, "", "", func() error {
				return opts.UnknownDocument(c)
			})
		}
		logHandlerSummary(c, "unexpected_document", start, "skip", "ok", nil)
		return nil
	}

	return []tg.Route{
		{
			Endpoint: tele.OnText,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
		},
		{
			Endpoint: tele.OnDocument,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(docHandler)),
		},
	}
}

// commandToken strips arguments and the bot mention from slash commands so
// "/order_status 12 готов" and "/help@somebot" resolve in the registry.
// Button labels pass through untouched.
func commandToken(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return text
	}
	if i := strings.IndexAny(text, " \n"); i > 0 {
		text = text[:i]
	}
	if i := strings.IndexByte(text, '@'); i > 0 {
		text = text[:i]
	}
	return text
}

package app

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/logibot/core/telegram/helpers"
	"github.com/m3rciful/logibot/core/telegram/router"
	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
)

// Tokens handled before the session gate and generic command dispatch.
const (
	cmdStart   = "/start"
	btnStart   = "🚀 Старт"
	cmdLogout  = "/logout"
	btnLogout  = "🚪 Выход"
	cmdSession = "/session"
	btnSession = "📊 Статус сессии"
)

// actorOf keys sessions and dialogs by the router's serialization key, so
// the per-actor lock always guards the state it is keyed against.
func actorOf(c tele.Context) session.ActorID {
	return session.ActorID(router.DefaultActorKey(c))
}

// Intercept implements router.Dialog. Ordering mirrors the update
// pipeline: logout/session-status shortcuts, then the session gate,
// then in-progress dialogs by priority, then fall-through to commands.
func (a *App) Intercept(c tele.Context) (string, bool, error) {
	text := strings.TrimSpace(c.Text())
	actor := actorOf(c)
	ctx := tghelpers.BuildContext(c)

	switch text {
	case cmdLogout, btnLogout:
		return "logout", true, a.handleLogout(c)
	case cmdSession, btnSession:
		return "session_status", true, a.handleSessionStatus(c)
	}

	// Everything except the start command requires a live session.
	if text != cmdStart && text != btnStart {
		if !a.sessions.IsActive(actor, a.idleTimeout()) {
			a.sessions.Invalidate(ctx, actor)
			a.cancelFlows(actor)
			return "session_gate", true, a.sendSessionExpired(c)
		}
		// Passing the gate counts as activity.
		a.sessions.Get(actor)
	}

	if reply, ok := a.registration.Process(ctx, actor, c.Text()); ok {
		return "flow.registration", true, a.sendReply(c, reply)
	}
	if reply, ok := a.login.Process(ctx, actor, c.Text()); ok {
		return "flow.login", true, a.sendReply(c, reply)
	}
	if reply, ok := a.adminLogin.Process(ctx, actor, c.Text()); ok {
		return "flow.admin_login", true, a.sendReply(c, reply)
	}
	if reply, ok := a.orderCreation.Process(ctx, actor, c.Text()); ok {
		return "flow.order_creation", true, a.sendReply(c, reply)
	}

	return "", false, nil
}

// cancelFlows drops any in-progress dialog of the actor. An expired
// session must not leave a half-finished registration or order behind.
func (a *App) cancelFlows(actor session.ActorID) {
	a.registration.Cancel(actor)
	a.login.Cancel(actor)
	a.adminLogin.Cancel(actor)
	a.orderCreation.Cancel(actor)
}

// sendReply delivers a flow reply: terminal replies restore the main
// menu, intermediate prompts keep the cancel button visible.
func (a *App) sendReply(c tele.Context, reply flow.Reply) error {
	if reply.Text == "" {
		return nil
	}
	if reply.ShowMenu {
		return tghelpers.SendWithKeyboard(c, reply.Text, a.mainMenuKeyboard(actorOf(c)))
	}
	return tghelpers.SendWithKeyboard(c, reply.Text, cancelKeyboard())
}

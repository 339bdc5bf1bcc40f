package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/m3rciful/logibot/auth"
	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
	"github.com/m3rciful/logibot/validate"
)

// LoginAuthenticator verifies customer credentials and binds the identity
// to the actor's session on success.
type LoginAuthenticator interface {
	Authenticate(ctx context.Context, actor session.ActorID, email, password string) (storage.Customer, error)
}

// EmailChecker tells the login flow whether an email is registered before
// the password is asked for.
type EmailChecker interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// LoginData collects the answers of the login dialog.
type LoginData struct {
	Email    string
	FullName string
}

const (
	stepLoginEmail    flow.Step = "EMAIL"
	stepLoginPassword flow.Step = "PASSWORD"
)

// NewLogin builds the login flow engine. The session state transitions
// (LOGIN_IN_PROGRESS on start, UNAUTHENTICATED on failure or cancel,
// AUTHENTICATED on success) follow the authenticator and OnAbort.
func NewLogin(authn LoginAuthenticator, emails EmailChecker, sessions *session.Store) *flow.Engine[LoginData] {
	return flow.New(flow.Definition[LoginData]{
		Kind:      flow.KindLogin,
		Start:     stepLoginEmail,
		StartText: "🔐 Вход в систему\n\nПожалуйста, введите ваш email:",
		Steps: map[flow.Step]flow.Transition[LoginData]{
			stepLoginEmail: func(ctx context.Context, _ session.ActorID, d *LoginData, input string) flow.Outcome {
				email := strings.TrimSpace(input)
				if !validate.Email(email) {
					return flow.Reprompt("❌ Неверный формат email. Пожалуйста, введите корректный email:")
				}
				known, err := emails.ExistsByEmail(ctx, email)
				if err != nil {
					return flow.Reprompt("❌ Произошла ошибка. Попробуйте еще раз:")
				}
				if !known {
					return flow.Abort("❌ Пользователь с таким email не найден. Используйте /sign для регистрации.")
				}
				d.Email = email
				return flow.Advance(stepLoginPassword, "✅ Email принят. Теперь введите ваш пароль:")
			},
			stepLoginPassword: func(ctx context.Context, actor session.ActorID, d *LoginData, input string) flow.Outcome {
				customer, err := authn.Authenticate(ctx, actor, d.Email, input)
				if err != nil {
					if errors.Is(err, auth.ErrBadPassword) || errors.Is(err, auth.ErrUnknownEmail) {
						return flow.Abort("❌ Неверный пароль. Попробуйте снова используя /login")
					}
					return flow.Abort("❌ Произошла ошибка. Попробуйте позже.")
				}
				d.FullName = customer.FullName
				return flow.Complete()
			},
		},
		CancelText: "❌ Вход отменен.",
		FailText:   "❌ Произошла ошибка. Попробуйте позже.",
		OnComplete: func(_ context.Context, _ session.ActorID, d *LoginData) (string, error) {
			return "✅ Вход выполнен успешно!\n\nДобро пожаловать, " + d.FullName + "!\nТеперь вам доступны все функции бота.", nil
		},
		OnAbort: func(ctx context.Context, actor session.ActorID) {
			sessions.SetState(ctx, actor, session.StateUnauthenticated)
		},
	})
}

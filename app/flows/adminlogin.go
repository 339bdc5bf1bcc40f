package flows

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/m3rciful/logibot/auth"
	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
)

// AdminAuthenticator verifies admin credentials and grants the actor
// admin access on success.
type AdminAuthenticator interface {
	Exists(ctx context.Context, id int) (bool, error)
	Authenticate(ctx context.Context, actor session.ActorID, id int, password string) error
}

// AdminLoginData collects the answers of the admin login dialog.
type AdminLoginData struct {
	AdminID int
}

const (
	stepAdminID       flow.Step = "ADMIN_ID"
	stepAdminPassword flow.Step = "ADMIN_PASSWORD"
)

const adminCapabilitiesText = "✅ Успешный вход как администратор!\n\n" +
	"Доступные команды:\n" +
	"• 📋 Все заказы - просмотр всех заказов\n" +
	"• 🚗 Весь транспорт - просмотр всего транспорта\n" +
	"• ✏️ Изменить статус заказа - изменить статус заказа\n" +
	"• 🔄 Изменить статус транспорта - изменить статус транспорта\n" +
	"• 🚪 Выход - выход из режима администратора"

// NewAdminLogin builds the admin login flow engine. Wrong id format,
// unknown id and wrong password all abort the dialog; the operator
// restarts it with /admin.
func NewAdminLogin(gate AdminAuthenticator) *flow.Engine[AdminLoginData] {
	return flow.New(flow.Definition[AdminLoginData]{
		Kind:      flow.KindAdminLogin,
		Start:     stepAdminID,
		StartText: "🔐 Вход для администратора\n\nВведите ваш ID администратора:",
		Steps: map[flow.Step]flow.Transition[AdminLoginData]{
			stepAdminID: func(ctx context.Context, _ session.ActorID, d *AdminLoginData, input string) flow.Outcome {
				id, err := strconv.Atoi(strings.TrimSpace(input))
				if err != nil {
					return flow.Abort("❌ Неверный формат ID. ID должен быть числом.\n\nПопробуйте снова: /admin")
				}
				known, err := gate.Exists(ctx, id)
				if err != nil {
					return flow.Abort("❌ Ошибка процесса входа. Попробуйте снова: /admin")
				}
				if !known {
					return flow.Abort("❌ Администратор с ID " + strconv.Itoa(id) + " не найден.\n\nПопробуйте снова: /admin")
				}
				d.AdminID = id
				return flow.Advance(stepAdminPassword,
					"🔐 Вход для администратора\n\nАдминистратор с ID "+strconv.Itoa(id)+" найден.\n\nВведите пароль:")
			},
			stepAdminPassword: func(ctx context.Context, actor session.ActorID, d *AdminLoginData, input string) flow.Outcome {
				if err := gate.Authenticate(ctx, actor, d.AdminID, input); err != nil {
					if errors.Is(err, auth.ErrBadPassword) || errors.Is(err, auth.ErrUnknownAdmin) {
						return flow.Abort("❌ Неверный пароль. Доступ запрещен.\n\nПопробуйте снова: /admin")
					}
					return flow.Abort("❌ Ошибка процесса входа. Попробуйте снова: /admin")
				}
				return flow.Complete()
			},
		},
		CancelText: "❌ Вход администратора отменен.",
		FailText:   "❌ Ошибка процесса входа. Попробуйте снова: /admin",
		OnComplete: func(context.Context, session.ActorID, *AdminLoginData) (string, error) {
			return adminCapabilitiesText, nil
		},
	})
}

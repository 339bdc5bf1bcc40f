// Package flows defines the bot's dialog flows on top of the generic
// flow engine: customer registration, login, admin login and order
// creation. All user-facing texts live here.
package flows

import (
	"context"
	"strconv"
	"strings"

	"github.com/m3rciful/logibot/flow"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
	"github.com/m3rciful/logibot/validate"
)

// RegistrationStore is the subset of the customer repository the
// registration flow needs.
type RegistrationStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, c *storage.Customer) error
}

// PasswordHasher hashes the password before it is persisted.
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// RegistrationData collects the answers of the registration dialog.
type RegistrationData struct {
	Email    string
	Name     string
	Phone    string
	Address  string
	Password string
}

const (
	stepEmail           flow.Step = "EMAIL"
	stepName            flow.Step = "NAME"
	stepPhone           flow.Step = "PHONE"
	stepAddress         flow.Step = "ADDRESS"
	stepPassword        flow.Step = "PASSWORD"
	stepPasswordConfirm flow.Step = "PASSWORD_CONFIRM"
)

// NewRegistration builds the registration flow engine.
func NewRegistration(customers RegistrationStore, hasher PasswordHasher) *flow.Engine[RegistrationData] {
	return flow.New(flow.Definition[RegistrationData]{
		Kind:      flow.KindRegistration,
		Start:     stepEmail,
		StartText: "📝 Начинаем регистрацию!\n\nВведите ваш email:",
		Steps: map[flow.Step]flow.Transition[RegistrationData]{
			stepEmail: func(ctx context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				email := strings.TrimSpace(input)
				if !validate.Email(email) {
					return flow.Reprompt("❌ Неверный формат email. Попробуйте еще раз:")
				}
				taken, err := customers.ExistsByEmail(ctx, email)
				if err != nil {
					return flow.Reprompt("❌ Произошла ошибка. Попробуйте еще раз:")
				}
				if taken {
					return flow.Reprompt("❌ Этот email уже зарегистрирован. Введите другой email:")
				}
				d.Email = email
				return flow.Advance(stepName, "✅ Email принят!\n\nТеперь введите ваше полное имя:")
			},
			stepName: func(_ context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				if !validate.Name(input) {
					return flow.Reprompt("❌ Имя должно содержать минимум 2 символа. Попробуйте еще раз:")
				}
				d.Name = strings.TrimSpace(input)
				return flow.Advance(stepPhone, "✅ Имя принято!\n\nТеперь введите ваш номер телефона:")
			},
			stepPhone: func(_ context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				if !validate.Phone(input) {
					return flow.Reprompt("❌ Неверный формат номера телефона. Попробуйте еще раз:")
				}
				d.Phone = strings.TrimSpace(input)
				return flow.Advance(stepAddress, "✅ Номер телефона принят!\n\nТеперь введите ваш адрес:")
			},
			stepAddress: func(_ context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				if !validate.Address(input) {
					return flow.Reprompt("❌ Адрес должен содержать минимум 5 символов. Попробуйте еще раз:")
				}
				d.Address = strings.TrimSpace(input)
				return flow.Advance(stepPassword, "✅ Адрес принят!\n\nПридумайте и введите пароль (минимум 6 символов):")
			},
			stepPassword: func(_ context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				if !validate.Password(input) {
					return flow.Reprompt("❌ Пароль должен содержать минимум 6 символов. Попробуйте еще раз:")
				}
				d.Password = input
				return flow.Advance(stepPasswordConfirm, "✅ Пароль принят!\n\nПовторите пароль для подтверждения:")
			},
			stepPasswordConfirm: func(_ context.Context, _ session.ActorID, d *RegistrationData, input string) flow.Outcome {
				if input != d.Password {
					d.Password = ""
					// Mismatch restarts password entry, not the whole dialog.
					return flow.Advance(stepPassword, "❌ Пароли не совпадают. Введите пароль еще раз:")
				}
				return flow.Complete()
			},
		},
		CancelText: "❌ Регистрация отменена.",
		FailText:   "❌ Ошибка при регистрации. Попробуйте снова с командой /sign",
		OnComplete: func(ctx context.Context, _ session.ActorID, d *RegistrationData) (string, error) {
			hash, err := hasher.Hash(d.Password)
			if err != nil {
				return "", err
			}
			customer := storage.Customer{
				FullName:     d.Name,
				Phone:        d.Phone,
				Address:      d.Address,
				Email:        d.Email,
				PasswordHash: hash,
			}
			if err := customers.Create(ctx, &customer); err != nil {
				return "", err
			}
			return registrationSuccessText(customer), nil
		},
	})
}

func registrationSuccessText(c storage.Customer) string {
	var b strings.Builder
	b.WriteString("🎉 Регистрация завершена успешно!\n\n")
	b.WriteString("✅ Ваши данные:\n")
	b.WriteString("• Email: " + c.Email + "\n")
	b.WriteString("• Имя: " + c.FullName + "\n")
	b.WriteString("• Телефон: " + c.Phone + "\n")
	b.WriteString("• Адрес: " + c.Address + "\n\n")
	b.WriteString("Добро пожаловать! Ваш ID: ")
	b.WriteString(strconv.Itoa(c.ID))
	return b.String()
}

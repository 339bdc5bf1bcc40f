package app

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/m3rciful/logibot/core/telegram"
	"github.com/m3rciful/logibot/core/telegram/commands"
	tghelpers "github.com/m3rciful/logibot/core/telegram/helpers"
	"github.com/m3rciful/logibot/core/telegram/keyboard"
	"github.com/m3rciful/logibot/core/telegram/middleware"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

const (
	btnRegister      = "📝 Регистрация"
	btnLogin         = "🔐 Вход"
	btnProfile       = "👤 Профиль"
	btnHelp          = "❓ Помощь"
	btnAbout         = "ℹ️ О боте"
	btnNewOrder      = "📦 Новый заказ"
	btnCancel        = "❌ Отмена"
	btnAllOrders     = "📋 Все заказы"
	btnAllVehicles   = "🚗 Весь транспорт"
	btnOrderStatus   = "✏️ Изменить статус заказа"
	btnVehicleStatus = "🔄 Изменить статус транспорта"
)

func (a *App) registerCommands(reg *coretelegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler: a.handleStart, Description: "начать работу", Aliases: []string{btnStart},
	})
	reg.RegisterCommand("/help", commands.Command{
		Handler: a.handleHelp, Description: "помощь", Aliases: []string{btnHelp},
	})
	reg.RegisterCommand("/sign", commands.Command{
		Handler: a.handleSign, Description: "регистрация", Aliases: []string{btnRegister},
	})
	reg.RegisterCommand("/login", commands.Command{
		Handler: a.handleLogin, Description: "вход в систему", Aliases: []string{btnLogin},
	})
	reg.RegisterCommand("/admin", commands.Command{
		Handler: a.handleAdmin, Description: "вход для администратора", Hidden: true,
	})
	reg.RegisterCommand("/new_order", commands.Command{
		Handler: a.handleNewOrder, Description: "создать заказ", Aliases: []string{btnNewOrder},
	})
	reg.RegisterCommand("/profile", commands.Command{
		Handler: a.handleProfile, Description: "профиль", Aliases: []string{btnProfile},
	})
	reg.RegisterCommand("/session", commands.Command{
		Handler: a.handleSessionStatus, Description: "статус сессии", Aliases: []string{btnSession},
	})
	reg.RegisterCommand("/logout", commands.Command{
		Handler: a.handleLogout, Description: "выход", Aliases: []string{btnLogout},
	})
	reg.RegisterCommand("/about", commands.Command{
		Handler: a.handleAbout, Description: "о боте", Hidden: true, Aliases: []string{btnAbout},
	})
	reg.RegisterCommand("/cancel", commands.Command{
		Handler: a.handleIdleCancel, Description: "отмена", Hidden: true, Aliases: []string{btnCancel},
	})

	guard := middleware.AdminGuard(middleware.AdminOptions{
		Check: func(userID int64) bool {
			return a.adminGate.IsAdmin(session.ActorID(userID))
		},
		OnReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "⛔ Команда доступна только администратору. Используйте /admin для входа.")
		},
	})
	reg.RegisterCommand("/orders", commands.Command{
		Handler: guard(a.handleAdminOrders), Description: "все заказы", AdminOnly: true, Aliases: []string{btnAllOrders},
	})
	reg.RegisterCommand("/vehicles", commands.Command{
		Handler: guard(a.handleAdminVehicles), Description: "весь транспорт", AdminOnly: true, Aliases: []string{btnAllVehicles},
	})
	reg.RegisterCommand("/order_status", commands.Command{
		Handler: guard(a.handleOrderStatus), Description: "изменить статус заказа", AdminOnly: true, Hidden: true, Aliases: []string{btnOrderStatus},
	})
	reg.RegisterCommand("/vehicle_status", commands.Command{
		Handler: guard(a.handleVehicleStatus), Description: "изменить статус транспорта", AdminOnly: true, Hidden: true, Aliases: []string{btnVehicleStatus},
	})
}

func cancelKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{btnCancel})
}

func startKeyboard() *tele.ReplyMarkup {
	return keyboard.ReplyButtons([]string{btnStart})
}

func (a *App) mainMenuKeyboard(actor session.ActorID) *tele.ReplyMarkup {
	var rows [][]string
	if a.authSvc.IsAuthenticated(actor) {
		rows = append(rows, []string{btnProfile, btnNewOrder})
		rows = append(rows, []string{btnHelp, btnAbout})
	} else {
		rows = append(rows, []string{btnRegister, btnLogin})
		rows = append(rows, []string{btnAbout, btnStart})
	}
	rows = append(rows, []string{btnSession, btnLogout})
	if a.adminGate.IsAdmin(actor) {
		rows = append(rows, []string{btnAllOrders, btnAllVehicles})
		rows = append(rows, []string{btnOrderStatus, btnVehicleStatus})
	}
	return keyboard.ReplyButtons(rows...)
}

func (a *App) sendWithMenu(c tele.Context, text string) error {
	return tghelpers.SendWithKeyboard(c, text, a.mainMenuKeyboard(actorOf(c)))
}

func (a *App) handleStart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	a.sessions.Create(ctx, actor)

	text := "👋 Добро пожаловать в Logistics Bot!\n\n" +
		"✅ Сессия начата! Вы можете работать в течение " +
		strconv.Itoa(int(a.idleTimeout().Minutes())) + " минут.\n\n" +
		"Я помогу вам управлять логистикой и доставками.\n\n"
	if customer, err := a.authSvc.Customer(ctx, actor); err == nil {
		text += "✅ Вы вошли как: " + customer.FullName + "\n\n"
	} else {
		text += "🔐 Для доступа к функциям войдите в систему или зарегистрируйтесь.\n\n"
	}
	text += "Выберите действие из меню ниже:"
	return a.sendWithMenu(c, text)
}

func (a *App) handleHelp(c tele.Context) error {
	actor := actorOf(c)
	text := "📋 Доступные команды:\n\n"
	if a.authSvc.IsAuthenticated(actor) {
		text += "• 👤 Профиль - посмотреть свой профиль\n"
		text += "• 📦 Новый заказ - создать заказ на доставку\n"
	} else {
		text += "• 📝 Регистрация - зарегистрироваться в системе\n"
		text += "• 🔐 Вход - войти в систему\n"
	}
	text += "• ❓ Помощь - показать это сообщение\n" +
		"• ℹ️ О боте - информация о боте\n" +
		"• 📊 Статус сессии - показать статус текущей сессии\n" +
		"• 🚪 Выход - завершить текущую сессию\n\n" +
		"Или используйте команды:\n" +
		"/sign - регистрация\n" +
		"/login - вход\n" +
		"/new_order - новый заказ\n" +
		"/profile - профиль\n" +
		"/help - помощь\n" +
		"/session - статус сессии\n" +
		"/logout - выход"
	return a.sendWithMenu(c, text)
}

func (a *App) handleAbout(c tele.Context) error {
	text := "🤖 Logistics Bot\n\n" +
		"Этот бот предназначен для управления логистикой и доставками.\n\n" +
		"Возможности:\n" +
		"• 📝 Регистрация пользователей\n" +
		"• 🚚 Управление доставками\n" +
		"• 📊 Отслеживание статусов\n" +
		"• 🔐 Система сессий (" + strconv.Itoa(int(a.idleTimeout().Minutes())) + " минут)\n\n" +
		"Для начала работы пройдите регистрацию!"
	return a.sendWithMenu(c, text)
}

func (a *App) handleSign(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	if a.authSvc.IsAuthenticated(actor) {
		return tghelpers.SendText(c, "✅ Вы уже вошли в систему. Для выхода используйте /logout")
	}
	reply := a.registration.Start(ctx, actor)
	return a.sendReply(c, reply)
}

func (a *App) handleLogin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	if a.authSvc.IsAuthenticated(actor) {
		return tghelpers.SendText(c, "✅ Вы уже вошли в систему. Для выхода используйте /logout")
	}
	a.sessions.SetState(ctx, actor, session.StateLoginInProgress)
	reply := a.login.Start(ctx, actor)
	return a.sendReply(c, reply)
}

func (a *App) handleAdmin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	if a.adminGate.IsAdmin(actor) {
		return tghelpers.SendText(c, "✅ Вы уже вошли как администратор. Для выхода используйте 🚪 Выход")
	}
	reply := a.adminLogin.Start(ctx, actor)
	return a.sendReply(c, reply)
}

func (a *App) handleNewOrder(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	if !a.authSvc.IsAuthenticated(actor) {
		return tghelpers.SendText(c, "❌ Вы не авторизованы. Используйте /login для входа в систему.")
	}
	reply := a.orderCreation.Start(ctx, actor)
	return a.sendReply(c, reply)
}

func (a *App) handleProfile(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)
	customer, err := a.authSvc.Customer(ctx, actor)
	if err != nil {
		return tghelpers.SendText(c, "❌ Вы не авторизованы. Используйте /login для входа в систему.")
	}
	text := "👤 Ваш профиль:\n\n" +
		"• Имя: " + customer.FullName + "\n" +
		"• Email: " + customer.Email + "\n" +
		"• Телефон: " + customer.Phone + "\n" +
		"• Адрес: " + customer.Address + "\n\n" +
		"Статус: ✅ Авторизован"
	return a.sendWithMenu(c, text)
}

func (a *App) handleSessionStatus(c tele.Context) error {
	actor := actorOf(c)
	if !a.sessions.IsActive(actor, a.idleTimeout()) {
		return tghelpers.SendText(c, "❌ Сессия не активна. Используйте /start для начала работы.")
	}
	sess, _ := a.sessions.Get(actor)
	text := "📊 Статус сессии:\n" +
		"• Создана: " + sess.CreatedAt.Format("02.01.2006 15:04:05") + "\n" +
		"• Последняя активность: " + sess.LastAccessed.Format("02.01.2006 15:04:05") + "\n" +
		"• Статус: Активна ✅"
	return tghelpers.SendText(c, text)
}

func (a *App) handleLogout(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	actor := actorOf(c)

	if a.adminGate.Revoke(actor) {
		return a.sendWithMenu(c, "✅ Вы вышли из режима администратора.")
	}
	if customer, ok := a.authSvc.Logout(ctx, actor); ok {
		return a.sendWithMenu(c, "✅ Вы успешно вышли из системы, "+customer.FullName+"!")
	}
	return tghelpers.SendText(c, "❌ Вы не вошли в систему.")
}

func (a *App) handleIdleCancel(c tele.Context) error {
	// Dialog cancellation happens inside the flows; reaching this handler
	// means nothing was in progress.
	return a.sendWithMenu(c, "❌ Нечего отменять.")
}

func (a *App) handleUnknownText(c tele.Context) error {
	text := "🤔 Я не понял вашу команду.\n\n" +
		"Используйте меню ниже или команды:\n" +
		"/start - начать работу\n" +
		"/sign - регистрация\n" +
		"/help - помощь\n" +
		"/session - статус сессии\n" +
		"/logout - выход"
	return a.sendWithMenu(c, text)
}

func (a *App) sendSessionExpired(c tele.Context) error {
	text := "⏰ Время сессии истекло!\n\n" +
		"Ваша сессия была автоматически завершена из-за неактивности.\n" +
		"Для продолжения работы используйте /start"
	return tghelpers.SendWithKeyboard(c, text, startKeyboard())
}

func (a *App) handleAdminOrders(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	orders, err := a.orders.ListAll(ctx)
	if err != nil {
		return tghelpers.SendText(c, "❌ Не удалось загрузить заказы. Попробуйте позже.")
	}
	if len(orders) == 0 {
		return tghelpers.SendText(c, "📭 Заказов пока нет.")
	}

	var b strings.Builder
	b.WriteString("📋 Все заказы:\n\n")
	for _, o := range orders {
		vehicle := "не назначен"
		if o.VehicleID.Valid {
			vehicle = "#" + strconv.FormatInt(o.VehicleID.Int64, 10)
		}
		fmt.Fprintf(&b, "📦 #%d | %s | %d кг | %s | транспорт: %s\n",
			o.ID, o.CreatedAt.Format("02.01.2006"), o.TotalWeight, o.Status, vehicle)
	}
	return tghelpers.SendText(c, b.String())
}

func (a *App) handleAdminVehicles(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	vehicles, err := a.vehicles.ListAll(ctx)
	if err != nil {
		return tghelpers.SendText(c, "❌ Не удалось загрузить транспорт. Попробуйте позже.")
	}
	if len(vehicles) == 0 {
		return tghelpers.SendText(c, "📭 Транспорт не зарегистрирован.")
	}

	var b strings.Builder
	b.WriteString("🚗 Весь транспорт:\n\n")
	for _, v := range vehicles {
		fmt.Fprintf(&b, "🚚 #%d %s (%s) | %.1f т | %s\n",
			v.ID, v.Model, v.LicensePlate, v.CapacityTon, v.Status)
	}
	return tghelpers.SendText(c, b.String())
}

func (a *App) handleOrderStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	args := c.Args()
	if len(args) < 2 {
		return tghelpers.SendText(c, "Использование: /order_status <id> <статус>\n\nНапример: /order_status 12 доставлен")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return tghelpers.SendText(c, "❌ Неверный формат ID. ID должен быть числом.")
	}
	status := strings.Join(args[1:], " ")
	if err := a.orders.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tghelpers.SendText(c, fmt.Sprintf("❌ Заказ #%d не найден.", id))
		}
		return tghelpers.SendText(c, "❌ Не удалось обновить статус. Попробуйте позже.")
	}
	return tghelpers.SendText(c, fmt.Sprintf("✅ Статус заказа #%d обновлен: %s", id, status))
}

func (a *App) handleVehicleStatus(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	args := c.Args()
	if len(args) < 2 {
		return tghelpers.SendText(c, "Использование: /vehicle_status <id> <статус>\n\nНапример: /vehicle_status 3 свободен")
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return tghelpers.SendText(c, "❌ Неверный формат ID. ID должен быть числом.")
	}
	status := strings.Join(args[1:], " ")
	if err := a.vehicles.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return tghelpers.SendText(c, fmt.Sprintf("❌ Транспорт #%d не найден.", id))
		}
		return tghelpers.SendText(c, "❌ Не удалось обновить статус. Попробуйте позже.")
	}
	return tghelpers.SendText(c, fmt.Sprintf("✅ Статус транспорта #%d обновлен: %s", id, status))
}

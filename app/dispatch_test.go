package app

import (
	"context"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/logibot/app/flows"
	"github.com/m3rciful/logibot/auth"
	"github.com/m3rciful/logibot/session"
	"github.com/m3rciful/logibot/storage"
)

// fakeContext implements the parts of tele.Context the dispatch path
// touches and records outgoing messages.
type fakeContext struct {
	tele.Context

	text   string
	chat   *tele.Chat
	sender *tele.User
	store  map[string]any
	sent   []string
}

func newFakeContext(chatID int64, text string) *fakeContext {
	return &fakeContext{
		text:   text,
		chat:   &tele.Chat{ID: chatID},
		sender: &tele.User{ID: chatID},
		store:  make(map[string]any),
	}
}

func (f *fakeContext) Text() string        { return f.text }
func (f *fakeContext) Chat() *tele.Chat    { return f.chat }
func (f *fakeContext) Sender() *tele.User  { return f.sender }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Get(k string) any    { return f.store[k] }
func (f *fakeContext) Set(k string, v any) { f.store[k] = v }

func (f *fakeContext) Send(what any, _ ...any) error {
	if s, ok := what.(string); ok {
		f.sent = append(f.sent, s)
	}
	return nil
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

type memCustomers struct {
	byEmail map[string]storage.Customer
	nextID  int
}

func (m *memCustomers) GetByEmail(_ context.Context, email string) (storage.Customer, error) {
	c, ok := m.byEmail[email]
	if !ok {
		return storage.Customer{}, storage.ErrNotFound
	}
	return c, nil
}

func (m *memCustomers) GetByID(_ context.Context, id int) (storage.Customer, error) {
	for _, c := range m.byEmail {
		if c.ID == id {
			return c, nil
		}
	}
	return storage.Customer{}, storage.ErrNotFound
}

func (m *memCustomers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func (m *memCustomers) Create(_ context.Context, c *storage.Customer) error {
	m.nextID++
	c.ID = m.nextID
	m.byEmail[c.Email] = *c
	return nil
}

type memAdmins struct {
	byID map[int]storage.Admin
}

func (m *memAdmins) GetByID(_ context.Context, id int) (storage.Admin, error) {
	a, ok := m.byID[id]
	if !ok {
		return storage.Admin{}, storage.ErrNotFound
	}
	return a, nil
}

func (m *memAdmins) Exists(_ context.Context, id int) (bool, error) {
	_, ok := m.byID[id]
	return ok, nil
}

type memFleet struct{}

func (memFleet) FindAvailableWithCapacity(context.Context, float64) ([]storage.Vehicle, error) {
	return nil, nil
}

type memOrders struct{ saved []storage.Order }

func (m *memOrders) Create(_ context.Context, o *storage.Order) error {
	o.ID = len(m.saved) + 1
	m.saved = append(m.saved, *o)
	return nil
}

func newTestApp(t *testing.T) (*App, *memCustomers) {
	t.Helper()
	hasher := auth.NewHasherCost(bcrypt.MinCost)
	hash, err := hasher.Hash("secret123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	customers := &memCustomers{
		byEmail: map[string]storage.Customer{
			"ivan@example.com": {ID: 1, FullName: "Иван Петров", Email: "ivan@example.com", PasswordHash: hash},
		},
		nextID: 1,
	}
	admins := &memAdmins{byID: map[int]storage.Admin{3: {ID: 3, PasswordHash: hash}}}

	a := &App{
		cfg:      &Config{},
		sessions: session.NewStore(nil),
		locks:    session.NewKeyedMutex(),
	}
	a.authSvc = auth.NewService(a.sessions, customers, hasher)
	a.adminGate = auth.NewAdminGate(admins, hasher)
	a.registration = flows.NewRegistration(customers, hasher)
	a.login = flows.NewLogin(a.authSvc, customers, a.sessions)
	a.adminLogin = flows.NewAdminLogin(a.adminGate)
	a.orderCreation = flows.NewOrderCreation(memFleet{}, &memOrders{}, a.authSvc, nil)
	return a, customers
}

// intercept runs one inbound text through the dialog layer.
func intercept(t *testing.T, a *App, chatID int64, text string) (*fakeContext, string, bool) {
	t.Helper()
	c := newFakeContext(chatID, text)
	name, handled, err := a.Intercept(c)
	if err != nil {
		t.Fatalf("intercept %q: %v", text, err)
	}
	return c, name, handled
}

func TestGateBlocksWithoutSession(t *testing.T) {
	a, _ := newTestApp(t)

	c, name, handled := intercept(t, a, 10, "/help")
	if !handled || name != "session_gate" {
		t.Fatalf("gate: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Время сессии истекло") {
		t.Fatalf("gate reply %q", c.lastSent())
	}
}

func TestGateDropsDanglingDialog(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)
	a.registration.Start(ctx, 10)
	a.sessions.Invalidate(ctx, 10)

	_, name, handled := intercept(t, a, 10, "mail@example.com")
	if !handled || name != "session_gate" {
		t.Fatalf("expired dialog input: name=%q handled=%v", name, handled)
	}
	if a.registration.Active(10) {
		t.Fatal("dialog survived session expiry")
	}
}

func TestStartBypassesGate(t *testing.T) {
	a, _ := newTestApp(t)

	// Both spellings of the start command pass the gate untouched.
	for _, text := range []string{"/start", "🚀 Старт"} {
		_, _, handled := intercept(t, a, 10, text)
		if handled {
			t.Fatalf("%q was intercepted", text)
		}
	}

	c := newFakeContext(10, "/start")
	if err := a.handleStart(c); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.Contains(c.lastSent(), "Сессия начата") {
		t.Fatalf("start reply %q", c.lastSent())
	}
	if !a.sessions.IsActive(10, a.idleTimeout()) {
		t.Fatal("start did not create a session")
	}

	// With a live session, ordinary text reaches command dispatch.
	_, _, handled := intercept(t, a, 10, "/help")
	if handled {
		t.Fatal("live session text was intercepted")
	}
}

func TestShortcutsRunBeforeGate(t *testing.T) {
	a, _ := newTestApp(t)

	// No session at all, yet logout and session-status still answer.
	c, name, handled := intercept(t, a, 10, "/logout")
	if !handled || name != "logout" {
		t.Fatalf("logout: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Вы не вошли в систему") {
		t.Fatalf("logout reply %q", c.lastSent())
	}

	c, name, handled = intercept(t, a, 10, "📊 Статус сессии")
	if !handled || name != "session_status" {
		t.Fatalf("session status: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Сессия не активна") {
		t.Fatalf("status reply %q", c.lastSent())
	}
}

func TestRegistrationFlowConsumesCommands(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)

	if err := a.handleSign(newFakeContext(10, "/sign")); err != nil {
		t.Fatalf("sign: %v", err)
	}
	if !a.registration.Active(10) {
		t.Fatal("registration did not start")
	}

	// A command sent mid-dialog is flow input, not a command.
	c, name, handled := intercept(t, a, 10, "/help")
	if !handled || name != "flow.registration" {
		t.Fatalf("mid-dialog command: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Неверный формат email") {
		t.Fatalf("mid-dialog reply %q", c.lastSent())
	}
}

func TestCancelTokenInsideAndOutsideDialog(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)
	a.registration.Start(ctx, 10)

	c, name, handled := intercept(t, a, 10, "❌ Отмена")
	if !handled || name != "flow.registration" {
		t.Fatalf("cancel in dialog: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Регистрация отменена") {
		t.Fatalf("cancel reply %q", c.lastSent())
	}
	if a.registration.Active(10) {
		t.Fatal("dialog survived cancellation")
	}

	// Outside a dialog the token falls through to command dispatch.
	_, _, handled = intercept(t, a, 10, "❌ Отмена")
	if handled {
		t.Fatal("idle cancel was intercepted")
	}
	c = newFakeContext(10, "❌ Отмена")
	if err := a.handleIdleCancel(c); err != nil {
		t.Fatalf("idle cancel: %v", err)
	}
	if !strings.Contains(c.lastSent(), "Нечего отменять") {
		t.Fatalf("idle cancel reply %q", c.lastSent())
	}
}

func TestLoginThroughDispatch(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)

	if err := a.handleLogin(newFakeContext(10, "/login")); err != nil {
		t.Fatalf("login: %v", err)
	}
	sess, _ := a.sessions.Peek(10)
	if sess.State != session.StateLoginInProgress {
		t.Fatalf("session state = %s", sess.State)
	}

	intercept(t, a, 10, "ivan@example.com")
	c, name, handled := intercept(t, a, 10, "secret123")
	if !handled || name != "flow.login" {
		t.Fatalf("password step: name=%q handled=%v", name, handled)
	}
	if !strings.Contains(c.lastSent(), "Добро пожаловать, Иван Петров!") {
		t.Fatalf("login reply %q", c.lastSent())
	}
	if !a.authSvc.IsAuthenticated(10) {
		t.Fatal("login did not authenticate the session")
	}
	sess, _ = a.sessions.Peek(10)
	if sess.State != session.StateAuthenticated {
		t.Fatalf("session state = %s", sess.State)
	}
}

func TestNewOrderRequiresAuthentication(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)

	c := newFakeContext(10, "/new_order")
	if err := a.handleNewOrder(c); err != nil {
		t.Fatalf("new order: %v", err)
	}
	if !strings.Contains(c.lastSent(), "Вы не авторизованы") {
		t.Fatalf("refusal reply %q", c.lastSent())
	}
	if a.orderCreation.Active(10) {
		t.Fatal("order dialog started without authentication")
	}
}

func TestAdminLogoutLeavesCustomerSession(t *testing.T) {
	a, _ := newTestApp(t)
	ctx := context.Background()
	a.sessions.Create(ctx, 10)

	if _, err := a.authSvc.Authenticate(ctx, 10, "ivan@example.com", "secret123"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	a.adminLogin.Start(ctx, 10)
	intercept(t, a, 10, "3")
	intercept(t, a, 10, "secret123")
	if !a.adminGate.IsAdmin(10) {
		t.Fatal("admin login failed")
	}

	// First logout drops only the admin grant.
	c, _, _ := intercept(t, a, 10, "🚪 Выход")
	if !strings.Contains(c.lastSent(), "вышли из режима администратора") {
		t.Fatalf("admin logout reply %q", c.lastSent())
	}
	if !a.authSvc.IsAuthenticated(10) {
		t.Fatal("admin logout dropped the customer login")
	}

	// Second logout signs the customer out.
	c, _, _ = intercept(t, a, 10, "/logout")
	if !strings.Contains(c.lastSent(), "успешно вышли из системы, Иван Петров") {
		t.Fatalf("customer logout reply %q", c.lastSent())
	}
	if a.authSvc.IsAuthenticated(10) {
		t.Fatal("customer still authenticated after logout")
	}
}

package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/auth"
	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/model"
	"github.com/sakif/pastebin/internal/service"
)

// ============================================================================
// IN-MEMORY FAKES
//
// The handlers are tested end-to-end through a real chi router wired exactly
// like the server's route table, with the storage layer replaced by these
// fakes. No mock framework, no database.
// ============================================================================

type fakeUserRepo struct {
	mu    sync.Mutex
	users []*model.User
}

func (f *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.DuplicateEmail(user.Email)
		}
	}
	user.ID = "usr-" + user.Username
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeUserRepo) FindByConfirmationToken(_ context.Context, token string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return nil, apperror.InvalidToken()
	}
	for _, u := range f.users {
		if u.ConfirmationToken == token {
			return u, nil
		}
	}
	return nil, apperror.InvalidToken()
}

func (f *fakeUserRepo) Activate(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		return apperror.InvalidToken()
	}
	for _, u := range f.users {
		if u.ConfirmationToken == token {
			u.IsActive = true
			u.ConfirmationToken = ""
			return nil
		}
	}
	return apperror.InvalidToken()
}

type fakeSlotRepo struct {
	mu    sync.Mutex
	slots []string
}

func (f *fakeSlotRepo) Insert(_ context.Context, slot *model.Slot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = append(f.slots, slot.FreeHash)
	return nil
}

func (f *fakeSlotRepo) ConsumeOne(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.slots) == 0 {
		return "", apperror.PoolExhausted()
	}
	id := f.slots[len(f.slots)-1]
	f.slots = f.slots[:len(f.slots)-1]
	return id, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[string]model.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[string]model.Message)}
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.messages[msg.ID]; exists {
		return errors.New("duplicate message id")
	}
	msg.CreatedAt = time.Now().UTC()
	f.messages[msg.ID] = *msg
	return nil
}

func (f *fakeMessageRepo) FindByID(_ context.Context, id string) (*model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg, ok := f.messages[id]
	if !ok {
		return nil, apperror.NotFound("message", id)
	}
	return &msg, nil
}

func (f *fakeMessageRepo) ListAll(_ context.Context) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Message, 0, len(f.messages))
	for _, msg := range f.messages {
		out = append(out, msg)
	}
	return out, nil
}

// recordingSender captures confirmation emails. The channel lets tests wait
// for the fire-and-forget goroutine without sleeping.
type sentMail struct {
	To    string
	Token string
}

type recordingSender struct {
	sent chan sentMail
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: make(chan sentMail, 8)}
}

func (r *recordingSender) SendConfirmation(_ context.Context, to, token, _ string) error {
	r.sent <- sentMail{To: to, Token: token}
	return nil
}

// waitForMail blocks until one email was dispatched, or fails the test.
func (r *recordingSender) waitForMail(t *testing.T) sentMail {
	t.Helper()
	select {
	case m := <-r.sent:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no confirmation email dispatched")
		return sentMail{}
	}
}

// ============================================================================
// FIXTURE
// ============================================================================

const (
	testBaseURL    = "http://test.local"
	testSessionTTL = time.Hour
)

type fixture struct {
	router  *chi.Mux
	users   *fakeUserRepo
	slots   *fakeSlotRepo
	msgs    *fakeMessageRepo
	sender  *recordingSender
	tokens  *auth.TokenService
	authSvc *service.AuthService
}

// newFixture wires real services and handlers over the fakes, with the same
// route table and auth middleware the server uses.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	renderer, err := NewRenderer("../../web/templates", logger)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	tokens, err := auth.NewTokenService("handler-test-secret-123456", "HS256")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	f := &fixture{
		users:  &fakeUserRepo{},
		slots:  &fakeSlotRepo{},
		msgs:   newFakeMessageRepo(),
		sender: newRecordingSender(),
		tokens: tokens,
	}

	collector := metrics.Noop{}
	f.authSvc = service.NewAuthService(f.users, tokens, passwords, testSessionTTL, logger)
	poolSvc := service.NewPoolService(f.slots, collector, logger)
	messageSvc := service.NewMessageService(f.msgs, poolSvc, collector, logger)

	authHandler := NewAuthHandler(f.authSvc, f.sender, collector, renderer, testBaseURL, logger)
	homeHandler := NewHomeHandler(poolSvc, renderer, logger)
	pastbinHandler := NewPastbinHandler(messageSvc, renderer, testBaseURL, logger)

	requirePage := auth.RequirePage(tokens, f.users)
	requireAuth := auth.RequireAuth(tokens, f.users)

	r := chi.NewRouter()
	r.With(requirePage).Get("/", homeHandler.HandleIndex)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/register", authHandler.HandleRegisterPage)
		r.Post("/register", authHandler.HandleRegister)
		r.Get("/confirm/{token}", authHandler.HandleConfirm)
		r.Get("/login", authHandler.HandleLoginPage)
		r.Post("/login", authHandler.HandleLogin)
		r.Get("/logout", authHandler.HandleLogout)
		r.With(requireAuth).Get("/users/me", authHandler.HandleMe)
	})
	r.Route("/pastbin", func(r chi.Router) {
		r.With(requirePage).Get("/create_message", pastbinHandler.HandleCreatePage)
		r.With(requirePage).Post("/create_message", pastbinHandler.HandleCreate)
		r.Get("/message/{id}", pastbinHandler.HandleMessage)
		r.With(requirePage).Get("/all_messages", pastbinHandler.HandleAllMessages)
	})
	f.router = r

	return f
}

// activeUser registers and confirms an account, returning its session cookie.
func (f *fixture) activeUser(t *testing.T, username, email, password string) *http.Cookie {
	t.Helper()
	ctx := context.Background()

	user, err := f.authSvc.Register(ctx, username, email, password)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := f.authSvc.Confirm(ctx, user.ConfirmationToken); err != nil {
		t.Fatalf("Confirm: %v", err)
	}

	token, err := f.authSvc.Login(ctx, username, password)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	return &http.Cookie{Name: auth.CookieName, Value: token}
}

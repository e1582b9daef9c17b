package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/pastebin/internal/apperror"
	"github.com/sakif/pastebin/internal/metrics"
	"github.com/sakif/pastebin/internal/model"
)

// fakeMessageRepo is an in-memory MessageRepository keyed on identifier.
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

func newTestMessageService(slots *fakeSlotRepo, msgs *fakeMessageRepo) *MessageService {
	pool := NewPoolService(slots, metrics.Noop{}, testLogger())
	return NewMessageService(msgs, pool, metrics.Noop{}, testLogger())
}

// ============================================================================
// PUBLISH
// ============================================================================

func TestPublish_RoundTrip(t *testing.T) {
	slots := &fakeSlotRepo{}
	msgs := newFakeMessageRepo()
	svc := newTestMessageService(slots, msgs)
	ctx := context.Background()

	id, err := NewSlotID()
	if err != nil {
		t.Fatalf("NewSlotID: %v", err)
	}
	if err := slots.Insert(ctx, &model.Slot{FreeHash: id}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	published, err := svc.Publish(ctx, "alice", "hello")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(published.ID) != 64 {
		t.Errorf("len(id) = %d, want 64 (pool-derived identifier)", len(published.ID))
	}
	if published.Username != "alice" {
		t.Errorf("username = %q, want alice", published.Username)
	}

	got, err := svc.Get(ctx, published.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("text = %q, want hello", got.Text)
	}
	if got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}
}

func TestPublish_TopsUpEmptyPool(t *testing.T) {
	// An empty pool is not a user-visible failure as long as storage is
	// healthy: Publish replenishes once and retries.
	slots := &fakeSlotRepo{}
	msgs := newFakeMessageRepo()
	svc := newTestMessageService(slots, msgs)

	published, err := svc.Publish(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("Publish on empty pool: %v", err)
	}
	if published.ID == "" {
		t.Error("published message has empty id")
	}
}

func TestPublish_ExhaustedWhenReplenishFails(t *testing.T) {
	slots := &fakeSlotRepo{insertErr: errors.New("storage down")}
	msgs := newFakeMessageRepo()
	svc := newTestMessageService(slots, msgs)

	_, err := svc.Publish(context.Background(), "alice", "hello")
	if !errors.Is(err, apperror.ErrPoolExhausted) {
		t.Fatalf("err = %v, want ErrPoolExhausted", err)
	}
}

func TestPublish_Validation(t *testing.T) {
	svc := newTestMessageService(&fakeSlotRepo{}, newFakeMessageRepo())
	ctx := context.Background()

	for _, text := range []string{"", "   \n\t  "} {
		if _, err := svc.Publish(ctx, "alice", text); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Publish(%q) err = %v, want ErrValidation", text, err)
		}
	}

	tooLong := strings.Repeat("a", MaxTextLength+1)
	if _, err := svc.Publish(ctx, "alice", tooLong); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("oversized text err = %v, want ErrValidation", err)
	}
}

func TestPublish_ConcurrentIdentifiersNeverShared(t *testing.T) {
	// Many publishers racing at once. Some ride the demand-driven top-up,
	// but no two successful publishes may ever share an identifier.
	const goroutines = 16

	slots := &fakeSlotRepo{}
	msgs := newFakeMessageRepo()
	svc := newTestMessageService(slots, msgs)

	var wg sync.WaitGroup
	ids := make(chan string, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, err := svc.Publish(context.Background(), "alice", "hello")
			if err == nil {
				ids <- msg.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("identifier %s bound to two messages", id)
		}
		seen[id] = true
	}
	if len(seen) == 0 {
		t.Fatal("no publish succeeded")
	}
}

// ============================================================================
// GET / LIST
// ============================================================================

func TestGet_UnknownID(t *testing.T) {
	svc := newTestMessageService(&fakeSlotRepo{}, newFakeMessageRepo())

	_, err := svc.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_EmptyID(t *testing.T) {
	svc := newTestMessageService(&fakeSlotRepo{}, newFakeMessageRepo())

	_, err := svc.Get(context.Background(), "  ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestListAll(t *testing.T) {
	slots := &fakeSlotRepo{}
	msgs := newFakeMessageRepo()
	svc := newTestMessageService(slots, msgs)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Publish(ctx, "alice", "hello"); err != nil {
			t.Fatalf("Publish #%d: %v", i, err)
		}
	}

	all, err := svc.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}
}

package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Veraticus/hts-derivatives/internal/common"
	"github.com/Veraticus/hts-derivatives/internal/llm"
	"github.com/Veraticus/hts-derivatives/internal/model"
	"github.com/Veraticus/hts-derivatives/internal/prompt"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("disk unavailable")

// memStore is an in-memory Store. With fail set every call errors.
type memStore struct {
	ref     *model.ReferenceContext
	prefs   map[string]string
	entries []model.ManualEntry
	fail    bool
	mu      sync.Mutex
}

func newMemStore() *memStore {
	return &memStore{prefs: make(map[string]string)}
}

func (s *memStore) err(op string) error {
	if s.fail {
		return &common.StoreError{Op: op, Err: errStoreDown}
	}
	return nil
}

func (s *memStore) LoadReference(_ context.Context) (*model.ReferenceContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("load reference"); err != nil {
		return nil, err
	}
	return s.ref.Clone(), nil
}

func (s *memStore) SaveReference(_ context.Context, ref *model.ReferenceContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("save reference"); err != nil {
		return err
	}
	s.ref = ref.Clone()
	return nil
}

func (s *memStore) ClearReference(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("clear reference"); err != nil {
		return err
	}
	s.ref = nil
	return nil
}

func (s *memStore) ListEntries(_ context.Context) ([]model.ManualEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("list entries"); err != nil {
		return nil, err
	}
	return append([]model.ManualEntry{}, s.entries...), nil
}

func (s *memStore) SaveEntry(_ context.Context, entry *model.ManualEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("save entry"); err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = *entry
			return nil
		}
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memStore) DeleteEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("delete entry"); err != nil {
		return err
	}
	for i := range s.entries {
		if s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (s *memStore) ReplaceEntries(_ context.Context, entries []model.ManualEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("replace entries"); err != nil {
		return err
	}
	s.entries = append([]model.ManualEntry{}, entries...)
	return nil
}

func (s *memStore) GetPreference(_ context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("get preference"); err != nil {
		return "", false, err
	}
	v, ok := s.prefs[name]
	return v, ok, nil
}

func (s *memStore) SetPreference(_ context.Context, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.err("set preference"); err != nil {
		return err
	}
	s.prefs[name] = value
	return nil
}

// blockingBackend holds every Generate call until release is closed.
type blockingBackend struct {
	*llm.StubBackend
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingBackend(stub *llm.StubBackend) *blockingBackend {
	return &blockingBackend{
		StubBackend: stub,
		started:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *blockingBackend) Generate(ctx context.Context, segments []prompt.Segment, schema llm.Schema) ([]byte, error) {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.StubBackend.Generate(ctx, segments, schema)
}

const (
	foundJSON    = `{"found":true,"matches":[{"derivativeCategory":"Aluminum bars","metalType":"Aluminum","matchDetail":"Manual rule 7604.10","confidence":"High"}],"reasoning":"Matches a manual rule"}`
	notFoundJSON = `{"found":false,"matches":[],"reasoning":"Not listed"}`
)

func geminiStub() *llm.StubBackend {
	stub := llm.NewStubBackend()
	stub.ProvName = llm.ProviderGemini
	return stub
}

func newTestController(t *testing.T, store Store, backends ...llm.Backend) *Controller {
	t.Helper()
	providers := make([]llm.Provider, 0, len(backends))
	for _, b := range backends {
		providers = append(providers, llm.NewAdapter(b, false, nil))
	}
	c, err := NewController(context.Background(), Options{
		Store:    store,
		Registry: llm.NewRegistryFrom(providers...),
		Provider: llm.ProviderGemini,
	})
	require.NoError(t, err)
	return c
}

func adminController(t *testing.T, store Store, backends ...llm.Backend) *Controller {
	t.Helper()
	c := newTestController(t, store, backends...)
	require.NoError(t, c.Login(DefaultPasscode))
	return c
}

func textRef() *model.ReferenceContext {
	return &model.ReferenceContext{
		Kind:    model.ReferenceText,
		Content: "Heading 7604: aluminum bars, rods and profiles are derivative articles.",
		Name:    PastedTextName,
	}
}

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/newswatch/internal/models"
	"github.com/bilgisen/newswatch/internal/storage"
)

type fakeSource struct {
	items []models.NewsDTO
	err   error
	calls int
}

func (s *fakeSource) FetchAll(context.Context) ([]models.NewsDTO, error) {
	s.calls++
	return s.items, s.err
}

// fakeRepo is an in-memory Repository that counts calls and can inject
// failures per text.
type fakeRepo struct {
	mu      sync.Mutex
	byText  map[string]*models.NewsItem
	nextID  int64
	finds   int
	saves   int
	findErr map[string]error
	saveErr map[string]error
	panicOn string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byText:  make(map[string]*models.NewsItem),
		findErr: make(map[string]error),
		saveErr: make(map[string]error),
	}
}

func (r *fakeRepo) FindByText(_ context.Context, text string) (*models.NewsItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finds++
	if text == r.panicOn {
		panic("store exploded")
	}
	if err := r.findErr[text]; err != nil {
		return nil, err
	}
	item, ok := r.byText[text]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *fakeRepo) Save(_ context.Context, item *models.NewsItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	if err := r.saveErr[item.Text]; err != nil {
		return err
	}
	if _, ok := r.byText[item.Text]; ok {
		return storage.ErrIntegrityConflict
	}
	r.nextID++
	item.ID = r.nextID
	cp := *item
	r.byText[item.Text] = &cp
	return nil
}

func (r *fakeRepo) seed(text string) {
	r.nextID++
	sent := false
	r.byText[text] = &models.NewsItem{ID: r.nextID, Text: text, IsSent: &sent}
}

type setCall struct {
	key  string
	ttl  time.Duration
	item models.NewsItem
}

// fakeCache is a map-backed cache.Cache that records every call
type fakeCache struct {
	entries map[string]models.NewsItem
	gets    int
	sets    []setCall
	getErr  error
	setErr  error
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]models.NewsItem)}
}

func (c *fakeCache) Get(_ context.Context, key string) (*models.NewsItem, bool, error) {
	c.gets++
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	item, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return &item, true, nil
}

func (c *fakeCache) Set(_ context.Context, key string, ttl time.Duration, item *models.NewsItem) error {
	c.sets = append(c.sets, setCall{key: key, ttl: ttl, item: *item})
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = *item
	return nil
}

func (c *fakeCache) Close() error { return nil }

func dto(text string) models.NewsDTO {
	return models.NewsDTO{Time: "2024-05-01T10:00:00Z", Keywords: "kw", Text: text}
}

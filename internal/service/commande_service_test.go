package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/asquebay/cantine-order-service/internal/model"
	"github.com/asquebay/cantine-order-service/internal/repository/cache"
	"github.com/asquebay/cantine-order-service/internal/repository/postgres"
	"github.com/asquebay/cantine-order-service/internal/service"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memoryRepo — in-memory реализация CommandeRepository для тестов сервиса
// повторяет контракт постгрес-слоя: те же сентинельные ошибки,
// назначение id, аудит-полей и версии только на стороне хранилища
type memoryRepo struct {
	mu      sync.Mutex
	items   map[string]model.Commande // ключ — clientDate
	nextID  int
	failing error // если задана, все записи падают с этой ошибкой
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]model.Commande)}
}

func (r *memoryRepo) Insert(_ context.Context, commande model.Commande) (model.Commande, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing != nil {
		return model.Commande{}, r.failing
	}
	key := commande.Key()
	if _, exists := r.items[key]; exists {
		return model.Commande{}, postgres.ErrCommandeConflict
	}

	now := time.Now().UTC()
	stored := commande
	r.nextID++
	stored.ID = fmt.Sprintf("cmd-%d", r.nextID)
	stored.ClientDate = key
	stored.CreatedBy = "system"
	stored.CreatedDate = now
	stored.UpdatedBy = "system"
	stored.UpdatedDate = now
	stored.Version = 0

	r.items[key] = stored
	return stored, nil
}

func (r *memoryRepo) Save(_ context.Context, commande model.Commande) (model.Commande, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failing != nil {
		return model.Commande{}, r.failing
	}
	key := commande.Key()
	existing, ok := r.items[key]
	if !ok {
		return model.Commande{}, postgres.ErrCommandeNotFound
	}
	if existing.Version != commande.Version {
		return model.Commande{}, postgres.ErrCommandeConflict
	}

	stored := commande
	stored.ClientDate = key
	stored.UpdatedBy = "system"
	stored.UpdatedDate = time.Now().UTC()
	stored.Version = commande.Version + 1

	r.items[key] = stored
	return stored, nil
}

func (r *memoryRepo) Delete(_ context.Context, commande model.Commande) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := commande.Key()
	if _, ok := r.items[key]; !ok {
		return postgres.ErrCommandeNotFound
	}
	delete(r.items, key)
	return nil
}

func (r *memoryRepo) FindAll(_ context.Context) ([]model.Commande, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]model.Commande, 0, len(r.items))
	for _, c := range r.items {
		result = append(result, c)
	}
	return result, nil
}

func (r *memoryRepo) FindByClientDate(_ context.Context, clientDate string) (model.Commande, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.items[clientDate]
	if !ok {
		return model.Commande{}, postgres.ErrCommandeNotFound
	}
	return c, nil
}

func (r *memoryRepo) FindByDateCommande(_ context.Context, dateCommande string) ([]model.Commande, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []model.Commande{}
	for _, c := range r.items {
		if c.DateCommande == dateCommande {
			result = append(result, c)
		}
	}
	return result, nil
}

// recordingPublisher фиксирует опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	events []model.EntityCrudAction
	panics bool
}

func (p *recordingPublisher) Publish(evt model.EntityCrudAction) {
	if p.panics {
		panic("publisher is broken")
	}
	p.mu.Lock()
	p.events = append(p.events, evt)
	p.mu.Unlock()
}

func (p *recordingPublisher) published() []model.EntityCrudAction {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.EntityCrudAction(nil), p.events...)
}

func newService(repo *memoryRepo, pub service.MutationPublisher) *service.CommandeService {
	return service.NewCommandeService(repo, cache.NewCommandeCache(), pub, testLogger())
}

func TestCreatePublishesCreateEvent(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	stored, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
		Menu:         "A",
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
	require.Equal(t, "Alice01/01/2024", stored.ClientDate)
	require.Equal(t, int64(0), stored.Version)

	events := pub.published()
	require.Len(t, events, 1)
	require.Equal(t, model.ActionCreate, events[0].Action)
	require.Equal(t, "Alice", events[0].Entity.Client)
	// в событии уходит сохранённая форма записи, с назначенным id
	require.Equal(t, stored.ID, events[0].Entity.ID)
}

func TestCreateFailurePublishesNothing(t *testing.T) {
	repo := newMemoryRepo()
	repo.failing = fmt.Errorf("db is down")
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	_, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.Error(t, err)
	require.Empty(t, pub.published())
}

func TestCreateDuplicateReturnsConflict(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	commande := model.Commande{Client: "Alice", DateCommande: "01/01/2024"}
	_, err := svc.Create(context.Background(), commande)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), commande)
	require.ErrorIs(t, err, postgres.ErrCommandeConflict)
	require.Len(t, pub.published(), 1)
}

func TestSequentialUpdatesBumpVersionAndPublishInOrder(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	stored, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
		Menu:         "A",
	})
	require.NoError(t, err)

	stored.Menu = "B"
	first, err := svc.Update(context.Background(), stored)
	require.NoError(t, err)
	require.Equal(t, int64(1), first.Version)

	first.Menu = "C"
	second, err := svc.Update(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, int64(2), second.Version)

	events := pub.published()
	require.Len(t, events, 3)
	require.Equal(t, model.ActionCreate, events[0].Action)
	require.Equal(t, model.ActionUpdate, events[1].Action)
	require.Equal(t, int64(1), events[1].Entity.Version)
	require.Equal(t, model.ActionUpdate, events[2].Action)
	require.Equal(t, int64(2), events[2].Entity.Version)
}

func TestUpdateWithStaleVersionReturnsConflict(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	stored, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), stored)
	require.NoError(t, err)

	// повторное обновление с той же (устаревшей) версией
	_, err = svc.Update(context.Background(), stored)
	require.ErrorIs(t, err, postgres.ErrCommandeConflict)
	require.Len(t, pub.published(), 2)
}

func TestUpdateResolvesRecordByClientDate(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	_, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
		Menu:         "A",
	})
	require.NoError(t, err)

	// payload без id: запись находится по бизнес-ключу
	updated, err := svc.Update(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
		Menu:         "B",
	})
	require.NoError(t, err)
	require.Equal(t, "B", updated.Menu)
	require.Equal(t, int64(1), updated.Version)
}

func TestDeleteDoesNotPublish(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	svc := newService(repo, pub)

	stored, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), stored))

	// запись исчезла из хранилища и кэша
	_, err = svc.Read(context.Background(), stored.ClientDate)
	require.ErrorIs(t, err, postgres.ErrCommandeNotFound)

	// удаление НЕ публикуется — текущее поведение продукта,
	// тест закрепляет его от случайных "исправлений"
	events := pub.published()
	require.Len(t, events, 1)
	require.Equal(t, model.ActionCreate, events[0].Action)
}

func TestReadServesFromCacheAfterFirstHit(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	c := cache.NewCommandeCache()
	svc := service.NewCommandeService(repo, c, pub, testLogger())

	stored, err := repo.Insert(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.NoError(t, err)

	// первый Read идёт в репозиторий и кладёт запись в кэш
	got, err := svc.Read(context.Background(), stored.ClientDate)
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)

	// после удаления из хранилища чтение по-прежнему обслуживается кэшем
	require.NoError(t, repo.Delete(context.Background(), stored))
	got, err = svc.Read(context.Background(), stored.ClientDate)
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)

	// чтения ничего не публикуют
	require.Empty(t, pub.published())
}

func TestPublishPanicDoesNotFailTheMutation(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{panics: true}
	svc := newService(repo, pub)

	// запись зафиксирована — сбой нотификации не должен дойти до вызывающего
	stored, err := svc.Create(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.NoError(t, err)
	require.NotEmpty(t, stored.ID)
}

func TestRestoreCacheWarmsReads(t *testing.T) {
	repo := newMemoryRepo()
	pub := &recordingPublisher{}
	c := cache.NewCommandeCache()
	svc := service.NewCommandeService(repo, c, pub, testLogger())

	stored, err := repo.Insert(context.Background(), model.Commande{
		Client:       "Alice",
		DateCommande: "01/01/2024",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RestoreCache(context.Background()))

	cached, ok := c.Get(stored.ClientDate)
	require.True(t, ok)
	require.Equal(t, stored.ID, cached.ID)
}

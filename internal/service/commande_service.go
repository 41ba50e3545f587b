package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/asquebay/cantine-order-service/internal/model"
	"github.com/asquebay/cantine-order-service/internal/repository/postgres"
)

// CommandeService инкапсулирует бизнес-логику работы с заказами
// это единственный слой, которому разрешено мутировать хранилище
// и публиковать события мутаций
type CommandeService struct {
	repo      CommandeRepository
	cache     CommandeCache
	publisher MutationPublisher
	log       *slog.Logger
}

// NewCommandeService создаёт новый экземпляр сервиса заказов
// он принимает интерфейсы, а не конкретные типы, для гибкости и тестируемости
func NewCommandeService(repo CommandeRepository, cache CommandeCache, publisher MutationPublisher, log *slog.Logger) *CommandeService {
	return &CommandeService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		log:       log,
	}
}

// Create обрабатывает создание нового заказа
// сначала заказ сохраняется в БД, и только при успехе публикуется
// событие CREATE с уже сохранённой формой записи (назначенный id, аудит-поля)
// при ошибке хранилища событие не публикуется вовсе
func (s *CommandeService) Create(ctx context.Context, commande model.Commande) (model.Commande, error) {
	const op = "service.CommandeService.Create"
	log := s.log.With(slog.String("op", op), slog.String("client_date", commande.Key()))

	log.Info("attempting to create commande")

	stored, err := s.repo.Insert(ctx, commande)
	if err != nil {
		log.Error("failed to save commande to repository", slog.String("error", err.Error()))
		// ошибку не маскируем, а оборачиваем для контекста
		return model.Commande{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Set(stored)
	s.publish(model.EntityCrudAction{Entity: stored, Action: model.ActionCreate})
	log.Info("commande created", slog.String("id", stored.ID))

	return stored, nil
}

// Update полностью перезаписывает заказ
// при успехе публикуется событие UPDATE с инкрементированной версией
// если клиент не передал id, запись разыскивается по бизнес-ключу clientDate
func (s *CommandeService) Update(ctx context.Context, commande model.Commande) (model.Commande, error) {
	const op = "service.CommandeService.Update"
	log := s.log.With(slog.String("op", op), slog.String("client_date", commande.Key()))

	if commande.ID == "" {
		existing, err := s.repo.FindByClientDate(ctx, commande.Key())
		if err != nil {
			log.Error("failed to resolve commande by client_date", slog.String("error", err.Error()))
			return model.Commande{}, fmt.Errorf("%s: %w", op, err)
		}
		commande.ID = existing.ID
		commande.Version = existing.Version
	}

	stored, err := s.repo.Save(ctx, commande)
	if err != nil {
		log.Error("failed to save commande to repository", slog.String("error", err.Error()))
		return model.Commande{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Set(stored)
	s.publish(model.EntityCrudAction{Entity: stored, Action: model.ActionUpdate})
	log.Info("commande updated", slog.Int64("version", stored.Version))

	return stored, nil
}

// Read получает заказ по бизнес-ключу clientDate
// сначала ищет в кэше, и только если там нет — обращается к БД
// чтение событий не публикует
func (s *CommandeService) Read(ctx context.Context, clientDate string) (model.Commande, error) {
	const op = "service.CommandeService.Read"
	log := s.log.With(slog.String("op", op), slog.String("client_date", clientDate))

	commande, found := s.cache.Get(clientDate)
	if found {
		log.Debug("commande found in cache")
		return commande, nil
	}

	log.Debug("commande not found in cache, will check repository")

	commande, err := s.repo.FindByClientDate(ctx, clientDate)
	if err != nil {
		// не логируем как ошибку, если просто не найдено
		if !errors.Is(err, postgres.ErrCommandeNotFound) {
			log.Error("failed to get commande from repository", slog.String("error", err.Error()))
		}
		return model.Commande{}, fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Set(commande)
	log.Info("commande found in repository and now cached")

	return commande, nil
}

// FetchAll возвращает все заказы; чистое чтение без публикации
func (s *CommandeService) FetchAll(ctx context.Context) ([]model.Commande, error) {
	const op = "service.CommandeService.FetchAll"

	commandes, err := s.repo.FindAll(ctx)
	if err != nil {
		s.log.Error("failed to fetch commandes", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return commandes, nil
}

// FindByDateCommande возвращает заказы на указанную дату; чистое чтение
func (s *CommandeService) FindByDateCommande(ctx context.Context, dateCommande string) ([]model.Commande, error) {
	const op = "service.CommandeService.FindByDateCommande"

	commandes, err := s.repo.FindByDateCommande(ctx, dateCommande)
	if err != nil {
		s.log.Error("failed to find commandes by date", slog.String("op", op), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return commandes, nil
}

// Delete удаляет заказ из БД и кэша
// событие подписчикам НЕ публикуется: так ведёт себя текущий продукт,
// и менять это без явного решения нельзя
func (s *CommandeService) Delete(ctx context.Context, commande model.Commande) error {
	const op = "service.CommandeService.Delete"
	log := s.log.With(slog.String("op", op), slog.String("client_date", commande.Key()))

	if commande.ID == "" {
		existing, err := s.repo.FindByClientDate(ctx, commande.Key())
		if err != nil {
			log.Error("failed to resolve commande by client_date", slog.String("error", err.Error()))
			return fmt.Errorf("%s: %w", op, err)
		}
		commande = existing
	}

	if err := s.repo.Delete(ctx, commande); err != nil {
		log.Error("failed to delete commande", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cache.Delete(commande.Key())
	log.Info("commande deleted")

	return nil
}

// RestoreCache восстанавливает состояние кэша из базы данных при старте
func (s *CommandeService) RestoreCache(ctx context.Context) error {
	const op = "service.CommandeService.RestoreCache"
	log := s.log.With(slog.String("op", op))

	log.Info("starting cache restoration from database")

	commandes, err := s.repo.FindAll(ctx)
	if err != nil {
		log.Error("failed to get all commandes from repository", slog.String("error", err.Error()))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.cache.LoadAll(commandes)

	log.Info("cache restored successfully", slog.Int("commandes_count", len(commandes)))
	return nil
}

// publish отдаёт событие нотификатору
// нотификация — best-effort: запись уже зафиксирована в БД, поэтому сбой
// публикации логируется и не превращается в ошибку для вызывающего
func (s *CommandeService) publish(evt model.EntityCrudAction) {
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("failed to publish mutation event after successful persistence",
				slog.Any("panic", rec),
				slog.String("action", string(evt.Action)),
				slog.String("client_date", evt.Entity.ClientDate),
			)
		}
	}()

	s.publisher.Publish(evt)
}

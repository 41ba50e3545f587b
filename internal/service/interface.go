package service

import (
	"context"

	"github.com/asquebay/cantine-order-service/internal/model"
)

// CommandeRepository определяет контракт для хранилища заказов в БД
type CommandeRepository interface {
	Insert(ctx context.Context, commande model.Commande) (model.Commande, error)
	Save(ctx context.Context, commande model.Commande) (model.Commande, error)
	Delete(ctx context.Context, commande model.Commande) error
	FindAll(ctx context.Context) ([]model.Commande, error)
	FindByClientDate(ctx context.Context, clientDate string) (model.Commande, error)
	FindByDateCommande(ctx context.Context, dateCommande string) ([]model.Commande, error)
}

// CommandeCache определяет контракт для in-memory кэша заказов
type CommandeCache interface {
	Set(commande model.Commande)
	Get(clientDate string) (model.Commande, bool)
	Delete(clientDate string)
	LoadAll(commandes []model.Commande)
}

// MutationPublisher определяет контракт точки раздачи событий мутаций
// сервис — единственный публикатор событий в приложении
type MutationPublisher interface {
	Publish(evt model.EntityCrudAction)
}

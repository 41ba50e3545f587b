package cache

import (
	"sync"

	"github.com/asquebay/cantine-order-service/internal/model"
)

// CommandeCache — потокобезопасный in-memory кэш заказов
type CommandeCache struct {
	// sync.Map выбрал для обеспечения потокобезопасности
	// Ключ — string (clientDate), значение — model.Commande
	storage sync.Map
}

// NewCommandeCache создаёт новый экземпляр кэша
func NewCommandeCache() *CommandeCache {
	return &CommandeCache{}
}

// Set добавляет или обновляет заказ в кэше
func (c *CommandeCache) Set(commande model.Commande) {
	c.storage.Store(commande.ClientDate, commande)
}

// Get извлекает заказ из кэша по бизнес-ключу clientDate
// возвращает заказ и true, если он найден, иначе — пустую структуру и false
func (c *CommandeCache) Get(clientDate string) (model.Commande, bool) {
	value, ok := c.storage.Load(clientDate)
	if !ok {
		return model.Commande{}, false
	}

	// выполняем безопасное приведение типа
	commande, ok := value.(model.Commande)
	return commande, ok
}

// Delete убирает заказ из кэша; вызывается после удаления записи из БД
func (c *CommandeCache) Delete(clientDate string) {
	c.storage.Delete(clientDate)
}

// LoadAll загружает в кэш срез заказов
// используется для первоначального заполнения кэша при старте сервиса
func (c *CommandeCache) LoadAll(commandes []model.Commande) {
	for _, commande := range commandes {
		c.Set(commande)
	}
}

package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/asquebay/cantine-order-service/internal/model"
	"github.com/asquebay/cantine-order-service/internal/notifier"
)

// SnapshotSource определяет контракт для снимка "заказы на сегодня"
type SnapshotSource interface {
	FindByDateCommande(ctx context.Context, dateCommande string) ([]model.Commande, error)
}

// Composer собирает живую ленту отдельного клиентского соединения:
// сначала снимок сегодняшних заказов в виде READ-событий, затем без разрыва —
// живой поток мутаций из нотификатора
type Composer struct {
	src      SnapshotSource
	notifier *notifier.Notifier
	log      *slog.Logger
	now      func() time.Time
}

// NewComposer создаёт новый экземпляр композера
func NewComposer(src SnapshotSource, n *notifier.Notifier, log *slog.Logger) *Composer {
	return &Composer{
		src:      src,
		notifier: n,
		log:      log,
		now:      time.Now,
	}
}

// Stream возвращает канал событий для одного соединения
// подписка регистрируется ДО запроса снимка: мутации, опубликованные во время
// выполнения запроса, копятся в очереди подписки и выходят следом за снимком,
// так что разрыва между снимком и живым потоком нет
// отмена ctx закрывает канал и освобождает подписку, не трогая остальных
func (c *Composer) Stream(ctx context.Context) <-chan model.EntityCrudAction {
	sub := c.notifier.Subscribe()
	out := make(chan model.EntityCrudAction)

	go func() {
		defer close(out)
		defer sub.Close()

		today := c.now().Format(model.DateLayout)

		commandes, err := c.src.FindByDateCommande(ctx, today)
		if err != nil {
			// снимок не получился — лента продолжает жить только на живых событиях
			c.log.Error("snapshot query failed, continuing with live feed only",
				slog.String("date", today),
				slog.String("error", err.Error()),
			)
		}

		// снимок: по одному READ-событию на запись, порядок выборки сохраняется
		for _, commande := range commandes {
			select {
			case out <- model.EntityCrudAction{Entity: commande, Action: model.ActionRead}:
			case <-ctx.Done():
				return
			}
		}

		// живой поток: не завершается сам по себе,
		// только при отключении клиента или остановке нотификатора
		for {
			select {
			case evt, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case out <- evt:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/asquebay/cantine-order-service/internal/model"
	"github.com/asquebay/cantine-order-service/internal/repository/postgres"

	"github.com/segmentio/kafka-go"
)

// CommandeCreator — это интерфейс, который абстрагирует консьюмер
// от конкретной реализации сервисного слоя
// заказы, пришедшие через кафку, проходят тот же путь, что и HTTP-создание:
// подписчики живой ленты получат CREATE-событие обычным образом
type CommandeCreator interface {
	Create(ctx context.Context, commande model.Commande) (model.Commande, error)
}

// Consumer представляет собой консьюмер сообщений Kafka
type Consumer struct {
	reader  *kafka.Reader
	service CommandeCreator
	log     *slog.Logger
}

// NewConsumer создает новый экземпляр консьюмера
func NewConsumer(brokers []string, topic, groupID string, service CommandeCreator, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,
	})

	return &Consumer{
		reader:  reader,
		service: service,
		log:     log,
	}
}

// Run запускает цикл чтения сообщений из Kafka
// эта функция блокирующая, поэтому она запускается в отдельной горутине
func (c *Consumer) Run(ctx context.Context) {
	log := c.log.With(slog.String("component", "kafka_consumer"))
	log.Info("Kafka consumer started")

	for {
		// проверка на отмену контекста
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, stopping consumer.")
			return
		default:
			// FetchMessage блокирует до тех пор, пока не придет новое сообщение или не возникнет ошибка
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				// если контекст был отменен во время ожидания, это нормальное завершение
				if errors.Is(err, context.Canceled) {
					return
				}
				// если ридер был закрыт, тоже выходим
				if errors.Is(err, io.EOF) {
					log.Info("Kafka reader closed")
					return
				}
				log.Error("failed to fetch message", slog.String("error", err.Error()))
				continue // пробуем снова
			}

			log.Info("received message", slog.String("topic", msg.Topic), slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))

			// 1. Пытаемся обработать
			if err := c.handleMessage(ctx, msg); err != nil {
				log.Error("failed to handle message", slog.String("error", err.Error()))
				// сообщение НЕ подтверждаем — пусть Kafka отдаст его снова
				continue
			}

			// 2. Всё прошло — фиксируем offset
			// это ВАЖНО сделать ПОСЛЕ успешной обработки
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Error("failed to commit message", slog.String("error", err.Error()))
			}
		}
	}
}

// handleMessage парсит и обрабатывает одно сообщение
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var commande model.Commande

	// распарсим JSON
	if err := json.Unmarshal(msg.Value, &commande); err != nil {
		// сообщение невалидно — логируем и пропускаем,
		// перечитывать его бессмысленно
		c.log.Warn("failed to unmarshal message, skipping", slog.String("error", err.Error()))
		return nil
	}

	// валидация данных
	if err := commande.Validate(); err != nil {
		// данные не прошли валидацию (например, отсутствуют обязательные поля)
		// логируем и игнорируем
		c.log.Warn("message validation failed, skipping",
			slog.String("error", err.Error()),
			slog.String("client_date", commande.Key()),
		)
		return nil
	}

	// передаём заказ в сервисный слой: сохранение в БД, кэш и публикация события
	if _, err := c.service.Create(ctx, commande); err != nil {
		// дубликат client_date повторной доставкой не лечится — пропускаем
		if errors.Is(err, postgres.ErrCommandeConflict) {
			c.log.Warn("duplicate commande, skipping",
				slog.String("client_date", commande.Key()),
			)
			return nil
		}
		c.log.Error("failed to create commande in service",
			slog.String("error", err.Error()),
			slog.String("client_date", commande.Key()),
		)
		return err
	}

	c.log.Info("commande successfully processed", slog.String("client_date", commande.Key()))
	return nil
}

// graceful shutdown консьюмера
func (c *Consumer) Close() error {
	c.log.Info("Closing kafka consumer")
	return c.reader.Close()
}

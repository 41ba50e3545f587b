// этот код не зависит от приложения,
// и нужен только для тестирования отправки JSON-заказов через кафку в сервис
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/segmentio/kafka-go"
)

func main() {
	// конфигурация из config.yaml
	brokerAddress := "localhost:9092"
	topic := "commandes"

	// JSON-сообщение
	message := `{
           "client": "Alice",
           "dateCommande": "01/01/2024",
           "menu": "menu du jour",
           "plat": "poulet roti",
           "pain": "baguette",
           "ingredient": "tomate",
           "accompagnements": [ "frites", "salade" ],
           "dessert": "tarte aux pommes",
           "complement": "fromage",
           "boisson": "eau",
           "traitee": false
        }`

	// настройки писателя (producer-а)
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokerAddress),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	defer writer.Close()

	log.Println("Sending message to Kafka...")
	err := writer.WriteMessages(context.Background(),
		kafka.Message{
			Value: []byte(message),
		},
	)
	if err != nil {
		log.Fatalf("Failed to write message: %v", err)
	}
	fmt.Println("Message sent successfully!")
}

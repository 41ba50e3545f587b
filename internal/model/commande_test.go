package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyDerivation(t *testing.T) {
	// явно переданный ключ имеет приоритет
	c := Commande{ClientDate: "custom-key", Client: "Alice", DateCommande: "01/01/2024"}
	require.Equal(t, "custom-key", c.Key())

	// без ключа он выводится из имени клиента и даты заказа
	c = Commande{Client: "Alice", DateCommande: "01/01/2024"}
	require.Equal(t, "Alice01/01/2024", c.Key())
}

func TestValidateRequiresClientAndDate(t *testing.T) {
	c := Commande{Client: "Alice", DateCommande: "01/01/2024"}
	require.NoError(t, c.Validate())

	c = Commande{Client: "Alice"}
	require.Error(t, c.Validate())

	c = Commande{DateCommande: "01/01/2024"}
	require.Error(t, c.Validate())
}

func TestWireFieldNames(t *testing.T) {
	commande := Commande{
		Client:          "Alice",
		DateCommande:    "01/01/2024",
		Accompagnements: []string{"frites"},
		Traitee:         true,
	}

	data, err := json.Marshal(EntityCrudAction{Entity: commande, Action: ActionCreate})
	require.NoError(t, err)

	// имена полей зафиксированы контрактом: один и тот же вид записи
	// в CRUD-ответах и в данных SSE-событий
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	require.Equal(t, "CREATE", raw["action"])

	entity, ok := raw["entity"].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{
		"id", "clientDate", "client", "dateCommande", "menu", "plat", "pain",
		"ingredient", "accompagnements", "dessert", "complement", "boisson", "traitee",
		"createdBy", "createdDate", "updatedBy", "updatedDate", "version",
	} {
		require.Contains(t, entity, field)
	}
}

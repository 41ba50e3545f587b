package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/asquebay/cantine-order-service/internal/model"
)

func TestSetGet(t *testing.T) {
	c := NewCommandeCache()

	commande := model.Commande{ClientDate: "Alice01/01/2024", Client: "Alice"}
	c.Set(commande)

	got, ok := c.Get("Alice01/01/2024")
	require.True(t, ok)
	require.Equal(t, "Alice", got.Client)

	_, ok = c.Get("nobody")
	require.False(t, ok)
}

func TestSetOverwrites(t *testing.T) {
	c := NewCommandeCache()

	c.Set(model.Commande{ClientDate: "Alice01/01/2024", Menu: "A"})
	c.Set(model.Commande{ClientDate: "Alice01/01/2024", Menu: "B"})

	got, ok := c.Get("Alice01/01/2024")
	require.True(t, ok)
	require.Equal(t, "B", got.Menu)
}

func TestDelete(t *testing.T) {
	c := NewCommandeCache()

	c.Set(model.Commande{ClientDate: "Alice01/01/2024"})
	c.Delete("Alice01/01/2024")

	_, ok := c.Get("Alice01/01/2024")
	require.False(t, ok)
}

func TestLoadAll(t *testing.T) {
	c := NewCommandeCache()

	c.LoadAll([]model.Commande{
		{ClientDate: "Alice01/01/2024"},
		{ClientDate: "Bob01/01/2024"},
	})

	_, ok := c.Get("Alice01/01/2024")
	require.True(t, ok)
	_, ok = c.Get("Bob01/01/2024")
	require.True(t, ok)
}

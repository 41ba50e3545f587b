package postgres

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// payload без поля accompagnements приходит с nil-срезом:
// в таком виде pgx записал бы SQL NULL в NOT NULL-колонку
func TestNormalizedAccompagnementsReplacesNilWithEmptySlice(t *testing.T) {
	got := normalizedAccompagnements(nil)

	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestNormalizedAccompagnementsKeepsProvidedValues(t *testing.T) {
	values := []string{"frites", "salade"}

	got := normalizedAccompagnements(values)

	require.Equal(t, values, got)
}

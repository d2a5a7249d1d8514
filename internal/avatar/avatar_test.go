package avatar

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("KnownIDs", func(t *testing.T) {
		assert.Equal(t, "Gigi", Get(Gigi).Name)
		assert.Equal(t, "Vee", Get(Vee).Name)
		assert.Equal(t, "Lumo", Get(Lumo).Name)
	})

	t.Run("UnknownIDFallsBackToDefault", func(t *testing.T) {
		a := Get("nobody")
		assert.Equal(t, DefaultID, a.ID)
	})
}

func TestList(t *testing.T) {
	avatars := List()
	assert.Len(t, avatars, 3)

	// List returns a copy, mutations must not leak into the registry.
	avatars[0].Name = "mutated"
	assert.Equal(t, "Gigi", Get(Gigi).Name)
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(Vee))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("zorp"))
}

func TestEveryAvatarHasPersonaPrompt(t *testing.T) {
	for _, a := range List() {
		assert.NotEmpty(t, a.SystemPrompt, "avatar %s", a.ID)
		assert.NotEmpty(t, a.Description, "avatar %s", a.ID)
	}
}

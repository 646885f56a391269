package themes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTheme(t *testing.T) {
	assert.Equal(t, "dark", GetTheme("dark").Name)
	assert.True(t, GetTheme("dark").Dark)
	assert.Equal(t, "light", GetTheme("light").Name)
	assert.Equal(t, "light", GetTheme("solarized").Name)
	assert.NotEqual(t, Light.Primary, Dark.Primary)
}

package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersExplicitSetting(t *testing.T) {
	t.Setenv("FLINT_INSTANCE_ID", "api-7")
	t.Setenv("DYNO", "web.1")
	assert.Equal(t, "api-7", ID())

	t.Setenv("FLINT_INSTANCE_ID", "")
	assert.Equal(t, "web.1", ID())

	t.Setenv("DYNO", "")
	assert.NotEmpty(t, ID())
}

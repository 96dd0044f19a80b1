package vintagestory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlayerList(t *testing.T) {
	a := &Adapter{}

	output := "[1] Alice [::ffff:10.0.0.5]:51234\n[2] Bob [::ffff:10.0.0.6]:51240\n"
	assert.Equal(t, []string{"Alice", "Bob"}, a.ParsePlayerList(output))

	assert.Nil(t, a.ParsePlayerList(""))
	assert.Nil(t, a.ParsePlayerList("No clients connected"))
}

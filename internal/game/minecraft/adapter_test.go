package minecraft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlayerList(t *testing.T) {
	a := &Adapter{}

	tests := []struct {
		name   string
		output string
		want   []string
	}{
		{
			"two players",
			"There are 2 of a max of 20 players online: Alice, Bob",
			[]string{"Alice", "Bob"},
		},
		{
			"empty server",
			"There are 0 of a max of 20 players online:",
			nil,
		},
		{
			"single player with trailing newline",
			"There are 1 of a max of 20 players online: Alice\n",
			[]string{"Alice"},
		},
		{
			"unrelated output",
			"Unknown command. Type \"/help\" for help.",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.ParsePlayerList(tt.output))
		})
	}
}

func TestQueryCommand(t *testing.T) {
	a := &Adapter{}
	assert.Equal(t, []string{"rcon-cli", "list"}, a.QueryCommand(a.ListCommand()))
}

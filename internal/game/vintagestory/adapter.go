package vintagestory

import (
	"regexp"

	"github.com/craftdeck/craftdeck/internal/game"
)

func init() {
	game.Register(&Adapter{})
}

type Adapter struct{}

// "/list clients" prints one line per connected client:
//   [1] Alice [::ffff:10.0.0.5]:51234
var clientRe = regexp.MustCompile(`^\[\d+\]\s+(\S+)`)

func (a *Adapter) Game() string         { return "vintagestory" }
func (a *Adapter) DefaultImage() string { return "devidian/vintagestory:latest" }
func (a *Adapter) DefaultPort() string  { return "42420" }
func (a *Adapter) ListCommand() string  { return "list clients" }
func (a *Adapter) StopCommand() string  { return "stop" }

func (a *Adapter) QueryCommand(command string) []string {
	return []string{"/bin/sh", "-c", "vscli " + command}
}

func (a *Adapter) ParsePlayerList(output string) []string {
	var players []string
	for _, line := range regexp.MustCompile(`\r?\n`).Split(output, -1) {
		if m := clientRe.FindStringSubmatch(line); m != nil {
			players = append(players, m[1])
		}
	}
	return players
}

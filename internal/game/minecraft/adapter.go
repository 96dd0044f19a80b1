package minecraft

import (
	"regexp"
	"strings"

	"github.com/craftdeck/craftdeck/internal/game"
)

func init() {
	game.Register(&Adapter{})
}

type Adapter struct{}

// Output of the vanilla "list" command:
//   There are 2 of a max of 20 players online: Alice, Bob
var listRe = regexp.MustCompile(`There are \d+ of a max of \d+ players online:?\s*(.*)`)

func (a *Adapter) Game() string         { return "minecraft" }
func (a *Adapter) DefaultImage() string { return "itzg/minecraft-server:latest" }
func (a *Adapter) DefaultPort() string  { return "25565" }
func (a *Adapter) ListCommand() string  { return "list" }
func (a *Adapter) StopCommand() string  { return "stop" }

func (a *Adapter) QueryCommand(command string) []string {
	// itzg images ship rcon-cli pointed at the local server
	return []string{"rcon-cli", command}
}

func (a *Adapter) ParsePlayerList(output string) []string {
	m := listRe.FindStringSubmatch(output)
	if m == nil {
		return nil
	}
	var players []string
	for _, name := range strings.Split(m[1], ",") {
		name = strings.TrimSpace(name)
		if name != "" {
			players = append(players, name)
		}
	}
	return players
}

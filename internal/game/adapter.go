package game

// Adapter provides game-specific behavior for a hosted server type.
type Adapter interface {
	// Game returns the game identifier (e.g., "minecraft", "vintagestory")
	Game() string

	// DefaultImage returns the container image used when deploying a server
	DefaultImage() string

	// DefaultPort returns the game port players connect to
	DefaultPort() string

	// ListCommand returns the console command that prints online players
	ListCommand() string

	// QueryCommand returns the in-container argv used to run a console
	// command when its output must be captured
	QueryCommand(command string) []string

	// ParsePlayerList extracts player names from the list command's output
	ParsePlayerList(output string) []string

	// StopCommand returns the graceful stop command for the server
	StopCommand() string
}

package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/craftdeck/craftdeck/internal/console"
)

// playerToken is the placeholder substituted with the triggering player's
// name in command text and target selectors. When no player is in scope the
// token is sent through unresolved; commands stay best-effort.
const playerToken = "{player}"

// secondsToken is substituted with the current count on every countdown tick.
const secondsToken = "{seconds}"

// Default title timings, in ticks.
const (
	defaultFadeIn  = 10
	defaultStay    = 70
	defaultFadeOut = 20
)

const countdownTickSound = "minecraft:block.note_block.hat"

// Interpreter executes one action against one server. Every console send
// goes through the injected transport; transport failures surface as the
// call's error and are never retried here.
type Interpreter struct {
	transport console.Transport

	// sleep is swapped out in tests; delay and countdown are the only
	// deliberate suspension points in the engine.
	sleep func(ctx context.Context, d time.Duration)
}

func NewInterpreter(transport console.Transport) *Interpreter {
	return &Interpreter{
		transport: transport,
		sleep: func(ctx context.Context, d time.Duration) {
			select {
			case <-ctx.Done():
			case <-time.After(d):
			}
		},
	}
}

// Execute runs a single action. player may be empty for triggers that carry
// no player context.
func (i *Interpreter) Execute(ctx context.Context, serverID string, action Action, player string) error {
	switch action.Type {
	case ActionCommand:
		return i.runCommand(ctx, serverID, action.Command, player)
	case ActionTitle:
		return i.runTitle(ctx, serverID, "title", action.Text, player)
	case ActionSubtitle:
		return i.runTitle(ctx, serverID, "subtitle", action.Text, player)
	case ActionActionbar:
		return i.runTitle(ctx, serverID, "actionbar", action.Text, player)
	case ActionMessage:
		return i.runMessage(ctx, serverID, action.Text, player)
	case ActionDelay:
		if action.Delay.DelaySeconds > 0 {
			i.sleep(ctx, time.Duration(action.Delay.DelaySeconds)*time.Second)
		}
		return nil
	case ActionCountdown:
		return i.runCountdown(ctx, serverID, action.Countdown, player)
	case ActionSound:
		return i.runSound(ctx, serverID, action.Sound, player)
	case ActionEffect:
		return i.runEffect(ctx, serverID, action.Effect, player)
	case ActionTime:
		return i.send(ctx, serverID, "time set "+action.Time.Value)
	case ActionWeather:
		return i.send(ctx, serverID, "weather "+action.Weather.Value)
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

func (i *Interpreter) send(ctx context.Context, serverID, command string) error {
	return i.transport.ExecuteCommand(ctx, serverID, command)
}

func (i *Interpreter) runCommand(ctx context.Context, serverID string, cfg *CommandConfig, player string) error {
	cmd := cfg.Command
	if player != "" {
		cmd = strings.ReplaceAll(cmd, playerToken, player)
	}
	// Console commands carry no leading slash.
	cmd = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(cmd), "/"))
	if cmd == "" {
		return nil
	}
	return i.send(ctx, serverID, cmd)
}

// textComponent is the minimal structured-text payload the game renders.
// Bold and italic are emitted only when set.
type textComponent struct {
	Text   string `json:"text"`
	Color  string `json:"color,omitempty"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

func encodeText(cfg *TextConfig) string {
	payload, _ := json.Marshal(textComponent{
		Text:   cfg.Text,
		Color:  cfg.Color,
		Bold:   cfg.Bold,
		Italic: cfg.Italic,
	})
	return string(payload)
}

func (i *Interpreter) runMessage(ctx context.Context, serverID string, cfg *TextConfig, player string) error {
	target := resolveTarget(cfg.TargetSelector, player)
	return i.send(ctx, serverID, fmt.Sprintf("tellraw %s %s", target, encodeText(cfg)))
}

func (i *Interpreter) runTitle(ctx context.Context, serverID, slot string, cfg *TextConfig, player string) error {
	target := resolveTarget(cfg.TargetSelector, player)

	// A configured timing on any member switches the whole title to explicit
	// timings, with documented defaults filling the gaps.
	if slot == "title" && (cfg.FadeIn != nil || cfg.Stay != nil || cfg.FadeOut != nil) {
		times := fmt.Sprintf("title %s times %d %d %d", target,
			intOr(cfg.FadeIn, defaultFadeIn),
			intOr(cfg.Stay, defaultStay),
			intOr(cfg.FadeOut, defaultFadeOut))
		if err := i.send(ctx, serverID, times); err != nil {
			return err
		}
	}
	return i.send(ctx, serverID, fmt.Sprintf("title %s %s %s", target, slot, encodeText(cfg)))
}

// runCountdown iterates from the configured start down to 1, sending one
// title per tick. The loop deliberately blocks the sequence: countdowns are
// meant to visibly occupy it. No suspension follows the final tick.
func (i *Interpreter) runCountdown(ctx context.Context, serverID string, cfg *CountdownConfig, player string) error {
	target := resolveTarget(cfg.TargetSelector, player)

	message := cfg.Message
	if message == "" {
		message = secondsToken
	}
	interval := cfg.IntervalSeconds
	if interval <= 0 {
		interval = 1
	}

	for n := cfg.From; n >= 1; n-- {
		text := strings.ReplaceAll(message, secondsToken, fmt.Sprintf("%d", n))
		payload, _ := json.Marshal(textComponent{Text: text})
		if err := i.send(ctx, serverID, fmt.Sprintf("title %s title %s", target, payload)); err != nil {
			return err
		}

		pitch := 1.0
		if n == 1 {
			pitch = 2.0
		}
		tick := fmt.Sprintf("playsound %s master %s ~ ~ ~ 1 %g", countdownTickSound, target, pitch)
		if err := i.send(ctx, serverID, tick); err != nil {
			return err
		}

		if n > 1 {
			i.sleep(ctx, time.Duration(interval)*time.Second)
		}
	}
	return nil
}

func (i *Interpreter) runSound(ctx context.Context, serverID string, cfg *SoundConfig, player string) error {
	target := resolveTarget(cfg.TargetSelector, player)
	cmd := fmt.Sprintf("playsound %s master %s ~ ~ ~ %g %g",
		cfg.Sound, target, floatOr(cfg.Volume, 1), floatOr(cfg.Pitch, 1))
	return i.send(ctx, serverID, cmd)
}

func (i *Interpreter) runEffect(ctx context.Context, serverID string, cfg *EffectConfig, player string) error {
	target := resolveTarget(cfg.TargetSelector, player)
	cmd := fmt.Sprintf("effect give %s %s %d %d",
		target, cfg.Effect, intOr(cfg.Duration, 30), intOr(cfg.Amplifier, 0))
	return i.send(ctx, serverID, cmd)
}

// resolveTarget maps a configured target selector to the concrete command
// target. Empty selectors address everyone; the player placeholder resolves
// to the triggering player when one is known and is otherwise left as-is.
func resolveTarget(selector, player string) string {
	switch {
	case selector == "":
		return "@a"
	case selector == playerToken && player != "":
		return player
	default:
		return selector
	}
}

func intOr(v *int, fallback int) int {
	if v != nil {
		return *v
	}
	return fallback
}

func floatOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}

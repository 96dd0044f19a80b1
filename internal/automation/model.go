// Package automation is the server automation execution engine: ordered,
// timed action sequences fired on server lifecycle and player presence
// triggers.
package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Trigger is one of the four lifecycle events that can activate a sequence.
type Trigger string

const (
	TriggerStart       Trigger = "start"
	TriggerStop        Trigger = "stop"
	TriggerPlayerJoin  Trigger = "playerJoin"
	TriggerPlayerLeave Trigger = "playerLeave"
)

func (t Trigger) Valid() bool {
	switch t {
	case TriggerStart, TriggerStop, TriggerPlayerJoin, TriggerPlayerLeave:
		return true
	}
	return false
}

// RequiresPlayer reports whether the trigger only makes sense with a player
// name attached.
func (t Trigger) RequiresPlayer() bool {
	return t == TriggerPlayerJoin || t == TriggerPlayerLeave
}

// Known reports whether the action type is one this engine can execute.
func (t ActionType) Known() bool {
	switch t {
	case ActionCommand, ActionTitle, ActionSubtitle, ActionActionbar, ActionMessage,
		ActionDelay, ActionCountdown, ActionSound, ActionEffect, ActionTime, ActionWeather:
		return true
	}
	return false
}

// Definition holds the automation configuration of one server: up to four
// sequences, one per trigger. The engine only reads definitions; edits come
// through the API.
type Definition struct {
	ServerID      string    `json:"server_id"`
	Enabled       bool      `json:"enabled"`
	OnStart       *Sequence `json:"on_start,omitempty"`
	OnStop        *Sequence `json:"on_stop,omitempty"`
	OnPlayerJoin  *Sequence `json:"on_player_join,omitempty"`
	OnPlayerLeave *Sequence `json:"on_player_leave,omitempty"`
	LastEditedBy  string    `json:"last_edited_by,omitempty"`
	CreatedAt     string    `json:"created_at,omitempty"`
	UpdatedAt     string    `json:"updated_at,omitempty"`
}

// Sequence returns the sequence slot for a trigger, or nil.
func (d *Definition) Sequence(t Trigger) *Sequence {
	switch t {
	case TriggerStart:
		return d.OnStart
	case TriggerStop:
		return d.OnStop
	case TriggerPlayerJoin:
		return d.OnPlayerJoin
	case TriggerPlayerLeave:
		return d.OnPlayerLeave
	}
	return nil
}

// HasPresenceTriggers reports whether the definition carries an enabled
// join or leave sequence, i.e. whether the presence watcher must poll this
// server at all.
func (d *Definition) HasPresenceTriggers() bool {
	for _, seq := range []*Sequence{d.OnPlayerJoin, d.OnPlayerLeave} {
		if seq != nil && seq.Enabled && len(seq.Actions) > 0 {
			return true
		}
	}
	return false
}

func (d *Definition) Validate() error {
	for _, t := range []Trigger{TriggerStart, TriggerStop, TriggerPlayerJoin, TriggerPlayerLeave} {
		seq := d.Sequence(t)
		if seq == nil {
			continue
		}
		if err := seq.Validate(); err != nil {
			return fmt.Errorf("%s: %w", t, err)
		}
	}
	return nil
}

// Sequence is an ordered, named collection of actions bound to one trigger.
type Sequence struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Enabled   bool     `json:"enabled"`
	Actions   []Action `json:"actions"`
	CreatedAt string   `json:"created_at,omitempty"`
	UpdatedAt string   `json:"updated_at,omitempty"`
}

func (s *Sequence) Validate() error {
	for i := range s.Actions {
		if err := s.Actions[i].Validate(); err != nil {
			return fmt.Errorf("action %s: %w", s.Actions[i].ID, err)
		}
	}
	return nil
}

type ActionType string

const (
	ActionCommand   ActionType = "command"
	ActionTitle     ActionType = "title"
	ActionSubtitle  ActionType = "subtitle"
	ActionActionbar ActionType = "actionbar"
	ActionMessage   ActionType = "message"
	ActionDelay     ActionType = "delay"
	ActionCountdown ActionType = "countdown"
	ActionSound     ActionType = "sound"
	ActionEffect    ActionType = "effect"
	ActionTime      ActionType = "time"
	ActionWeather   ActionType = "weather"
)

// Action is one typed unit of work inside a sequence. Actions execute in
// ascending Order, not list position. The config payload is a variant keyed
// by Type, decoded into exactly one of the typed fields below; an unknown
// type keeps its raw payload and is skipped at run time rather than
// rejected.
type Action struct {
	ID      string     `json:"id"`
	Type    ActionType `json:"type"`
	Order   int        `json:"order"`
	Enabled bool       `json:"enabled"`

	Command   *CommandConfig   `json:"-"`
	Text      *TextConfig      `json:"-"`
	Delay     *DelayConfig     `json:"-"`
	Countdown *CountdownConfig `json:"-"`
	Sound     *SoundConfig     `json:"-"`
	Effect    *EffectConfig    `json:"-"`
	Time      *TimeConfig      `json:"-"`
	Weather   *WeatherConfig   `json:"-"`

	raw json.RawMessage
}

type CommandConfig struct {
	Command string `json:"command"`
}

// TextConfig backs the four text-bearing action types. The fade fields only
// apply to titles.
type TextConfig struct {
	Text           string `json:"text"`
	TargetSelector string `json:"target_selector,omitempty"`
	Color          string `json:"color,omitempty"`
	Bold           bool   `json:"bold,omitempty"`
	Italic         bool   `json:"italic,omitempty"`
	FadeIn         *int   `json:"fade_in,omitempty"`
	Stay           *int   `json:"stay,omitempty"`
	FadeOut        *int   `json:"fade_out,omitempty"`
}

type DelayConfig struct {
	DelaySeconds int `json:"delay_seconds"`
}

type CountdownConfig struct {
	From            int    `json:"countdown_from"`
	IntervalSeconds int    `json:"countdown_interval,omitempty"`
	Message         string `json:"countdown_message,omitempty"`
	TargetSelector  string `json:"target_selector,omitempty"`
}

type SoundConfig struct {
	Sound          string   `json:"sound"`
	TargetSelector string   `json:"target_selector,omitempty"`
	Volume         *float64 `json:"volume,omitempty"`
	Pitch          *float64 `json:"pitch,omitempty"`
}

type EffectConfig struct {
	Effect         string `json:"effect"`
	TargetSelector string `json:"target_selector,omitempty"`
	Duration       *int   `json:"duration,omitempty"`
	Amplifier      *int   `json:"amplifier,omitempty"`
}

type TimeConfig struct {
	Value string `json:"value"`
}

type WeatherConfig struct {
	Value string `json:"value"`
}

func (a *Action) UnmarshalJSON(data []byte) error {
	type wire struct {
		ID      string          `json:"id"`
		Type    ActionType      `json:"type"`
		Order   int             `json:"order"`
		Enabled bool            `json:"enabled"`
		Config  json.RawMessage `json:"config"`
	}
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	a.ID, a.Type, a.Order, a.Enabled = w.ID, w.Type, w.Order, w.Enabled
	cfg := w.Config
	if len(cfg) == 0 {
		cfg = json.RawMessage(`{}`)
	}

	switch w.Type {
	case ActionCommand:
		a.Command = &CommandConfig{}
		return json.Unmarshal(cfg, a.Command)
	case ActionTitle, ActionSubtitle, ActionActionbar, ActionMessage:
		a.Text = &TextConfig{}
		return json.Unmarshal(cfg, a.Text)
	case ActionDelay:
		a.Delay = &DelayConfig{}
		return json.Unmarshal(cfg, a.Delay)
	case ActionCountdown:
		a.Countdown = &CountdownConfig{}
		return json.Unmarshal(cfg, a.Countdown)
	case ActionSound:
		a.Sound = &SoundConfig{}
		return json.Unmarshal(cfg, a.Sound)
	case ActionEffect:
		a.Effect = &EffectConfig{}
		return json.Unmarshal(cfg, a.Effect)
	case ActionTime:
		a.Time = &TimeConfig{}
		return json.Unmarshal(cfg, a.Time)
	case ActionWeather:
		a.Weather = &WeatherConfig{}
		return json.Unmarshal(cfg, a.Weather)
	default:
		// Unknown action type: keep the payload so a round trip through
		// the store does not lose it.
		a.raw = append(json.RawMessage(nil), w.Config...)
		return nil
	}
}

func (a Action) MarshalJSON() ([]byte, error) {
	var config any
	switch {
	case a.Command != nil:
		config = a.Command
	case a.Text != nil:
		config = a.Text
	case a.Delay != nil:
		config = a.Delay
	case a.Countdown != nil:
		config = a.Countdown
	case a.Sound != nil:
		config = a.Sound
	case a.Effect != nil:
		config = a.Effect
	case a.Time != nil:
		config = a.Time
	case a.Weather != nil:
		config = a.Weather
	case len(a.raw) > 0:
		config = a.raw
	}
	return json.Marshal(struct {
		ID      string     `json:"id"`
		Type    ActionType `json:"type"`
		Order   int        `json:"order"`
		Enabled bool       `json:"enabled"`
		Config  any        `json:"config,omitempty"`
	}{a.ID, a.Type, a.Order, a.Enabled, config})
}

func (a *Action) Validate() error {
	switch a.Type {
	case ActionCommand:
		if a.Command == nil {
			return fmt.Errorf("missing command config")
		}
	case ActionTitle, ActionSubtitle, ActionActionbar, ActionMessage:
		if a.Text == nil {
			return fmt.Errorf("missing text config")
		}
	case ActionDelay:
		if a.Delay == nil {
			return fmt.Errorf("missing delay config")
		}
		if a.Delay.DelaySeconds < 0 {
			return fmt.Errorf("delay_seconds must not be negative")
		}
	case ActionCountdown:
		if a.Countdown == nil {
			return fmt.Errorf("missing countdown config")
		}
		if a.Countdown.From < 1 {
			return fmt.Errorf("countdown_from must be at least 1")
		}
		if a.Countdown.IntervalSeconds < 0 {
			return fmt.Errorf("countdown_interval must not be negative")
		}
	case ActionSound:
		if a.Sound == nil || a.Sound.Sound == "" {
			return fmt.Errorf("sound name required")
		}
	case ActionEffect:
		if a.Effect == nil || a.Effect.Effect == "" {
			return fmt.Errorf("effect name required")
		}
	case ActionTime:
		if a.Time == nil || a.Time.Value == "" {
			return fmt.Errorf("time value required")
		}
	case ActionWeather:
		if a.Weather == nil || a.Weather.Value == "" {
			return fmt.Errorf("weather value required")
		}
	default:
		// Unknown types are tolerated; the runner skips them.
	}
	return nil
}

// LogEntry is the append-only record of one sequence run.
type LogEntry struct {
	ID              string    `json:"id"`
	ServerID        string    `json:"server_id"`
	SequenceID      string    `json:"sequence_id"`
	SequenceName    string    `json:"sequence_name"`
	Trigger         Trigger   `json:"trigger"`
	ExecutedAt      time.Time `json:"executed_at"`
	ExecutedBy      string    `json:"executed_by"`
	Success         bool      `json:"success"`
	ActionsExecuted int       `json:"actions_executed"`
	ActionsFailed   int       `json:"actions_failed"`
	Errors          []string  `json:"errors"`
	DurationMS      int64     `json:"duration_ms"`
}

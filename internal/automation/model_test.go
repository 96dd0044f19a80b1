package automation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAction_UnmarshalCommand(t *testing.T) {
	data := []byte(`{"id":"a1","type":"command","order":1,"enabled":true,"config":{"command":"say hi"}}`)

	var a Action
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, ActionCommand, a.Type)
	assert.Equal(t, 1, a.Order)
	assert.True(t, a.Enabled)
	require.NotNil(t, a.Command)
	assert.Equal(t, "say hi", a.Command.Command)
	assert.Nil(t, a.Text)
}

func TestAction_UnmarshalTitle(t *testing.T) {
	data := []byte(`{"id":"t1","type":"title","order":2,"enabled":true,
		"config":{"text":"hello","color":"gold","bold":true,"fade_in":5,"stay":40}}`)

	var a Action
	require.NoError(t, json.Unmarshal(data, &a))
	require.NotNil(t, a.Text)
	assert.Equal(t, "hello", a.Text.Text)
	assert.Equal(t, "gold", a.Text.Color)
	assert.True(t, a.Text.Bold)
	require.NotNil(t, a.Text.FadeIn)
	assert.Equal(t, 5, *a.Text.FadeIn)
	require.NotNil(t, a.Text.Stay)
	assert.Equal(t, 40, *a.Text.Stay)
	assert.Nil(t, a.Text.FadeOut)
}

func TestAction_UnmarshalCountdown(t *testing.T) {
	data := []byte(`{"id":"c1","type":"countdown","order":1,"enabled":true,
		"config":{"countdown_from":10,"countdown_interval":2,"countdown_message":"Restart in {seconds}"}}`)

	var a Action
	require.NoError(t, json.Unmarshal(data, &a))
	require.NotNil(t, a.Countdown)
	assert.Equal(t, 10, a.Countdown.From)
	assert.Equal(t, 2, a.Countdown.IntervalSeconds)
	assert.Equal(t, "Restart in {seconds}", a.Countdown.Message)
}

func TestAction_UnmarshalMissingConfig(t *testing.T) {
	data := []byte(`{"id":"d1","type":"delay","order":1,"enabled":true}`)

	var a Action
	require.NoError(t, json.Unmarshal(data, &a))
	require.NotNil(t, a.Delay)
	assert.Equal(t, 0, a.Delay.DelaySeconds)
}

func TestAction_UnknownTypeRoundTrips(t *testing.T) {
	data := []byte(`{"id":"x1","type":"hologram","order":5,"enabled":true,"config":{"lines":["a","b"]}}`)

	var a Action
	require.NoError(t, json.Unmarshal(data, &a))
	assert.Equal(t, ActionType("hologram"), a.Type)
	assert.False(t, a.Type.Known())

	out, err := json.Marshal(a)
	require.NoError(t, err)

	var back Action
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, a.ID, back.ID)
	assert.Equal(t, a.Type, back.Type)
	assert.JSONEq(t, `{"lines":["a","b"]}`, string(back.raw))
}

func TestAction_MarshalRoundTrip(t *testing.T) {
	volume := 0.5
	actions := []Action{
		commandAction("a1", 1, "say hi"),
		{ID: "t1", Type: ActionTitle, Order: 2, Enabled: true, Text: &TextConfig{Text: "hello", Color: "red"}},
		{ID: "d1", Type: ActionDelay, Order: 3, Enabled: true, Delay: &DelayConfig{DelaySeconds: 5}},
		{ID: "s1", Type: ActionSound, Order: 4, Enabled: false, Sound: &SoundConfig{Sound: "minecraft:block.bell.use", Volume: &volume}},
	}

	out, err := json.Marshal(actions)
	require.NoError(t, err)

	var back []Action
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, actions, back)
}

func TestAction_Validate(t *testing.T) {
	from := func(a Action) error { return a.Validate() }

	assert.NoError(t, from(commandAction("a1", 1, "say hi")))
	assert.NoError(t, from(Action{Type: "hologram"}))

	assert.Error(t, from(Action{Type: ActionCommand}))
	assert.Error(t, from(Action{Type: ActionTitle}))
	assert.Error(t, from(Action{Type: ActionDelay}))
	assert.Error(t, from(Action{Type: ActionDelay, Delay: &DelayConfig{DelaySeconds: -1}}))
	assert.Error(t, from(Action{Type: ActionCountdown, Countdown: &CountdownConfig{From: 0}}))
	assert.Error(t, from(Action{Type: ActionCountdown, Countdown: &CountdownConfig{From: 3, IntervalSeconds: -1}}))
	assert.Error(t, from(Action{Type: ActionSound, Sound: &SoundConfig{}}))
	assert.Error(t, from(Action{Type: ActionEffect, Effect: &EffectConfig{}}))
	assert.Error(t, from(Action{Type: ActionTime, Time: &TimeConfig{}}))
	assert.Error(t, from(Action{Type: ActionWeather, Weather: &WeatherConfig{}}))

	assert.NoError(t, from(Action{Type: ActionCountdown, Countdown: &CountdownConfig{From: 3}}))
	assert.NoError(t, from(Action{Type: ActionTime, Time: &TimeConfig{Value: "day"}}))
}

func TestDefinition_Sequence(t *testing.T) {
	def := &Definition{
		OnStart:      &Sequence{ID: "s1"},
		OnPlayerJoin: &Sequence{ID: "s2"},
	}

	assert.Equal(t, "s1", def.Sequence(TriggerStart).ID)
	assert.Equal(t, "s2", def.Sequence(TriggerPlayerJoin).ID)
	assert.Nil(t, def.Sequence(TriggerStop))
	assert.Nil(t, def.Sequence(TriggerPlayerLeave))
	assert.Nil(t, def.Sequence(Trigger("bogus")))
}

func TestDefinition_HasPresenceTriggers(t *testing.T) {
	none := &Definition{OnStart: &Sequence{Enabled: true, Actions: []Action{commandAction("a1", 1, "say hi")}}}
	assert.False(t, none.HasPresenceTriggers())

	disabled := &Definition{OnPlayerJoin: &Sequence{Enabled: false, Actions: []Action{commandAction("a1", 1, "say hi")}}}
	assert.False(t, disabled.HasPresenceTriggers())

	empty := &Definition{OnPlayerJoin: &Sequence{Enabled: true}}
	assert.False(t, empty.HasPresenceTriggers())

	join := &Definition{OnPlayerJoin: &Sequence{Enabled: true, Actions: []Action{commandAction("a1", 1, "say hi")}}}
	assert.True(t, join.HasPresenceTriggers())

	leave := &Definition{OnPlayerLeave: &Sequence{Enabled: true, Actions: []Action{commandAction("a1", 1, "say bye")}}}
	assert.True(t, leave.HasPresenceTriggers())
}

func TestDefinition_ValidateWrapsTrigger(t *testing.T) {
	def := &Definition{
		OnStop: &Sequence{
			ID:      "s1",
			Actions: []Action{{ID: "bad", Type: ActionCommand}},
		},
	}
	err := def.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stop")
	assert.Contains(t, err.Error(), "bad")
}

func TestTrigger_Valid(t *testing.T) {
	for _, trigger := range []Trigger{TriggerStart, TriggerStop, TriggerPlayerJoin, TriggerPlayerLeave} {
		assert.True(t, trigger.Valid())
	}
	assert.False(t, Trigger("restart").Valid())
	assert.False(t, Trigger("").Valid())
}

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCommands(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"pause"}`))
	require.NoError(t, err)
	assert.Equal(t, PauseCommand{}, cmd)

	cmd, err = ParseCommand([]byte(`{"command":"resume"}`))
	require.NoError(t, err)
	assert.Equal(t, ResumeCommand{}, cmd)

	cmd, err = ParseCommand([]byte(`{"command":"step"}`))
	require.NoError(t, err)
	assert.Equal(t, StepCommand{}, cmd)
}

func TestParseSeekCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"seek","tick":5}`))
	require.NoError(t, err)
	assert.Equal(t, SeekCommand{Tick: 5}, cmd)
}

func TestParseSeekRejectsNegativeTick(t *testing.T) {
	_, err := ParseCommand([]byte(`{"command":"seek","tick":-1}`))
	assert.Error(t, err)
}

func TestParseSetSpeedCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"set_speed","ticks_per_second":10}`))
	require.NoError(t, err)
	assert.Equal(t, SetSpeedCommand{TicksPerSecond: 10}, cmd)
}

func TestParseSetSpeedRejectsNonNumeric(t *testing.T) {
	_, err := ParseCommand([]byte(`{"command":"set_speed","ticks_per_second":"banana"}`))
	assert.Error(t, err)
}

func TestParseSetSpeedRejectsBoolean(t *testing.T) {
	_, err := ParseCommand([]byte(`{"command":"set_speed","ticks_per_second":true}`))
	assert.Error(t, err)
}

func TestParseSetSpeedRejectsZeroAndNegative(t *testing.T) {
	_, err := ParseCommand([]byte(`{"command":"set_speed","ticks_per_second":0}`))
	assert.Error(t, err)

	_, err = ParseCommand([]byte(`{"command":"set_speed","ticks_per_second":-1}`))
	assert.Error(t, err)
}

func TestParseUnknownCommandTag(t *testing.T) {
	_, err := ParseCommand([]byte(`{"command":"bogus"}`))
	assert.Error(t, err)
}

func TestParseMissingCommandField(t *testing.T) {
	_, err := ParseCommand([]byte(`{}`))
	assert.Error(t, err)
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := ParseCommand([]byte(`not json`))
	assert.Error(t, err)
}

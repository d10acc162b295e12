// Package protocol defines the typed, discriminated-union wire
// messages exchanged between server and client, and the validation
// that turns raw JSON into one of them.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Command is a client-to-server message, tagged by its "command" field.
type Command interface {
	isCommand()
}

type PauseCommand struct{}

func (PauseCommand) isCommand() {}

type ResumeCommand struct{}

func (ResumeCommand) isCommand() {}

type StepCommand struct{}

func (StepCommand) isCommand() {}

// SeekCommand requests the historical snapshot at Tick.
type SeekCommand struct {
	Tick int
}

func (SeekCommand) isCommand() {}

// SetSpeedCommand requests a new tick cadence.
type SetSpeedCommand struct {
	TicksPerSecond float64
}

func (SetSpeedCommand) isCommand() {}

// ParseCommand validates and decodes a raw command message. Any
// structural problem — unknown tag, missing field, wrong-typed
// value, or an out-of-range number — is reported as an error rather
// than a partially-populated Command, so the caller can always turn
// a parse failure directly into a protocol error event.
func ParseCommand(raw []byte) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("malformed command: %w", err)
	}

	tagRaw, ok := fields["command"]
	if !ok {
		return nil, fmt.Errorf(`missing "command" field`)
	}
	var tag string
	if err := json.Unmarshal(tagRaw, &tag); err != nil {
		return nil, fmt.Errorf(`"command" must be a string`)
	}

	switch tag {
	case "pause":
		return PauseCommand{}, nil
	case "resume":
		return ResumeCommand{}, nil
	case "step":
		return StepCommand{}, nil
	case "seek":
		return parseSeek(fields)
	case "set_speed":
		return parseSetSpeed(fields)
	default:
		return nil, fmt.Errorf("unknown command %q", tag)
	}
}

func parseSeek(fields map[string]json.RawMessage) (Command, error) {
	raw, ok := fields["tick"]
	if !ok {
		return nil, fmt.Errorf(`seek requires "tick"`)
	}
	num, err := requireInteger(raw, "tick")
	if err != nil {
		return nil, err
	}
	if num < 0 {
		return nil, fmt.Errorf(`"tick" must be nonnegative, got %d`, num)
	}
	return SeekCommand{Tick: num}, nil
}

func parseSetSpeed(fields map[string]json.RawMessage) (Command, error) {
	raw, ok := fields["ticks_per_second"]
	if !ok {
		return nil, fmt.Errorf(`set_speed requires "ticks_per_second"`)
	}
	value, err := requireNumber(raw, "ticks_per_second")
	if err != nil {
		return nil, err
	}
	if value <= 0 {
		return nil, fmt.Errorf(`"ticks_per_second" must be positive, got %v`, value)
	}
	return SetSpeedCommand{TicksPerSecond: value}, nil
}

// requireNumber decodes raw as a JSON number, rejecting every other
// JSON type including bool — encoding/json happily decodes a JSON
// bool into Go's bool and a JSON number into float64 when the target
// is `any`, so the type assertion below is what keeps `true` from being
// silently accepted as 1.
func requireNumber(raw json.RawMessage, field string) (float64, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("invalid %q value", field)
	}
	num, ok := value.(float64)
	if !ok {
		return 0, fmt.Errorf("%q must be a number", field)
	}
	return num, nil
}

func requireInteger(raw json.RawMessage, field string) (int, error) {
	num, err := requireNumber(raw, field)
	if err != nil {
		return 0, err
	}
	if num != float64(int(num)) {
		return 0, fmt.Errorf("%q must be an integer", field)
	}
	return int(num), nil
}

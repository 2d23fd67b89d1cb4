package platform

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"flairbridge/internal/entity"
)

// Command names accepted from the host.
const (
	CommandMode        = "mode"
	CommandTemperature = "temperature"
	CommandFanMode     = "fan_mode"
	CommandSwingMode   = "swing_mode"
	CommandPower       = "power"
	CommandOption      = "option"
)

var (
	// ErrUnknownCommand is returned for a command the entity does not accept.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidValue is returned when a command value cannot be parsed.
	ErrInvalidValue = errors.New("invalid command value")
)

// Command is one host request against an entity.
type Command struct {
	Name  string `json:"command"`
	Value string `json:"value"`
}

// Dispatch routes cmd to the matching entity operation.
func Dispatch(ctx context.Context, e entity.Entity, cmd Command) error {
	switch target := e.(type) {
	case *entity.Climate:
		return dispatchClimate(ctx, target, cmd)
	case *entity.Select:
		if cmd.Name != CommandOption {
			return fmt.Errorf("%w %q for select %s", ErrUnknownCommand, cmd.Name, e.UniqueID())
		}
		return target.SelectOption(ctx, cmd.Value)
	default:
		return fmt.Errorf("%w %q: %s is read-only", ErrUnknownCommand, cmd.Name, e.UniqueID())
	}
}

func dispatchClimate(ctx context.Context, c *entity.Climate, cmd Command) error {
	switch cmd.Name {
	case CommandMode:
		return c.SetHVACMode(ctx, strings.ToLower(strings.TrimSpace(cmd.Value)))
	case CommandTemperature:
		temp, err := strconv.ParseFloat(strings.TrimSpace(cmd.Value), 64)
		if err != nil || math.IsNaN(temp) || math.IsInf(temp, 0) {
			return fmt.Errorf("%w: temperature %q", ErrInvalidValue, cmd.Value)
		}
		return c.SetTemperature(ctx, temp)
	case CommandFanMode:
		return c.SetFanMode(ctx, strings.ToLower(strings.TrimSpace(cmd.Value)))
	case CommandSwingMode:
		return c.SetSwingMode(ctx, strings.ToLower(strings.TrimSpace(cmd.Value)))
	case CommandPower:
		switch strings.ToLower(strings.TrimSpace(cmd.Value)) {
		case "on":
			return c.TurnOn(ctx)
		case "off":
			return c.TurnOff(ctx)
		default:
			return fmt.Errorf("%w: power %q", ErrInvalidValue, cmd.Value)
		}
	default:
		return fmt.Errorf("%w %q for climate %s", ErrUnknownCommand, cmd.Name, c.UniqueID())
	}
}

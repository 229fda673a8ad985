package coordinator

import (
	"context"
	"fmt"
	"slices"

	"github.com/anicoll/winix-integration/internal/pkg/device"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"github.com/samber/lo"
)

const (
	ServiceTurnOn             = "turn_on"
	ServiceTurnOff            = "turn_off"
	ServiceSetHumidity        = "set_humidity"
	ServiceSetMode            = "set_mode"
	ServiceSetFanSpeed        = "set_fan_speed"
	ServiceSetTimer           = "set_timer"
	ServiceSetChildLock       = "set_child_lock"
	ServiceSetUVSterilization = "set_uv_sterilization"
	ServiceRefresh            = "refresh"
)

const (
	MinHumidity = 30
	MaxHumidity = 70
	MaxTimer    = 12
)

// Params carries the optional arguments of a service call.
type Params struct {
	Mode     *string `json:"mode,omitempty"`
	Humidity *int    `json:"humidity,omitempty"`
	Speed    *string `json:"speed,omitempty"`
	Timer    *int    `json:"timer,omitempty"`
	Lock     *bool   `json:"lock,omitempty"`
	UV       *bool   `json:"uv,omitempty"`
}

type serviceFunc func(ctx context.Context, s device.Session, p Params) error

var services = map[string]serviceFunc{
	ServiceTurnOn: func(ctx context.Context, s device.Session, p Params) error {
		if p.Mode != nil {
			if err := s.SetMode(ctx, *p.Mode); err != nil {
				return err
			}
		}
		if p.Humidity != nil {
			if err := s.SetHumidity(ctx, *p.Humidity); err != nil {
				return err
			}
		}
		return s.TurnOn(ctx)
	},
	ServiceTurnOff: func(ctx context.Context, s device.Session, _ Params) error {
		return s.TurnOff(ctx)
	},
	ServiceSetHumidity: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetHumidity(ctx, *p.Humidity)
	},
	ServiceSetMode: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetMode(ctx, *p.Mode)
	},
	ServiceSetFanSpeed: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetFanSpeed(ctx, *p.Speed)
	},
	ServiceSetTimer: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetTimer(ctx, *p.Timer)
	},
	ServiceSetChildLock: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetChildLock(ctx, *p.Lock)
	},
	ServiceSetUVSterilization: func(ctx context.Context, s device.Session, p Params) error {
		return s.SetUVSterilization(ctx, *p.UV)
	},
	ServiceRefresh: func(ctx context.Context, s device.Session, _ Params) error {
		return s.Update(ctx)
	},
}

// Services lists the names Dispatch accepts.
func Services() []string {
	names := lo.Keys(services)
	slices.Sort(names)
	return names
}

// validate checks every argument before any device is touched. An out of
// range humidity on turn_on is not an error; see withoutInvalidHumidity.
func (p Params) validate(service string) error {
	switch service {
	case ServiceTurnOn:
		if p.Mode != nil {
			return checkMode(*p.Mode)
		}
	case ServiceSetHumidity:
		if p.Humidity == nil {
			return missing("humidity")
		}
		return checkHumidity(*p.Humidity)
	case ServiceSetMode:
		if p.Mode == nil {
			return missing("mode")
		}
		return checkMode(*p.Mode)
	case ServiceSetFanSpeed:
		if p.Speed == nil || *p.Speed == "" {
			return missing("speed")
		}
	case ServiceSetTimer:
		if p.Timer == nil {
			return missing("timer")
		}
		if *p.Timer < 0 || *p.Timer > MaxTimer {
			return fmt.Errorf("timer %d outside 0-%d: %w", *p.Timer, MaxTimer, ErrInvalidArgument)
		}
	case ServiceSetChildLock:
		if p.Lock == nil {
			return missing("lock")
		}
	case ServiceSetUVSterilization:
		if p.UV == nil {
			return missing("uv")
		}
	}
	return nil
}

func checkHumidity(humidity int) error {
	if humidity < MinHumidity || humidity > MaxHumidity {
		return fmt.Errorf("humidity %d must be between %d-%d: %w", humidity, MinHumidity, MaxHumidity, ErrInvalidArgument)
	}
	return nil
}

func checkMode(mode string) error {
	if !slices.Contains(winix.Modes, mode) {
		return fmt.Errorf("mode %q: %w", mode, ErrInvalidArgument)
	}
	return nil
}

func missing(name string) error {
	return fmt.Errorf("%s is required: %w", name, ErrInvalidArgument)
}

// withoutInvalidHumidity drops an out of range humidity from a turn_on call so
// the device still powers on.
func (p Params) withoutInvalidHumidity(service string) (Params, error) {
	if service != ServiceTurnOn || p.Humidity == nil {
		return p, nil
	}
	err := checkHumidity(*p.Humidity)
	if err != nil {
		p.Humidity = nil
	}
	return p, err
}

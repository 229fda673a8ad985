package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"go.uber.org/zap"
)

// ModeLabels are the display names for each preset mode.
var ModeLabels = map[string]string{
	winix.ModeAuto:       "Auto",
	winix.ModeManual:     "Manual",
	winix.ModeLaundryDry: "Laundry dry",
	winix.ModeShoesDry:   "Shoes dry",
	winix.ModeSilent:     "Silent",
	winix.ModeContinuous: "Continuous",
}

// Driver is the cloud side of one device. *winix.Driver implements it.
type Driver interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetMode(ctx context.Context, mode string) error
	SetFanSpeed(ctx context.Context, speed string) error
	SetHumidity(ctx context.Context, humidity int) error
	SetTimer(ctx context.Context, hours int) error
	SetChildLock(ctx context.Context, lock bool) error
	SetUVSterilization(ctx context.Context, uv bool) error
	GetState(ctx context.Context) (winix.State, error)
}

// Session is what the host side sees of a device.
type Session interface {
	Stub() Stub
	Update(ctx context.Context) error
	IsOn() bool
	State() winix.State
	Pending() bool
	UpdatedAt() time.Time
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	SetHumidity(ctx context.Context, humidity int) error
	SetMode(ctx context.Context, mode string) error
	SetFanSpeed(ctx context.Context, speed string) error
	SetTimer(ctx context.Context, hours int) error
	SetChildLock(ctx context.Context, lock bool) error
	SetUVSterilization(ctx context.Context, uv bool) error
}

// Wrapper keeps the last polled state of a device together with the writes
// made since that poll. Writes are applied locally before the cloud confirms
// them and are not rolled back when the call fails; the next Update replaces
// them.
type Wrapper struct {
	stub   Stub
	driver Driver
	logger *zap.Logger

	mu        sync.Mutex
	on        bool
	confirmed winix.State
	tentative winix.State
	updatedAt time.Time
}

var _ Session = (*Wrapper)(nil)

func NewWrapper(stub Stub, drv Driver, logger *zap.Logger) *Wrapper {
	if logger == nil {
		logger = zap.L()
	}
	return &Wrapper{
		stub:      stub,
		driver:    drv,
		logger:    logger.With(zap.String("device", stub.Name())),
		confirmed: winix.State{},
		tentative: winix.State{},
	}
}

func (w *Wrapper) Stub() Stub {
	return w.stub
}

// Update polls the device and replaces the cached state. On error the cache
// is left as it was.
func (w *Wrapper) Update(ctx context.Context) error {
	state, err := w.driver.GetState(ctx)
	if err != nil {
		return fmt.Errorf("update %s: %w", w.stub.Name(), err)
	}
	if state == nil {
		state = winix.State{}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.confirmed = state
	w.tentative = winix.State{}
	power, _ := state.String(winix.AttrPower)
	w.on = power == winix.OnValue
	w.updatedAt = time.Now()

	w.logger.Debug("updated state", zap.Any("state", state))
	return nil
}

func (w *Wrapper) IsOn() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.on
}

// State is the last poll with the pending writes applied on top.
func (w *Wrapper) State() winix.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.confirmed.Clone()
	for k, v := range w.tentative {
		out[k] = v
	}
	return out
}

// Confirmed is the state as last reported by the cloud.
func (w *Wrapper) Confirmed() winix.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.confirmed.Clone()
}

// Tentative holds the writes made since the last poll.
func (w *Wrapper) Tentative() winix.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tentative.Clone()
}

// Pending reports whether writes have been made that no poll has confirmed yet.
func (w *Wrapper) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tentative) > 0
}

// UpdatedAt is the time of the last successful Update.
func (w *Wrapper) UpdatedAt() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.updatedAt
}

func (w *Wrapper) TurnOn(ctx context.Context) error {
	if !w.switchPower(true) {
		return nil
	}
	return w.driver.TurnOn(ctx)
}

func (w *Wrapper) TurnOff(ctx context.Context) error {
	if !w.switchPower(false) {
		return nil
	}
	return w.driver.TurnOff(ctx)
}

// switchPower flips the flag and reports whether it changed.
func (w *Wrapper) switchPower(on bool) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.on == on {
		return false
	}
	w.on = on
	w.tentative[winix.AttrPower] = onOff(on)
	return true
}

func (w *Wrapper) SetHumidity(ctx context.Context, humidity int) error {
	w.record(winix.AttrTargetHumidity, humidity)
	return w.driver.SetHumidity(ctx, humidity)
}

func (w *Wrapper) SetMode(ctx context.Context, mode string) error {
	w.record(winix.AttrMode, mode)
	return w.driver.SetMode(ctx, mode)
}

// SetFanSpeed stores the new speed under the mode attribute, so the merged
// state shows the speed as the mode until the next poll.
// TODO: record under winix.AttrFanSpeed once host automations stop reading
// the speed back from mode.
func (w *Wrapper) SetFanSpeed(ctx context.Context, speed string) error {
	w.record(winix.AttrMode, speed)
	return w.driver.SetFanSpeed(ctx, speed)
}

func (w *Wrapper) SetTimer(ctx context.Context, hours int) error {
	w.record(winix.AttrTimer, hours)
	return w.driver.SetTimer(ctx, hours)
}

func (w *Wrapper) SetChildLock(ctx context.Context, lock bool) error {
	w.record(winix.AttrChildLock, onOff(lock))
	return w.driver.SetChildLock(ctx, lock)
}

func (w *Wrapper) SetUVSterilization(ctx context.Context, uv bool) error {
	w.record(winix.AttrUVSterilization, onOff(uv))
	return w.driver.SetUVSterilization(ctx, uv)
}

func (w *Wrapper) record(attr string, value any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tentative[attr] = value
}

func onOff(on bool) string {
	if on {
		return winix.OnValue
	}
	return winix.OffValue
}

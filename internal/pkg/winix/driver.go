package winix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://us.api.winix-iot.com"

const (
	controlPath = "/common/control/devices/%s/A211/%s:%s"
	statePath   = "/common/event/sttus/devices/%s"
)

// State is the normalized view of one poll: attribute name to either a
// string label (enum attributes) or an int.
type State map[string]any

// Clone copies the map; values are strings or ints.
func (s State) Clone() State {
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// String returns the label stored under key, if it is one.
func (s State) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Int returns the integer stored under key, if it is one.
func (s State) Int(key string) (int, bool) {
	v, ok := s[key].(int)
	return v, ok
}

// Driver talks to the Winix cloud for one device id. It keeps no device
// state between calls.
type Driver struct {
	deviceID string
	baseURL  string
	client   *http.Client
	logger   *zap.Logger
}

type Option func(*Driver)

func WithBaseURL(baseURL string) Option {
	return func(d *Driver) {
		d.baseURL = strings.TrimRight(baseURL, "/")
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// NewDriver builds a driver over client, which is expected to carry the
// bearer credentials.
func NewDriver(deviceID string, client *http.Client, opts ...Option) *Driver {
	d := &Driver{
		deviceID: deviceID,
		baseURL:  DefaultBaseURL,
		client:   client,
		logger:   zap.L(),
	}
	for _, o := range opts {
		o(d)
	}
	if d.client == nil {
		d.client = http.DefaultClient
	}
	d.logger = d.logger.With(zap.String("device_id", deviceID))
	return d
}

func (d *Driver) TurnOn(ctx context.Context) error {
	return d.setSwitch(ctx, AttrPower, true)
}

func (d *Driver) TurnOff(ctx context.Context) error {
	return d.setSwitch(ctx, AttrPower, false)
}

func (d *Driver) SetMode(ctx context.Context, mode string) error {
	return d.setEnum(ctx, AttrMode, mode, defaultModeCode)
}

func (d *Driver) SetFanSpeed(ctx context.Context, speed string) error {
	return d.setEnum(ctx, AttrFanSpeed, speed, defaultFanSpeedCode)
}

func (d *Driver) SetHumidity(ctx context.Context, humidity int) error {
	return d.SetAttribute(ctx, categoryCodes[AttrTargetHumidity], strconv.Itoa(humidity))
}

func (d *Driver) SetTimer(ctx context.Context, hours int) error {
	return d.SetAttribute(ctx, categoryCodes[AttrTimer], strconv.Itoa(hours))
}

func (d *Driver) SetChildLock(ctx context.Context, lock bool) error {
	return d.setSwitch(ctx, AttrChildLock, lock)
}

func (d *Driver) SetUVSterilization(ctx context.Context, uv bool) error {
	return d.setSwitch(ctx, AttrUVSterilization, uv)
}

func (d *Driver) setSwitch(ctx context.Context, attr string, on bool) error {
	return d.SetAttribute(ctx, categoryCodes[attr], switchCode(on))
}

// setEnum sends fallback when label is not in the attribute's table rather
// than rejecting the call.
func (d *Driver) setEnum(ctx context.Context, attr, label, fallback string) error {
	code, ok := EncodeValue(attr, label)
	if !ok {
		d.logger.Warn("unknown value, sending default code",
			zap.String("attribute", attr),
			zap.String("value", label),
			zap.String("code", fallback))
		code = fallback
	}
	return d.SetAttribute(ctx, categoryCodes[attr], code)
}

// SetAttribute issues a raw control call. The response body carries nothing
// useful and is only logged.
func (d *Driver) SetAttribute(ctx context.Context, categoryCode, valueCode string) error {
	d.logger.Debug("set attribute", zap.String("category", categoryCode), zap.String("value", valueCode))
	body, err := d.get(ctx, fmt.Sprintf(controlPath, d.deviceID, categoryCode, valueCode))
	if err != nil {
		return err
	}
	d.logger.Debug("set attribute response", zap.ByteString("response", body))
	return nil
}

type stateEnvelope struct {
	Body *struct {
		Data []struct {
			Attributes map[string]json.RawMessage `json:"attributes"`
		} `json:"data"`
	} `json:"body"`
}

// GetState polls the device status. A payload without body.data[0].attributes
// is logged and yields an empty State with a nil error; transport and status
// failures are returned.
func (d *Driver) GetState(ctx context.Context) (State, error) {
	body, err := d.get(ctx, fmt.Sprintf(statePath, d.deviceID))
	if err != nil {
		return nil, err
	}
	d.logger.Debug("state response", zap.ByteString("response", body))

	out := State{}
	attributes, err := parseAttributes(body)
	if err != nil {
		d.logger.Error("error parsing response json", zap.ByteString("response", body), zap.Error(err))
		return out, nil
	}

	for key, raw := range attributes {
		attr, ok := AttributeForCode(key)
		if !ok {
			continue
		}
		value, ok := rawValue(raw)
		if !ok {
			d.logger.Warn("unexpected attribute value", zap.String("attribute", attr), zap.ByteString("value", raw))
			continue
		}
		if IsEnum(attr) {
			if label, ok := DecodeValue(attr, value); ok {
				out[attr] = label
			}
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			d.logger.Warn("attribute value is not an integer", zap.String("attribute", attr), zap.String("value", value))
			continue
		}
		out[attr] = n
	}
	return out, nil
}

// rawValue accepts both "45" and 45; the cloud sends strings.
func rawValue(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func parseAttributes(body []byte) (map[string]json.RawMessage, error) {
	var env stateEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Body == nil {
		return nil, fmt.Errorf("missing body")
	}
	if len(env.Body.Data) == 0 {
		return nil, fmt.Errorf("missing body.data[0]")
	}
	if env.Body.Data[0].Attributes == nil {
		return nil, fmt.Errorf("missing body.data[0].attributes")
	}
	return env.Body.Data[0].Attributes, nil
}

func (d *Driver) get(ctx context.Context, path string) ([]byte, error) {
	url := d.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("winix api %s %s: %w", http.MethodGet, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read winix response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{
			Method:     http.MethodGet,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(body),
		}
	}
	return body, nil
}

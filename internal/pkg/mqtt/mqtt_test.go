package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/anicoll/winix-integration/internal/pkg/coordinator"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	payload  []byte
	retained bool
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 1 }
func (m message) Retained() bool    { return m.retained }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 1 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}

type fakeClient struct {
	paho_mqtt.Client

	mu        sync.Mutex
	published []message
	handlers  map[string]paho_mqtt.MessageHandler
	err       error
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, message{topic: topic, payload: payload.([]byte), retained: retained})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Subscribe(topic string, _ byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handlers == nil {
		c.handlers = map[string]paho_mqtt.MessageHandler{}
	}
	c.handlers[topic] = callback
	return &fakeToken{err: c.err}
}

func (c *fakeClient) deliver(subscription, topic, payload string) {
	c.mu.Lock()
	h := c.handlers[subscription]
	c.mu.Unlock()
	h(c, message{topic: topic, payload: []byte(payload)})
}

func (c *fakeClient) byTopic() map[string]message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]message, len(c.published))
	for _, m := range c.published {
		out[m.topic] = m
	}
	return out
}

func newTestService(t *testing.T) (*Service, *fakeClient) {
	client := &fakeClient{}
	svc := New(client)
	svc.logger = zaptest.NewLogger(t)
	return svc, client
}

var testDevice = &model.Device{ID: "dev-1", Name: "Laundry Room", Slug: "laundry_room", MAC: "aa:bb", Model: "DXJH", SWVersion: "1.2"}

func TestRegisterDevice(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.RegisterDevice(ctx, testDevice))
	require.NoError(t, svc.RegisterDevice(ctx, testDevice))

	published := client.byTopic()
	require.Len(t, client.published, 3)

	humidifier, ok := published["homeassistant/humidifier/laundry_room/config"]
	require.True(t, ok)
	assert.True(t, humidifier.retained)

	var cfg map[string]any
	require.NoError(t, json.Unmarshal(humidifier.payload, &cfg))
	assert.Equal(t, "winix/laundry_room", cfg["~"])
	assert.Equal(t, "dehumidifier", cfg["device_class"])
	assert.Equal(t, "~/set/power", cfg["command_topic"])
	assert.Equal(t, "~/is_on/state", cfg["state_topic"])
	assert.Equal(t, "~/set/mode", cfg["mode_command_topic"])
	assert.Equal(t, "~/target_humidity/state", cfg["target_humidity_state_topic"])
	assert.Equal(t, []any{"auto", "manual", "laundry_dry", "shoes_dry", "silent", "continuous"}, cfg["modes"])
	assert.EqualValues(t, 30, cfg["min_humidity"])
	assert.EqualValues(t, 70, cfg["max_humidity"])
	assert.Equal(t, "winix_laundry_room", cfg["unique_id"])

	dev := cfg["device"].(map[string]any)
	assert.Equal(t, "Winix", dev["manufacturer"])
	assert.Equal(t, []any{"dev-1"}, dev["identifiers"])
	assert.Equal(t, []any{[]any{"mac", "aa:bb"}}, dev["connections"])

	sensor, ok := published["homeassistant/sensor/laundry_room_humidity/config"]
	require.True(t, ok)
	var msg model.RegisterMessage
	require.NoError(t, json.Unmarshal(sensor.payload, &msg))
	assert.Equal(t, "~/current_humidity/state", msg.StateTopic)
	assert.Equal(t, "%", msg.UnitOfMeasurement)
	assert.Equal(t, "measurement", msg.StateClass)
	assert.Equal(t, "winix_laundry_room_humidity", msg.ID)

	_, ok = published["homeassistant/sensor/laundry_room_target_humidity/config"]
	assert.True(t, ok)
}

func TestRegisterDeviceFailureRetries(t *testing.T) {
	svc, client := newTestService(t)
	client.err = errors.New("not connected")
	require.Error(t, svc.RegisterDevice(context.Background(), testDevice))

	client.err = nil
	require.NoError(t, svc.RegisterDevice(context.Background(), testDevice))
	assert.Len(t, client.published, 4)
}

func TestUnregisterDevice(t *testing.T) {
	svc, client := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.RegisterDevice(ctx, testDevice))
	require.NoError(t, svc.UnregisterDevice(ctx, testDevice))

	for _, topic := range []string{
		"homeassistant/humidifier/laundry_room/config",
		"homeassistant/sensor/laundry_room_humidity/config",
		"homeassistant/sensor/laundry_room_target_humidity/config",
	} {
		m := client.byTopic()[topic]
		assert.True(t, m.retained, topic)
		assert.Empty(t, m.payload, topic)
	}

	// registering again after removal announces the device anew
	require.NoError(t, svc.RegisterDevice(ctx, testDevice))
	assert.Len(t, client.published, 9)
}

func TestWrite(t *testing.T) {
	svc, client := newTestService(t)
	require.NoError(t, svc.Write(context.Background(), []model.Record{
		{Identifier: "laundry_room", Slug: "target_humidity", Value: "45", Unit: "%"},
		{Identifier: "laundry_room", Slug: "is_on", Value: "on"},
	}))

	assert.Equal(t, []message{
		{topic: "winix/laundry_room/target_humidity/state", payload: []byte("45"), retained: true},
		{topic: "winix/laundry_room/is_on/state", payload: []byte("on"), retained: true},
	}, client.published)
}

func ptr[T any](v T) *T { return &v }

func TestParseCommand(t *testing.T) {
	tests := map[string]struct {
		topic   string
		payload string
		want    Command
	}{
		"power on": {
			topic: "winix/laundry_room/set/power", payload: "ON",
			want: Command{Device: "laundry_room", Service: coordinator.ServiceTurnOn},
		},
		"power off": {
			topic: "winix/laundry_room/set/power", payload: "off",
			want: Command{Device: "laundry_room", Service: coordinator.ServiceTurnOff},
		},
		"mode": {
			topic: "winix/laundry_room/set/mode", payload: "silent",
			want: Command{Device: "laundry_room", Service: coordinator.ServiceSetMode, Params: coordinator.Params{Mode: ptr("silent")}},
		},
		"humidity": {
			topic: "winix/laundry_room/set/humidity", payload: "55.0",
			want: Command{Device: "laundry_room", Service: coordinator.ServiceSetHumidity, Params: coordinator.Params{Humidity: ptr(55)}},
		},
		"service with params": {
			topic: "winix/basement/set/set_timer", payload: `{"timer":6}`,
			want: Command{Device: "basement", Service: coordinator.ServiceSetTimer, Params: coordinator.Params{Timer: ptr(6)}},
		},
		"service without params": {
			topic: "winix/basement/set/refresh",
			want:  Command{Device: "basement", Service: coordinator.ServiceRefresh},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseCommand(tt.topic, []byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	tests := map[string]struct {
		topic   string
		payload string
	}{
		"bad power":    {topic: "winix/a/set/power", payload: "maybe"},
		"bad humidity": {topic: "winix/a/set/humidity", payload: "wet"},
		"bad json":     {topic: "winix/a/set/set_timer", payload: "{"},
		"short topic":  {topic: "winix/a/set"},
		"wrong root":   {topic: "other/a/set/power", payload: "on"},
		"empty slug":   {topic: "winix//set/power", payload: "on"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCommand(tt.topic, []byte(tt.payload))
			assert.Error(t, err)
		})
	}
}

func TestSubscribe(t *testing.T) {
	svc, client := newTestService(t)

	type call struct {
		service string
		ids     []string
		params  coordinator.Params
	}
	var calls []call
	handler := func(_ context.Context, service string, ids []string, params coordinator.Params) error {
		calls = append(calls, call{service, ids, params})
		return nil
	}
	require.NoError(t, svc.Subscribe(context.Background(), handler))

	client.deliver(SetTopic, "winix/laundry_room/set/humidity", "40")
	client.deliver(SetTopic, "winix/laundry_room/set/power", "sideways")

	assert.Equal(t, []call{
		{service: coordinator.ServiceSetHumidity, ids: []string{"laundry_room"}, params: coordinator.Params{Humidity: ptr(40)}},
	}, calls)
}

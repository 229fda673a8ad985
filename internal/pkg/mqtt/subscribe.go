package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/anicoll/winix-integration/internal/pkg/coordinator"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// CommandHandler runs a service against the given devices.
// coordinator.Manager.Dispatch satisfies it.
type CommandHandler func(ctx context.Context, service string, deviceIDs []string, params coordinator.Params) error

// Command is a decoded message from a set topic.
type Command struct {
	Device  string
	Service string
	Params  coordinator.Params
}

// ParseCommand decodes winix/{slug}/set/{command}. power, mode and humidity
// take plain payloads as sent by the humidifier entity; any other command is
// taken as a service name with an optional JSON object of params.
func ParseCommand(topic string, payload []byte) (Command, error) {
	slug, command, err := parseSetTopic(topic)
	if err != nil {
		return Command{}, err
	}
	cmd := Command{Device: slug}
	body := strings.TrimSpace(string(payload))

	switch command {
	case setPower:
		switch strings.ToLower(body) {
		case winix.OnValue:
			cmd.Service = coordinator.ServiceTurnOn
		case winix.OffValue:
			cmd.Service = coordinator.ServiceTurnOff
		default:
			return Command{}, fmt.Errorf("power payload %q: %w", body, coordinator.ErrInvalidArgument)
		}
	case setMode:
		cmd.Service = coordinator.ServiceSetMode
		cmd.Params.Mode = &body
	case setHumidity:
		f, err := strconv.ParseFloat(body, 64)
		if err != nil {
			return Command{}, fmt.Errorf("humidity payload %q: %w", body, coordinator.ErrInvalidArgument)
		}
		humidity := int(math.Round(f))
		cmd.Service = coordinator.ServiceSetHumidity
		cmd.Params.Humidity = &humidity
	default:
		cmd.Service = command
		if body != "" {
			if err := json.Unmarshal([]byte(body), &cmd.Params); err != nil {
				return Command{}, fmt.Errorf("%s payload: %w", command, errors.Join(coordinator.ErrInvalidArgument, err))
			}
		}
	}
	return cmd, nil
}

// Subscribe routes every message on the set topics to handler until the
// client disconnects.
func (s *Service) Subscribe(ctx context.Context, handler CommandHandler) error {
	token := s.client.Subscribe(SetTopic, 1, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
		cmd, err := ParseCommand(msg.Topic(), msg.Payload())
		if err != nil {
			s.logger.Warn("ignoring command", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		if err := handler(ctx, cmd.Service, []string{cmd.Device}, cmd.Params); err != nil {
			s.logger.Error("command failed",
				zap.String("topic", msg.Topic()),
				zap.String("service", cmd.Service),
				zap.Error(err))
		}
	})
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("subscribe timed out")
	}
	return token.Error()
}

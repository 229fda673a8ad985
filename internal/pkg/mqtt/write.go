package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anicoll/winix-integration/internal/pkg/coordinator"
	"github.com/anicoll/winix-integration/internal/pkg/model"
	"github.com/anicoll/winix-integration/internal/pkg/publisher"
	"github.com/anicoll/winix-integration/internal/pkg/winix"
	"go.uber.org/zap"
)

const manufacturer = "Winix"

const (
	sensorHumidity       = "humidity"
	sensorTargetHumidity = "target_humidity"
)

// Write publishes every record retained on its state topic.
func (s *Service) Write(ctx context.Context, data []model.Record) error {
	for _, d := range data {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.publish(StateTopic(d.Identifier, d.Slug), true, []byte(d.Value)); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice announces the humidifier and its two humidity sensors.
func (s *Service) RegisterDevice(ctx context.Context, device *model.Device) error {
	s.mu.Lock()
	_, exists := s.configured[device.ID]
	s.mu.Unlock()
	if exists {
		return nil
	}

	configs, err := discoveryConfigs(device)
	if err != nil {
		return err
	}
	for topic, payload := range configs {
		if err := s.publish(topic, true, payload); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.configured[device.ID] = struct{}{}
	s.mu.Unlock()
	s.logger.Info("registered device", zap.String("device", device.Slug))
	return nil
}

// UnregisterDevice clears the retained discovery configs, which makes home
// assistant drop the entities.
func (s *Service) UnregisterDevice(ctx context.Context, device *model.Device) error {
	topics := []string{
		humidifierConfigTopic(device.Slug),
		sensorConfigTopic(device.Slug, sensorHumidity),
		sensorConfigTopic(device.Slug, sensorTargetHumidity),
	}
	for _, topic := range topics {
		if err := s.publish(topic, true, []byte{}); err != nil {
			return err
		}
	}
	s.mu.Lock()
	delete(s.configured, device.ID)
	s.mu.Unlock()
	return nil
}

func discoveryConfigs(device *model.Device) (map[string][]byte, error) {
	humidifier, err := json.Marshal(humidifierMsg(device))
	if err != nil {
		return nil, err
	}
	current, err := json.Marshal(sensorMsg(device, sensorHumidity, "Humidity", winix.AttrCurrentHumidity))
	if err != nil {
		return nil, err
	}
	target, err := json.Marshal(sensorMsg(device, sensorTargetHumidity, "Target humidity", winix.AttrTargetHumidity))
	if err != nil {
		return nil, err
	}
	return map[string][]byte{
		humidifierConfigTopic(device.Slug):                   humidifier,
		sensorConfigTopic(device.Slug, sensorHumidity):       current,
		sensorConfigTopic(device.Slug, sensorTargetHumidity): target,
	}, nil
}

func registerDevice(device *model.Device) model.RegisterDevice {
	rd := model.RegisterDevice{
		Name:         device.Name,
		Identifiers:  []string{device.ID},
		Model:        device.Model,
		Manufacturer: manufacturer,
		SWVersion:    device.SWVersion,
	}
	if device.MAC != "" {
		rd.Connections = [][]string{{"mac", device.MAC}}
	}
	return rd
}

func humidifierMsg(device *model.Device) model.HumidifierMessage {
	return model.HumidifierMessage{
		Tilda:                      baseTopic(device.Slug),
		Name:                       device.Name,
		ID:                         fmt.Sprintf("winix_%s", device.Slug),
		DeviceClass:                "dehumidifier",
		CommandTopic:               "~/set/" + setPower,
		StateTopic:                 "~/" + publisher.AttrIsOn + "/state",
		PayloadOn:                  winix.OnValue,
		PayloadOff:                 winix.OffValue,
		ModeCommandTopic:           "~/set/" + setMode,
		ModeStateTopic:             "~/" + winix.AttrMode + "/state",
		Modes:                      winix.Modes,
		TargetHumidityCommandTopic: "~/set/" + setHumidity,
		TargetHumidityStateTopic:   "~/" + winix.AttrTargetHumidity + "/state",
		CurrentHumidityTopic:       "~/" + winix.AttrCurrentHumidity + "/state",
		MinHumidity:                coordinator.MinHumidity,
		MaxHumidity:                coordinator.MaxHumidity,
		Device:                     registerDevice(device),
	}
}

func sensorMsg(device *model.Device, sensor, name, attribute string) model.RegisterMessage {
	return model.RegisterMessage{
		Tilda:             baseTopic(device.Slug),
		Name:              fmt.Sprintf("%s %s", device.Name, name),
		ID:                fmt.Sprintf("winix_%s_%s", device.Slug, sensor),
		StateTopic:        "~/" + attribute + "/state",
		DeviceClass:       "humidity",
		StateClass:        "measurement",
		UnitOfMeasurement: "%",
		Device:            registerDevice(device),
	}
}

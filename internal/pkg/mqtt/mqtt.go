package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

type Service struct {
	client paho_mqtt.Client
	logger *zap.Logger

	mu         sync.Mutex
	configured map[string]struct{}
}

func New(client paho_mqtt.Client) *Service {
	return &Service{
		client:     client,
		logger:     zap.L(),
		configured: make(map[string]struct{}),
	}
}

// NewClient builds a paho client for broker with the options this bridge
// relies on: auto reconnect and resubscribe on reconnect.
func NewClient(broker, username, password string) paho_mqtt.Client {
	opts := paho_mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("winix-integration").
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetCleanSession(false).
		SetOrderMatters(false)
	return paho_mqtt.NewClient(opts)
}

func (s *Service) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(publishTimeout)
	if res {
		return token.Error()
	}
	if err := token.Error(); err != nil {
		return err
	}
	return errors.New("unable to connect in time")
}

func (s *Service) Disconnect() {
	s.client.Disconnect(250)
}

func (s *Service) publish(topic string, retained bool, payload []byte) error {
	token := s.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish to " + topic + " timed out")
	}
	return token.Error()
}

package model

type RegisterDevice struct {
	Name         string     `json:"name"`
	Identifiers  []string   `json:"identifiers"`
	Connections  [][]string `json:"connections,omitempty"`
	Model        string     `json:"model"`
	Manufacturer string     `json:"manufacturer"`
	SWVersion    string     `json:"sw_version,omitempty"`
}

// RegisterMessage is a home assistant sensor discovery config.
type RegisterMessage struct {
	Tilda             string         `json:"~"`
	Name              string         `json:"name"`
	ID                string         `json:"unique_id"`
	StateTopic        string         `json:"state_topic"`
	DeviceClass       string         `json:"device_class,omitempty"`
	StateClass        string         `json:"state_class,omitempty"`
	UnitOfMeasurement string         `json:"unit_of_measurement,omitempty"`
	Device            RegisterDevice `json:"device"`
}

// HumidifierMessage is a home assistant humidifier discovery config.
type HumidifierMessage struct {
	Tilda                      string         `json:"~"`
	Name                       string         `json:"name"`
	ID                         string         `json:"unique_id"`
	DeviceClass                string         `json:"device_class"`
	CommandTopic               string         `json:"command_topic"`
	StateTopic                 string         `json:"state_topic"`
	PayloadOn                  string         `json:"payload_on"`
	PayloadOff                 string         `json:"payload_off"`
	ModeCommandTopic           string         `json:"mode_command_topic"`
	ModeStateTopic             string         `json:"mode_state_topic"`
	Modes                      []string       `json:"modes"`
	TargetHumidityCommandTopic string         `json:"target_humidity_command_topic"`
	TargetHumidityStateTopic   string         `json:"target_humidity_state_topic"`
	CurrentHumidityTopic       string         `json:"current_humidity_topic"`
	MinHumidity                int            `json:"min_humidity"`
	MaxHumidity                int            `json:"max_humidity"`
	Device                     RegisterDevice `json:"device"`
}

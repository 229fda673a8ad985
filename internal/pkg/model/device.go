package model

// Device is what publishers need to announce a dehumidifier.
type Device struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	MAC       string `json:"mac"`
	Model     string `json:"model"`
	SWVersion string `json:"sw_version"`
}


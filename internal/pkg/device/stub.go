package device

import "github.com/anicoll/winix-integration/internal/pkg/model"

// Stub describes one account device as returned by the device listing.
// It never changes after load.
type Stub struct {
	ID                string `json:"id"`
	MAC               string `json:"mac"`
	Alias             string `json:"alias"`
	LocationCode      string `json:"location_code"`
	FilterReplaceDate string `json:"filter_replace_date"`
	Model             string `json:"model"`
	SWVersion         string `json:"sw_version"`
}

// Name is the alias, or the MAC when no alias was given.
func (s Stub) Name() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.MAC
}

func (s Stub) Slug() string {
	return model.Slug(s.Name())
}

func (s Stub) Device() *model.Device {
	return &model.Device{
		ID:        s.ID,
		Name:      s.Name(),
		Slug:      s.Slug(),
		MAC:       s.MAC,
		Model:     s.Model,
		SWVersion: s.SWVersion,
	}
}

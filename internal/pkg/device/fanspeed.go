package device

import (
	"math"
	"slices"

	"github.com/anicoll/winix-integration/internal/pkg/winix"
)

// FanSpeedMedium exists only on the host side. The cloud has no code for it
// and receives the default fan speed code instead.
const FanSpeedMedium = "medium"

// OrderedFanSpeeds is ordered by airflow, lowest first.
var OrderedFanSpeeds = []string{
	winix.FanSpeedLow,
	FanSpeedMedium,
	winix.FanSpeedHigh,
	winix.FanSpeedTurbo,
}

// FanSpeedToPercentage maps a named speed onto 1..100 by its position in
// OrderedFanSpeeds. Unknown names give 0.
func FanSpeedToPercentage(speed string) int {
	idx := slices.Index(OrderedFanSpeeds, speed)
	if idx < 0 {
		return 0
	}
	return (idx + 1) * 100 / len(OrderedFanSpeeds)
}

// PercentageToFanSpeed picks the smallest named speed covering percentage.
// Zero or less has no speed.
func PercentageToFanSpeed(percentage int) (string, bool) {
	if percentage <= 0 {
		return "", false
	}
	if percentage > 100 {
		percentage = 100
	}
	idx := int(math.Ceil(float64(percentage)*float64(len(OrderedFanSpeeds))/100)) - 1
	return OrderedFanSpeeds[idx], true
}

// HasVendorCode reports whether speed can be sent as-is.
func HasVendorCode(speed string) bool {
	_, ok := winix.EncodeValue(winix.AttrFanSpeed, speed)
	return ok
}

package winix

import (
	"slices"

	"github.com/samber/lo"
)

// Attribute names used in normalized state.
const (
	AttrPower           = "power"
	AttrMode            = "mode"
	AttrFanSpeed        = "fan_speed"
	AttrTargetHumidity  = "target_humidity"
	AttrChildLock       = "child_lock"
	AttrCurrentHumidity = "current_humidity"
	AttrUVSterilization = "uv_sterilization"
	AttrTimer           = "timer"
)

const (
	OffValue = "off"
	OnValue  = "on"
)

const (
	ModeAuto       = "auto"
	ModeManual     = "manual"
	ModeLaundryDry = "laundry_dry"
	ModeShoesDry   = "shoes_dry"
	ModeSilent     = "silent"
	ModeContinuous = "continuous"
)

const (
	FanSpeedHigh  = "high"
	FanSpeedLow   = "low"
	FanSpeedTurbo = "turbo"
)

// value codes sent when a label is not in the table.
const (
	defaultModeCode     = "01"
	defaultFanSpeedCode = "01"
)

// Modes in vendor code order.
var Modes = []string{
	ModeAuto,
	ModeManual,
	ModeLaundryDry,
	ModeShoesDry,
	ModeSilent,
	ModeContinuous,
}

// FanSpeedLabels follows the vendor code order (01, 02, 03), which is not
// ordered by airflow.
var FanSpeedLabels = []string{
	FanSpeedHigh,
	FanSpeedLow,
	FanSpeedTurbo,
}

var categoryCodes = map[string]string{
	AttrPower:           "D02",
	AttrMode:            "D03",
	AttrFanSpeed:        "D04",
	AttrTargetHumidity:  "D05",
	AttrChildLock:       "D08",
	AttrCurrentHumidity: "D10",
	AttrUVSterilization: "D13",
	AttrTimer:           "D15",
}

var switchCodes = map[string]string{OffValue: "0", OnValue: "1"}

var valueCodes = map[string]map[string]string{
	AttrPower: switchCodes,
	AttrMode: {
		ModeAuto:       "01",
		ModeManual:     "02",
		ModeLaundryDry: "03",
		ModeShoesDry:   "04",
		ModeSilent:     "05",
		ModeContinuous: "06",
	},
	AttrFanSpeed: {
		FanSpeedHigh:  "01",
		FanSpeedLow:   "02",
		FanSpeedTurbo: "03",
	},
	AttrChildLock:       switchCodes,
	AttrUVSterilization: switchCodes,
}

var (
	attributesByCode = lo.Invert(categoryCodes)
	labelsByCode     = lo.MapValues(valueCodes, func(codes map[string]string, _ string) map[string]string {
		return lo.Invert(codes)
	})
)

// Attributes returns every attribute name known to the category table, sorted.
func Attributes() []string {
	keys := lo.Keys(categoryCodes)
	slices.Sort(keys)
	return keys
}

// CategoryCode returns the vendor category code for an attribute name.
func CategoryCode(attr string) (string, bool) {
	code, ok := categoryCodes[attr]
	return code, ok
}

// AttributeForCode maps a vendor category code back to its attribute name.
func AttributeForCode(code string) (string, bool) {
	attr, ok := attributesByCode[code]
	return attr, ok
}

// IsEnum reports whether values of attr are encoded through a label table.
func IsEnum(attr string) bool {
	_, ok := valueCodes[attr]
	return ok
}

// EncodeValue looks up the vendor value code for a label of an enum attribute.
func EncodeValue(attr, label string) (string, bool) {
	code, ok := valueCodes[attr][label]
	return code, ok
}

// DecodeValue looks up the label for a vendor value code of an enum attribute.
func DecodeValue(attr, code string) (string, bool) {
	label, ok := labelsByCode[attr][code]
	return label, ok
}

func switchCode(on bool) string {
	if on {
		return switchCodes[OnValue]
	}
	return switchCodes[OffValue]
}

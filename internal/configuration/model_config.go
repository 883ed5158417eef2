package configuration

import (
	"github.com/qdm12/reprint"
)

// RegisterWriteMode selects how a RegisterWriteConfig's value is combined
// with the register's current contents.
type RegisterWriteMode string

const (
	RegisterWriteModeSet RegisterWriteMode = "Set"
	RegisterWriteModeAnd RegisterWriteMode = "And"
	RegisterWriteModeOr  RegisterWriteMode = "Or"
)

// RegisterWriteOccasion selects when a RegisterWriteConfig is applied.
type RegisterWriteOccasion string

const (
	RegisterWriteOccasionOnInitialization RegisterWriteOccasion = "OnInitialization"
	RegisterWriteOccasionOnWriteFanSpeed  RegisterWriteOccasion = "OnWriteFanSpeed"
)

// OverrideTargetOperation selects whether a FanSpeedPercentageOverride
// applies to encoding, decoding, or both.
type OverrideTargetOperation string

const (
	OverrideTargetOperationRead      OverrideTargetOperation = "Read"
	OverrideTargetOperationWrite     OverrideTargetOperation = "Write"
	OverrideTargetOperationReadWrite OverrideTargetOperation = "ReadWrite"
)

// TemperatureAlgorithmType selects how a fan aggregates multiple sensors.
type TemperatureAlgorithmType string

const (
	TemperatureAlgorithmAverage TemperatureAlgorithmType = "Average"
	TemperatureAlgorithmMin     TemperatureAlgorithmType = "Min"
	TemperatureAlgorithmMax     TemperatureAlgorithmType = "Max"
)

// TemperatureThreshold is one step of a fan's hysteretic threshold curve.
type TemperatureThreshold struct {
	UpThreshold   int `json:"UpThreshold"`
	DownThreshold int `json:"DownThreshold"`
	FanSpeed      int `json:"FanSpeed"`
}

// FanSpeedPercentageOverride pins a specific raw register value to a
// specific percentage, bypassing linear interpolation for that step.
type FanSpeedPercentageOverride struct {
	FanSpeedPercentage int                     `json:"FanSpeedPercentage"`
	FanSpeedValue      int                     `json:"FanSpeedValue"`
	TargetOperation    OverrideTargetOperation `json:"TargetOperation"`
}

// FanConfiguration describes one physical fan: its EC registers, its
// encoding range, and its threshold curve.
type FanConfiguration struct {
	FanDisplayName string `json:"FanDisplayName"`

	ReadRegister  int `json:"ReadRegister"`
	WriteRegister int `json:"WriteRegister"`

	MinSpeedValue int `json:"MinSpeedValue"`
	MaxSpeedValue int `json:"MaxSpeedValue"`

	IndependentReadMinMaxValues bool `json:"IndependentReadMinMaxValues"`
	MinSpeedValueRead           int  `json:"MinSpeedValueRead"`
	MaxSpeedValueRead           int  `json:"MaxSpeedValueRead"`

	ResetRequired     bool `json:"ResetRequired"`
	FanSpeedResetValue int `json:"FanSpeedResetValue"`

	TemperatureThresholds       []TemperatureThreshold       `json:"TemperatureThresholds"`
	FanSpeedPercentageOverrides []FanSpeedPercentageOverride `json:"FanSpeedPercentageOverrides"`
}

// WriteMinMax returns the Min/Max pair used for percent->raw encoding.
func (f *FanConfiguration) WriteMinMax() (int, int) {
	return f.MinSpeedValue, f.MaxSpeedValue
}

// ReadMinMax returns the Min/Max pair used for raw->percent decoding,
// honoring IndependentReadMinMaxValues.
func (f *FanConfiguration) ReadMinMax() (int, int) {
	if f.IndependentReadMinMaxValues {
		return f.MinSpeedValueRead, f.MaxSpeedValueRead
	}
	return f.MinSpeedValue, f.MaxSpeedValue
}

// RegisterWriteConfig is an EC register poke applied at init and/or before
// each fan-speed write.
type RegisterWriteConfig struct {
	Register       int                   `json:"Register"`
	Value          int                   `json:"Value"`
	ResetValue     int                   `json:"ResetValue"`
	ResetRequired  bool                  `json:"ResetRequired"`
	WriteMode      RegisterWriteMode     `json:"WriteMode"`
	ResetWriteMode RegisterWriteMode     `json:"ResetWriteMode"`
	WriteOccasion  RegisterWriteOccasion `json:"WriteOccasion"`
	Description    string                `json:"Description"`
}

// ModelConfig is the notebook-specific, immutable-after-load description of
// how to drive its fans through the Embedded Controller.
type ModelConfig struct {
	NotebookModel string `json:"NotebookModel"`
	Author        string `json:"Author"`

	EcPollInterval       int  `json:"EcPollInterval"`
	CriticalTemperature  int  `json:"CriticalTemperature"`
	ReadWriteWords       bool `json:"ReadWriteWords"`

	LegacyTemperatureThresholdsBehaviour bool `json:"LegacyTemperatureThresholdsBehaviour"`

	FanConfigurations           []FanConfiguration     `json:"FanConfigurations"`
	RegisterWriteConfigurations []RegisterWriteConfig  `json:"RegisterWriteConfigurations"`
}

// DefaultTemperatureThresholds is the stock six-step curve substituted for
// any fan that omits TemperatureThresholds when
// LegacyTemperatureThresholdsBehaviour is false.
var DefaultTemperatureThresholds = []TemperatureThreshold{
	{UpThreshold: 60, DownThreshold: 0, FanSpeed: 0},
	{UpThreshold: 63, DownThreshold: 48, FanSpeed: 10},
	{UpThreshold: 66, DownThreshold: 55, FanSpeed: 20},
	{UpThreshold: 68, DownThreshold: 59, FanSpeed: 50},
	{UpThreshold: 71, DownThreshold: 63, FanSpeed: 70},
	{UpThreshold: 75, DownThreshold: 67, FanSpeed: 100},
}

// DefaultLegacyTemperatureThresholds is the six-step curve substituted when
// LegacyTemperatureThresholdsBehaviour is true.
var DefaultLegacyTemperatureThresholds = []TemperatureThreshold{
	{UpThreshold: 0, DownThreshold: 0, FanSpeed: 0},
	{UpThreshold: 60, DownThreshold: 48, FanSpeed: 10},
	{UpThreshold: 63, DownThreshold: 55, FanSpeed: 20},
	{UpThreshold: 66, DownThreshold: 59, FanSpeed: 50},
	{UpThreshold: 68, DownThreshold: 63, FanSpeed: 70},
	{UpThreshold: 71, DownThreshold: 67, FanSpeed: 100},
}

// defaultThresholdsFor deep-copies the appropriate default table so a
// fan's TemperatureThresholds slice never aliases the shared package-level
// default/legacy tables.
func defaultThresholdsFor(legacy bool) []TemperatureThreshold {
	var src []TemperatureThreshold
	if legacy {
		src = DefaultLegacyTemperatureThresholds
	} else {
		src = DefaultTemperatureThresholds
	}
	return reprint.This(src).([]TemperatureThreshold)
}

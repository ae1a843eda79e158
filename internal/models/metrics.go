package models

// MetricKind identifies one of the fixed health metrics sampled per drive.
type MetricKind int

const (
	MetricTemperature MetricKind = iota
	MetricReadSpeed
	MetricWriteSpeed
	MetricErrorRate
	MetricPowerConsumption
	MetricVibration
	MetricElectromagnetic
	MetricCapacityUsage
	MetricSectorHealth

	// MetricCount is the number of metric kinds; the alert store is sized from it.
	MetricCount = int(MetricSectorHealth) + 1
)

// AllMetrics lists every metric kind in declaration order.
var AllMetrics = [MetricCount]MetricKind{
	MetricTemperature,
	MetricReadSpeed,
	MetricWriteSpeed,
	MetricErrorRate,
	MetricPowerConsumption,
	MetricVibration,
	MetricElectromagnetic,
	MetricCapacityUsage,
	MetricSectorHealth,
}

type metricInfo struct {
	name      string
	unit      string
	threshold float64
}

var metricTable = [MetricCount]metricInfo{
	MetricTemperature:      {"Temperature", "°C", 60.0},
	MetricReadSpeed:        {"Read Speed", "MB/s", 5.0},
	MetricWriteSpeed:       {"Write Speed", "MB/s", 5.0},
	MetricErrorRate:        {"Error Rate", "%", 0.5},
	MetricPowerConsumption: {"Power Consumption", "W", 5.0},
	MetricVibration:        {"Vibration", "Hz", 3.0},
	MetricElectromagnetic:  {"EM Signature", "strength", 0.8},
	MetricCapacityUsage:    {"Capacity Usage", "%", 90.0},
	MetricSectorHealth:     {"Sector Health", "%", 80.0},
}

// Valid reports whether m is one of the defined metric kinds.
func (m MetricKind) Valid() bool {
	return m >= 0 && int(m) < MetricCount
}

// Name returns the display name of the metric.
func (m MetricKind) Name() string {
	if !m.Valid() {
		return "Unknown"
	}
	return metricTable[m].name
}

// Unit returns the unit the metric is reported in.
func (m MetricKind) Unit() string {
	if !m.Valid() {
		return ""
	}
	return metricTable[m].unit
}

// NominalThreshold returns the built-in threshold value the warning and
// critical ratios are applied against.
func (m MetricKind) NominalThreshold() float64 {
	if !m.Valid() {
		return 0
	}
	return metricTable[m].threshold
}

func (m MetricKind) String() string {
	return m.Name()
}

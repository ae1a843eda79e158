package source

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/disk"
	"github.com/shirou/gopsutil/host"
)

const bytesPerMB = 1024 * 1024

type ioSnapshot struct {
	readBytes  uint64
	writeBytes uint64
	takenAt    time.Time
}

// SystemSource samples real host data where the OS exposes it: capacity from
// filesystem usage, read/write throughput from block-device IO counter deltas
// and temperature from host sensors. Metrics with no host backing (error
// rate, power, vibration, EM, sector health) fall back to simulation so a
// tick always yields a full sample set.
//
// The device id is interpreted as the mount point of the drive; the block
// device name behind it is resolved from the partition table.
type SystemSource struct {
	fallback *SimulatedSource
	logger   zerolog.Logger

	mu     sync.Mutex
	lastIO map[string]ioSnapshot
}

// NewSystemSource returns a source backed by the host OS.
func NewSystemSource(logger zerolog.Logger) *SystemSource {
	return &SystemSource{
		fallback: NewSimulatedSource(),
		logger:   logger,
		lastIO:   make(map[string]ioSnapshot),
	}
}

// Sample returns one reading for the metric, from the host where possible.
func (s *SystemSource) Sample(ctx context.Context, deviceID string, metric models.MetricKind) (float64, error) {
	switch metric {
	case models.MetricCapacityUsage:
		usage, err := disk.Usage(deviceID)
		if err != nil {
			return 0, err
		}
		return usage.UsedPercent, nil
	case models.MetricReadSpeed:
		read, _, err := s.throughput(deviceID)
		return read, err
	case models.MetricWriteSpeed:
		_, write, err := s.throughput(deviceID)
		return write, err
	case models.MetricTemperature:
		if temp, ok := s.sensorTemperature(deviceID); ok {
			return temp, nil
		}
		return s.fallback.Sample(ctx, deviceID, metric)
	default:
		return s.fallback.Sample(ctx, deviceID, metric)
	}
}

// throughput derives MB/s from the delta of the device's IO counters since
// the previous call. The first call for a device has no baseline and
// reports zero.
func (s *SystemSource) throughput(deviceID string) (readMBs, writeMBs float64, err error) {
	name, err := s.blockDevice(deviceID)
	if err != nil {
		return 0, 0, err
	}

	counters, err := disk.IOCounters(name)
	if err != nil {
		return 0, 0, err
	}
	stat, ok := counters[name]
	if !ok {
		s.logger.Debug().Str("device", name).Msg("No IO counters for device")
		return 0, 0, nil
	}

	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.lastIO[name]
	s.lastIO[name] = ioSnapshot{readBytes: stat.ReadBytes, writeBytes: stat.WriteBytes, takenAt: now}
	if !ok {
		return 0, 0, nil
	}

	elapsed := now.Sub(prev.takenAt).Seconds()
	if elapsed <= 0 {
		return 0, 0, nil
	}
	readMBs = float64(stat.ReadBytes-prev.readBytes) / bytesPerMB / elapsed
	writeMBs = float64(stat.WriteBytes-prev.writeBytes) / bytesPerMB / elapsed
	return readMBs, writeMBs, nil
}

// blockDevice maps a mount point to its block device name.
func (s *SystemSource) blockDevice(mountPoint string) (string, error) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return "", err
	}
	for _, p := range partitions {
		if p.Mountpoint == mountPoint {
			return path.Base(p.Device), nil
		}
	}
	// Not a known mount point; assume the id already names the device.
	return path.Base(mountPoint), nil
}

// sensorTemperature looks for a host temperature sensor matching the device,
// falling back to any disk-related sensor.
func (s *SystemSource) sensorTemperature(deviceID string) (float64, bool) {
	sensors, err := host.SensorsTemperatures()
	if err != nil || len(sensors) == 0 {
		return 0, false
	}
	base := path.Base(deviceID)
	for _, sensor := range sensors {
		if strings.Contains(sensor.SensorKey, base) {
			return sensor.Temperature, true
		}
	}
	for _, sensor := range sensors {
		if strings.Contains(sensor.SensorKey, "nvme") || strings.Contains(sensor.SensorKey, "drivetemp") {
			return sensor.Temperature, true
		}
	}
	return 0, false
}

package sink

import (
	"fmt"
	"strings"
	"sync"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/pkg/file"
)

// CSVLogSink appends one CSV row per snapshot: timestamp, device id, then the
// current value of every metric in declaration order.
type CSVLogSink struct {
	filePath   string
	fileClient file.FileOperations

	mu          sync.Mutex
	wroteHeader bool
}

// NewCSVLogSink returns a sink appending to filePath.
func NewCSVLogSink(filePath string, fileClient file.FileOperations) *CSVLogSink {
	return &CSVLogSink{
		filePath:   filePath,
		fileClient: fileClient,
	}
}

// Append writes the snapshot's current metric values as one CSV row,
// emitting a header row the first time the sink touches a fresh file.
func (s *CSVLogSink) Append(snapshot models.DeviceHealth) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.wroteHeader {
		exists, err := s.fileClient.IsFileExists(s.filePath)
		if err != nil {
			return err
		}
		if !exists {
			if err := s.fileClient.AppendLine(s.filePath, s.header()); err != nil {
				return err
			}
		}
		s.wroteHeader = true
	}

	fields := make([]string, 0, models.MetricCount+2)
	fields = append(fields, fmt.Sprint(snapshot.LastUpdate.UnixMilli()), snapshot.DeviceID)
	for _, metric := range models.AllMetrics {
		fields = append(fields, fmt.Sprintf("%.2f", snapshot.Current[metric]))
	}
	return s.fileClient.AppendLine(s.filePath, strings.Join(fields, ","))
}

func (s *CSVLogSink) header() string {
	fields := make([]string, 0, models.MetricCount+2)
	fields = append(fields, "timestamp", "device_id")
	for _, metric := range models.AllMetrics {
		fields = append(fields, strings.ReplaceAll(strings.ToLower(metric.Name()), " ", "_"))
	}
	return strings.Join(fields, ",")
}

package sink

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/benmeehan/drive-monitor/internal/models"
	"github.com/benmeehan/drive-monitor/pkg/mqtt"
	"github.com/rs/zerolog"
)

const publishRetries = 3

// MQTTNotifier publishes alerts as JSON over MQTT.
type MQTTNotifier struct {
	topic      string
	qos        int
	mqttClient mqtt.MQTTClient
	logger     zerolog.Logger
}

// NewMQTTNotifier returns a notifier publishing to the given topic.
func NewMQTTNotifier(topic string, qos int, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		topic:      topic,
		qos:        qos,
		mqttClient: mqttClient,
		logger:     logger,
	}
}

// Notify serializes the alert and publishes it, retrying with backoff.
func (n *MQTTNotifier) Notify(alert models.Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to serialize alert: %w", err)
	}

	for i := 0; i < publishRetries; i++ {
		token := n.mqttClient.Publish(n.topic, byte(n.qos), false, payload)
		if token.Wait() && token.Error() == nil {
			n.logger.Debug().Str("device_id", alert.DeviceID).Str("severity", alert.Severity()).
				Msg("Alert published")
			return nil
		}
		n.logger.Warn().Err(token.Error()).Int("retry", i+1).Msg("Retrying to publish alert...")
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	return fmt.Errorf("failed to publish alert after %d retries", publishRetries)
}

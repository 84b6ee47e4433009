package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EventType
		expected string
	}{
		{"completed", EventTypeCompleted, "completed"},
		{"imported", EventTypeImported, "imported"},
		{"failed", EventTypeFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestEntityType_String(t *testing.T) {
	tests := []struct {
		name     string
		et       EntityType
		expected string
	}{
		{"forecast", EntityTypeForecast, "forecast"},
		{"statement", EntityTypeStatement, "statement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, string(tt.et))
		})
	}
}

func TestNewEvent(t *testing.T) {
	payload := map[string]interface{}{
		"final_balance": "1234.56",
		"method":        "prophet",
	}

	before := time.Now()
	evt := NewEvent(EventTypeCompleted, EntityTypeForecast, payload)
	after := time.Now()

	assert.Equal(t, "forecast.completed", evt.Type)
	assert.Equal(t, EntityTypeForecast, evt.Entity)
	assert.Equal(t, payload, evt.Payload)
	assert.True(t, !evt.Timestamp.Before(before) && !evt.Timestamp.After(after))
}

func TestEvent_JSON_Serialization(t *testing.T) {
	fixedTime := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	payload := map[string]interface{}{
		"ledger_id": "abc-123",
		"rows":      float64(42),
	}

	evt := Event{
		Type:      "statement.imported",
		Entity:    EntityTypeStatement,
		Payload:   payload,
		Timestamp: fixedTime,
	}

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded Event
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, evt.Type, decoded.Type)
	assert.Equal(t, evt.Entity, decoded.Entity)
	assert.Equal(t, fixedTime.UTC(), decoded.Timestamp.UTC())

	decodedPayload, ok := decoded.Payload.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "abc-123", decodedPayload["ledger_id"])
	assert.Equal(t, float64(42), decodedPayload["rows"])
}

func TestEvent_ToJSON(t *testing.T) {
	payload := map[string]interface{}{
		"final_balance": "500.00",
	}

	evt := NewEvent(EventTypeCompleted, EntityTypeForecast, payload)

	data, err := evt.ToJSON()
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	var decoded map[string]interface{}
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)

	assert.Equal(t, "forecast.completed", decoded["type"])
	assert.Equal(t, "forecast", decoded["entity"])
	assert.NotNil(t, decoded["payload"])
	assert.NotNil(t, decoded["timestamp"])
}

func TestForecastAndStatementHelpers(t *testing.T) {
	payload := map[string]interface{}{"ledger_id": "xyz"}

	t.Run("ForecastCompleted", func(t *testing.T) {
		evt := ForecastCompleted(payload)
		assert.Equal(t, "forecast.completed", evt.Type)
		assert.Equal(t, EntityTypeForecast, evt.Entity)
	})

	t.Run("ForecastFailed", func(t *testing.T) {
		evt := ForecastFailed(payload)
		assert.Equal(t, "forecast.failed", evt.Type)
		assert.Equal(t, EntityTypeForecast, evt.Entity)
	})

	t.Run("StatementImported", func(t *testing.T) {
		evt := StatementImported(payload)
		assert.Equal(t, "statement.imported", evt.Type)
		assert.Equal(t, EntityTypeStatement, evt.Entity)
	})
}

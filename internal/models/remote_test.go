package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_Valid(t *testing.T) {
	line := `{"event":"Reply","properties":{"timestamp":1000,"city":"Mangalore","country":"India","date":"2016-01-01T00:00:00","distinct_id":"x"}}`

	ev, err := ParseRecord([]byte(line), "timestamp")
	require.NoError(t, err)
	assert.Equal(t, Event{
		Name:      "Reply",
		City:      "Mangalore",
		Country:   "India",
		Date:      "2016-01-01T00:00:00",
		Timestamp: 1000,
	}, ev)
}

func TestParseRecord_NumericStringAndFloatTimestamps(t *testing.T) {
	ev, err := ParseRecord([]byte(`{"event":"Reply","properties":{"timestamp":"1479795414000","city":"a","country":"b","date":"c"}}`), "timestamp")
	require.NoError(t, err)
	assert.Equal(t, int64(1479795414000), ev.Timestamp)

	ev, err = ParseRecord([]byte(`{"event":"Reply","properties":{"timestamp":1.5e3,"city":"a","country":"b","date":"c"}}`), "timestamp")
	require.NoError(t, err)
	assert.Equal(t, int64(1500), ev.Timestamp)
}

func TestParseRecord_CustomTimestampProperty(t *testing.T) {
	ev, err := ParseRecord([]byte(`{"event":"Reply","properties":{"ts_ms":42,"city":"a","country":"b","date":"c"}}`), "ts_ms")
	require.NoError(t, err)
	assert.Equal(t, int64(42), ev.Timestamp)
}

func TestParseRecord_Skips(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `{"event":`},
		{"missing name", `{"properties":{"timestamp":1,"city":"a","country":"b","date":"c"}}`},
		{"blank name", `{"event":"  ","properties":{"timestamp":1,"city":"a","country":"b","date":"c"}}`},
		{"missing timestamp", `{"event":"Reply","properties":{"city":"a","country":"b","date":"c"}}`},
		{"zero timestamp", `{"event":"Reply","properties":{"timestamp":0,"city":"a","country":"b","date":"c"}}`},
		{"bad timestamp", `{"event":"Reply","properties":{"timestamp":"soon","city":"a","country":"b","date":"c"}}`},
		{"timestamp above int64", `{"event":"Reply","properties":{"timestamp":1e30,"city":"a","country":"b","date":"c"}}`},
		{"timestamp at 2^63", `{"event":"Reply","properties":{"timestamp":9.223372036854775808e18,"city":"a","country":"b","date":"c"}}`},
		{"timestamp below int64", `{"event":"Reply","properties":{"timestamp":-1e30,"city":"a","country":"b","date":"c"}}`},
		{"missing city", `{"event":"Reply","properties":{"timestamp":1,"country":"b","date":"c"}}`},
		{"empty country", `{"event":"Reply","properties":{"timestamp":1,"city":"a","country":"","date":"c"}}`},
		{"missing date", `{"event":"Reply","properties":{"timestamp":1,"city":"a","country":"b"}}`},
		{"non-string city", `{"event":"Reply","properties":{"timestamp":1,"city":7,"country":"b","date":"c"}}`},
		{"no properties", `{"event":"Reply"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := ParseRecord([]byte(tt.line), "timestamp")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrSkip))
			var se *SkipError
			assert.True(t, errors.As(err, &se))
			assert.Equal(t, Event{}, ev)
		})
	}
}

func TestIsColumn(t *testing.T) {
	for _, c := range DefaultColumns {
		assert.True(t, IsColumn(c), c)
	}
	assert.False(t, IsColumn("id"))
	assert.False(t, IsColumn("password"))
}

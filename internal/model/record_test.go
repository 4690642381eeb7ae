package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRecord_PadsAndTruncates(t *testing.T) {
	t.Parallel()

	short := NewRecord([]string{"CITY", "ZIP", "AMNT"}, []string{"Helena"})
	assert.Equal(t, []string{"CITY", "ZIP", "AMNT"}, short.Columns)
	assert.Equal(t, "", short.Values["AMNT"])

	long := NewRecord([]string{"CITY"}, []string{"Helena", "extra"})
	assert.Len(t, long.Values, 1)
	assert.Equal(t, []string{"Helena"}, long.Row())
}

func TestNewRecord_DuplicateHeaderKeepsFirst(t *testing.T) {
	t.Parallel()

	r := NewRecord([]string{"ZIP", "ZIP"}, []string{"59601", "59602"})
	assert.Equal(t, []string{"ZIP"}, r.Columns)
	assert.Equal(t, "59601", r.Values["ZIP"])
}

func TestRecord_GetSkipsEmpty(t *testing.T) {
	t.Parallel()

	r := NewRecord([]string{"CITY", "City", "Zip"}, []string{"", "Helena", "59601"})
	assert.Equal(t, "Helena", r.City())
	assert.Equal(t, "59601", r.Postal())
	assert.Equal(t, "", r.State())
}

func TestRecord_Properties(t *testing.T) {
	t.Parallel()

	r := NewRecord([]string{"CITY", "AMNT"}, []string{"Helena", "50.25"})
	props := r.Properties()
	assert.Equal(t, map[string]interface{}{"CITY": "Helena", "AMNT": "50.25"}, props)

	v, ok := r.Lookup("AMNT")
	assert.True(t, ok)
	assert.Equal(t, "50.25", v)
	_, ok = r.Lookup("ZIP")
	assert.False(t, ok)
}

func TestRunStatusValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   string
	}{
		{RunStatusRunning, "running"},
		{RunStatusComplete, "complete"},
		{RunStatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.status))
		})
	}
}

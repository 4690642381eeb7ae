package geocode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		want   Columns
	}{
		{
			name:   "exact lower",
			header: []string{"zip", "lat", "lng"},
			want:   Columns{ZIP: "zip", Lat: "lat", Lon: "lng"},
		},
		{
			name:   "exact mixed case keeps original header",
			header: []string{"Postal Code", "Latitude", "Longitude"},
			want:   Columns{ZIP: "Postal Code", Lat: "Latitude", Lon: "Longitude"},
		},
		{
			name:   "exact preferred over earlier substring",
			header: []string{"zip_type", "ZIP", "lat_dd", "LAT", "lon_dd", "LON"},
			want:   Columns{ZIP: "ZIP", Lat: "LAT", Lon: "LON"},
		},
		{
			name:   "substring fills gaps only",
			header: []string{"zip", "INTPTLAT", "INTPTLONG"},
			want:   Columns{ZIP: "zip", Lat: "INTPTLAT", Lon: "INTPTLONG"},
		},
		{
			name:   "substring takes first match",
			header: []string{"ZIPCODE", "ZIP_ALT", "y_lat", "x_lng"},
			want:   Columns{ZIP: "ZIPCODE", Lat: "y_lat", Lon: "x_lng"},
		},
		{
			name:   "missing longitude",
			header: []string{"zip", "lat"},
			want:   Columns{ZIP: "zip", Lat: "lat"},
		},
		{
			name:   "empty header",
			header: nil,
			want:   Columns{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveColumns(tt.header)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumns_Complete(t *testing.T) {
	assert.True(t, Columns{ZIP: "z", Lat: "a", Lon: "o"}.Complete())
	assert.False(t, Columns{ZIP: "z", Lat: "a"}.Complete())
	assert.False(t, Columns{}.Complete())
}

package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{name: "string", in: `"300ms"`, want: 300 * time.Millisecond},
		{name: "nanoseconds", in: `1000000000`, want: time.Second},
		{name: "garbage string", in: `"soon"`, wantErr: true},
		{name: "bool", in: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidDuration)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 24 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, `"24ms"`, string(b))
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var v struct {
		Interval Duration `yaml:"interval"`
		Raw      Duration `yaml:"raw"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("interval: 2s\nraw: 5\n"), &v))
	assert.Equal(t, 2*time.Second, v.Interval.Duration)
	assert.Equal(t, time.Duration(5), v.Raw.Duration)
}

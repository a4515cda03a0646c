package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		region  string
		want    string
		wantErr bool
	}{
		{name: "national with spaces", raw: "0532 123 4567", region: "TR", want: "+905321234567"},
		{name: "already e164", raw: "+905321234567", region: "TR", want: "+905321234567"},
		{name: "default region", raw: "05321234567", want: "+905321234567"},
		{name: "lowercase region", raw: "0532 123 45 67", region: "tr", want: "+905321234567"},
		{name: "empty", raw: "  ", want: ""},
		{name: "letters", raw: "not a phone", region: "TR", wantErr: true},
		{name: "too short", raw: "0532", region: "TR", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw, tt.region)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDisplay_Unparseable(t *testing.T) {
	assert.Equal(t, "???", Display("???", "TR"))
}

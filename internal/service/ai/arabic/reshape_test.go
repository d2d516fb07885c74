package arabic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReshape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"latin and digits untouched", "AB-123", "AB-123"},
		{"plate letter between digits stays isolated", "12345\u06286", "12345\uFE8F6"},
		{"two dual joiners", "\u0628\u0628", "\uFE91\uFE90"},
		{"medial form", "\u0628\u0628\u0628", "\uFE91\uFE92\uFE90"},
		{"alef takes final form after beh", "\u0628\u0627", "\uFE91\uFE8E"},
		{"alef does not connect forward", "\u0627\u0644", "\uFE8D\uFEDD"},
		{"right joiner breaks the chain", "\u062F\u0628", "\uFEA9\uFE8F"},
		{"lam alef ligature", "\u0644\u0627", "\uFEFB"},
		{"lam alef ligature final", "\u0628\u0644\u0627", "\uFE91\uFEFC"},
		{"hamza never joins", "\u0628\u0621", "\uFE8F\uFE80"},
		{"harakat are dropped before joining", "\u0628\u064E\u0628", "\uFE91\uFE90"},
		{"tatweel is dropped", "\u0628\u0640\u0627", "\uFE91\uFE8E"},
		{"mixed plate keeps order and spacing", "12\u0644\u0627 34", "12\uFEFB 34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reshape(tt.in))
		})
	}
}

package docquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	tests := []struct {
		name   string
		length int
		skip   int
		limit  uint
		wantS  int
		wantE  int
	}{
		{"everything", 10, 0, NoLimit, 0, 10},
		{"skip", 10, 3, NoLimit, 3, 10},
		{"skip past end", 10, 15, NoLimit, 10, 10},
		{"limit", 10, 0, 4, 0, 4},
		{"skip and limit", 10, 2, 3, 2, 5},
		{"limit past end", 10, 8, 5, 8, 10},
		{"zero limit", 10, 0, 0, 0, 0},
		{"negative skip", 10, -3, NoLimit, 7, 10},
		{"negative skip and limit", 10, -3, 2, 7, 9},
		{"negative skip beyond length", 10, -20, NoLimit, 0, 10},
		{"negative skip equal to length", 10, -10, 1, 0, 1},
		{"empty", 0, -3, 2, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, e := Window(tt.length, tt.skip, tt.limit)
			assert.Equal(t, tt.wantS, s)
			assert.Equal(t, tt.wantE, e)
		})
	}
}

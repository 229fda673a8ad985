package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Laundry Room":      "laundry_room",
		"Basement-Dehum 2":  "basement_dehum_2",
		"aa:bb:cc:dd:ee:ff": "aa_bb_cc_dd_ee_ff",
	}
	for name, want := range tests {
		assert.Equal(t, want, Slug(name), name)
	}
}

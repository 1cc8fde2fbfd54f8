package util

import (
	"testing"
)

func TestRoundFloat(t *testing.T) {
	cases := []struct {
		val       float64
		precision uint
		want      float64
	}{
		{10.123456, 2, 10.12},
		{10.125, 2, 10.13},
		{-7.5566, 3, -7.557},
		{0, 2, 0},
		{99.999, 0, 100},
	}

	for _, c := range cases {
		got := RoundFloat(c.val, c.precision)
		if got != c.want {
			t.Errorf("RoundFloat(%v, %d) = %v, want %v", c.val, c.precision, got, c.want)
		}
	}
}

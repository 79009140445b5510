package entity

import "testing"

func TestLevelForPoints(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{-50, 1},
		{0, 1},
		{999, 1},
		{1000, 2},
		{1999, 2},
		{2000, 3},
		{10500, 11},
	}
	for _, tc := range cases {
		if got := LevelForPoints(tc.points); got != tc.level {
			t.Errorf("LevelForPoints(%d) = %d, want %d", tc.points, got, tc.level)
		}
	}
}

package worker

import "testing"

func TestClampBoundsNumWorkers(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{0, 1},
		{1, 1},
		{8, 8},
		{20, 8},
		{-3, 1},
	}
	for _, c := range cases {
		got := WorkerConfig{NumWorkers: c.in}.Clamp().NumWorkers
		if got != c.want {
			t.Fatalf("Clamp(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

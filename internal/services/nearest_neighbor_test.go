package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNearestNeighborOrder(t *testing.T) {
	inf := math.Inf(1)

	tests := []struct {
		name      string
		durations [][]float64
		start     int
		want      []int
	}{
		{
			name:      "empty",
			durations: nil,
			want:      nil,
		},
		{
			name:      "single point",
			durations: [][]float64{{0}},
			want:      []int{0},
		},
		{
			name: "greedy nearest first",
			durations: [][]float64{
				{0, 300, 100, 200},
				{300, 0, 50, 400},
				{100, 50, 0, 500},
				{200, 400, 500, 0},
			},
			want: []int{0, 2, 1, 3},
		},
		{
			name: "ties go to lowest index",
			durations: [][]float64{
				{0, 100, 100, 100},
				{100, 0, 100, 100},
				{100, 100, 0, 100},
				{100, 100, 100, 0},
			},
			want: []int{0, 1, 2, 3},
		},
		{
			name: "unreachable visited last",
			durations: [][]float64{
				{0, inf, 300},
				{inf, 0, inf},
				{300, inf, 0},
			},
			want: []int{0, 2, 1},
		},
		{
			name: "start outside matrix",
			durations: [][]float64{
				{0, 1},
				{1, 0},
			},
			start: 5,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NearestNeighborOrder(tt.durations, tt.start))
		})
	}
}

func TestNearestNeighborOrderIsDeterministic(t *testing.T) {
	durations := [][]float64{
		{0, 60, 60, 30},
		{60, 0, 10, 60},
		{60, 10, 0, 60},
		{30, 60, 60, 0},
	}

	first := NearestNeighborOrder(durations, 0)
	for range 20 {
		assert.Equal(t, first, NearestNeighborOrder(durations, 0))
	}
}

package main

import (
	"reflect"
	"testing"
)

func TestSplitRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		start   int
		end     int
		workers int
		want    [][2]int
	}{
		{
			name:  "even split",
			start: 1, end: 10, workers: 2,
			want: [][2]int{{1, 5}, {6, 10}},
		},
		{
			name:  "remainder goes to the first chunks",
			start: 1, end: 10, workers: 3,
			want: [][2]int{{1, 4}, {5, 7}, {8, 10}},
		},
		{
			name:  "more workers than rows",
			start: 5, end: 6, workers: 5,
			want: [][2]int{{5, 5}, {6, 6}},
		},
		{
			name:  "single row",
			start: 7, end: 7, workers: 1,
			want: [][2]int{{7, 7}},
		},
		{
			name:  "offset range",
			start: 51, end: 100, workers: 2,
			want: [][2]int{{51, 75}, {76, 100}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := splitRange(tt.start, tt.end, tt.workers)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitRange(%d, %d, %d) = %v, want %v", tt.start, tt.end, tt.workers, got, tt.want)
			}
		})
	}
}

func TestSplitRangeTilesTheWholeRange(t *testing.T) {
	t.Parallel()

	ranges := splitRange(1, 97, 7)
	next := 1
	for _, r := range ranges {
		if r[0] != next {
			t.Fatalf("chunk starts at %d, want %d", r[0], next)
		}
		if r[1] < r[0] {
			t.Fatalf("chunk %v is empty", r)
		}
		next = r[1] + 1
	}
	if next != 98 {
		t.Errorf("chunks end at %d, want 97", next-1)
	}
}

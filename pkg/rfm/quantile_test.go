package rfm

import (
	"reflect"
	"testing"
)

func TestQuantileEdges(t *testing.T) {
	got := quantileEdges([]float64{45, 0, 5, 10, 15, 20, 25, 30, 35, 40}, 5)
	want := []float64{0, 9, 18, 27, 36, 45}
	for i := range want {
		if diff := got[i] - want[i]; diff > 1e-9 || diff < -1e-9 {
			t.Fatalf("edges = %v, want %v", got, want)
		}
	}
}

func TestQcut_EqualPopulation(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	got, err := qcut(values, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{0, 0, 1, 1, 2, 2, 3, 3, 4, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestQcut_TiesShareABin(t *testing.T) {
	values := []float64{0, 1, 1, 2, 3, 4, 5, 6, 7, 8}
	got, err := qcut(values, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[1] != got[2] {
		t.Fatalf("tied values split across bins: %v", got)
	}
}

func TestQcut_DuplicateEdges(t *testing.T) {
	if _, err := qcut([]float64{0, 0, 0, 0, 0, 0, 1}, 5); err == nil {
		t.Fatal("expected error for collapsed edges")
	}
	if _, err := qcut(nil, 5); err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestRankFirst(t *testing.T) {
	got := rankFirst([]float64{50, 50, 20, 80, 10, 20})
	want := []float64{4, 5, 2, 6, 1, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

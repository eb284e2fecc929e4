package audio

import (
	"reflect"
	"testing"
)

func TestRingBufferAppendAndTail(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Append([]float64{1, 2})
	rb.Append([]float64{3, 4})

	got := rb.Tail(4)
	want := []float64{1, 2, 3, 4}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tail() = %v, want %v", got, want)
	}
}

func TestRingBufferWrapsOnOverflow(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append([]float64{1, 2, 3})
	rb.Append([]float64{4, 5})

	got := rb.Tail(3)
	want := []float64{3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tail() = %v, want %v", got, want)
	}
}

func TestRingBufferFullOverwrite(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append([]float64{1, 2, 3, 4, 5})

	got := rb.Tail(3)
	want := []float64{3, 4, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tail() = %v, want %v", got, want)
	}
}

func TestRingBufferSliceAbsoluteIndex(t *testing.T) {
	rb := NewRingBuffer(5)
	rb.Append([]float64{10, 20, 30})
	rb.Append([]float64{40, 50})
	rb.Append([]float64{60})

	got := rb.Slice(1, 4)
	want := []float64{30, 40, 50}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Slice(1,4) = %v, want %v", got, want)
	}
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Append([]float64{1, 2, 3})
	rb.Clear()

	if rb.Count() != 0 {
		t.Fatalf("Count() after Clear = %d, want 0", rb.Count())
	}
	if got := rb.Tail(3); len(got) != 0 {
		t.Fatalf("Tail() after Clear = %v, want empty", got)
	}
}

package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestOfEmitsInOrder(t *testing.T) {
	got, err := Collect(context.Background(), Of(1, 2, 3))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, got); diff != "" {
		t.Errorf("Collect() mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitErrorStopsStream(t *testing.T) {
	stop := errors.New("stop")
	var seen []int
	err := Of(1, 2, 3)(context.Background(), func(v int) error {
		seen = append(seen, v)
		if v == 2 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("error = %v, want %v", err, stop)
	}
	if diff := cmp.Diff([]int{1, 2}, seen); diff != "" {
		t.Errorf("seen mismatch (-want +got):\n%s", diff)
	}
}

func TestFromFuncIsColdAndRestartable(t *testing.T) {
	calls := 0
	s := FromFunc(func(ctx context.Context) (int, error) {
		calls++
		return calls * 10, nil
	})

	first, _ := Collect(context.Background(), s)
	second, _ := Collect(context.Background(), s)

	if diff := cmp.Diff([]int{10}, first); diff != "" {
		t.Errorf("first subscription (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{20}, second); diff != "" {
		t.Errorf("second subscription (-want +got):\n%s", diff)
	}
}

func TestFromFuncPropagatesFailure(t *testing.T) {
	boom := errors.New("boom")
	got, err := Collect(context.Background(), FromFunc(func(ctx context.Context) (string, error) {
		return "", boom
	}))
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want no values", got)
	}
}

func TestMap(t *testing.T) {
	got, err := Collect(context.Background(), Map(Of("a", "bb"), func(s string) int { return len(s) }))
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if diff := cmp.Diff([]int{1, 2}, got); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
}

func TestOfHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Collect(ctx, Of(1, 2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

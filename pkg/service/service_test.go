package service

import (
	"context"
	"errors"
	"testing"
)

type testService struct {
	name  string
	order *[]string
	err   error
}

func (t *testService) Run()                           { *t.order = append(*t.order, "run "+t.name) }
func (t *testService) Shutdown(context.Context) error { *t.order = append(*t.order, "stop "+t.name); return t.err }
func (t *testService) String() string                 { return t.name }

func TestGroup(t *testing.T) {
	var order []string
	boom := errors.New("boom")

	g := Group{}
	g.Add(&testService{name: "a", order: &order}, nil, &testService{name: "b", order: &order, err: boom})
	g.Add(&testService{name: "c", order: &order, err: context.Canceled})
	g.Add("not runnable")

	g.Start()
	err := g.Shutdown(context.Background())

	want := []string{"run a", "run b", "run c", "stop c", "stop b", "stop a"}
	if len(order) != len(want) {
		t.Fatalf("got %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("step %v: got %v, want %v", i, order[i], want[i])
		}
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected boom error, got %v", err)
	}
}

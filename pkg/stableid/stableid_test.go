package stableid

import "testing"

func TestOfDeterministic(t *testing.T) {
	a := Of("function", "svc.api.handler", "def handler()")
	b := Of("function", "svc.api.handler", "def handler()")
	if a != b {
		t.Fatalf("expected identical hash, got %q vs %q", a, b)
	}
}

func TestOfChangesWithSignature(t *testing.T) {
	a := Of("function", "svc.api.handler", "def handler()")
	b := Of("function", "svc.api.handler", "def handler(x: int)")
	if a == b {
		t.Fatal("expected hash to change when signature changes")
	}
}

func TestOfChangesWithQualname(t *testing.T) {
	a := Of("function", "svc.api.handler", "")
	b := Of("function", "svc.api.other", "")
	if a == b {
		t.Fatal("expected hash to change when qualname changes")
	}
}

func TestOfChangesWithKind(t *testing.T) {
	a := Of("function", "svc.api.Handler", "")
	b := Of("class", "svc.api.Handler", "")
	if a == b {
		t.Fatal("expected hash to change when kind changes")
	}
}

func TestOfEmptySignature(t *testing.T) {
	// Separator bytes must prevent a field-boundary collision: kind="a",
	// qualname="b", sig="" must not equal kind="a", qualname="", sig="b".
	a := Of("a", "b", "")
	b := Of("a", "", "b")
	if a == b {
		t.Fatal("expected no collision across field boundaries")
	}
}

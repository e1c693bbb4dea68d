package graph

import "testing"

func TestNodePartialIsEmptyInitially(t *testing.T) {
	p := NewNodePartial()
	if !p.IsEmpty() {
		t.Error("expected a fresh NodePartial to be empty")
	}
}

func TestNodePartialFluentChainDoesNotMutateEarlierValues(t *testing.T) {
	base := NewNodePartial().WithMessages(NewUserMessage("a"))
	withExtra := base.WithExtra("k", "v")

	if len(base.Messages) != 1 {
		t.Fatalf("base should only carry the message, got %+v", base)
	}
	if len(base.Extras) != 0 {
		t.Error("chaining off base must not retroactively add extras to base")
	}
	if withExtra.Extras["k"] != "v" {
		t.Error("expected withExtra to carry the new key")
	}
	if len(withExtra.Messages) != 1 || withExtra.Messages[0].Content != "a" {
		t.Error("expected withExtra to still carry the earlier message")
	}
}

func TestNodePartialWithExtraIsImmutable(t *testing.T) {
	p1 := NewNodePartial().WithExtra("a", 1)
	p2 := p1.WithExtra("b", 2)

	if _, ok := p1.Extras["b"]; ok {
		t.Error("p1 must not observe a key added via p2")
	}
	if p2.Extras["a"] != 1 || p2.Extras["b"] != 2 {
		t.Errorf("expected p2 to carry both keys, got %+v", p2.Extras)
	}
}

func TestNodePartialWithExtras(t *testing.T) {
	p := NewNodePartial().WithExtras(map[string]any{"x": 1, "y": 2})
	if p.Extras["x"] != 1 || p.Extras["y"] != 2 {
		t.Errorf("unexpected extras: %+v", p.Extras)
	}
	if p.IsEmpty() {
		t.Error("expected non-empty after WithExtras")
	}
}

func TestNodePartialWithErrors(t *testing.T) {
	p := NewNodePartial().WithErrors(NewErrorEvent("scope", "msg", nil))
	if len(p.Errors) != 1 {
		t.Fatalf("expected one error, got %d", len(p.Errors))
	}
	if p.IsEmpty() {
		t.Error("expected non-empty after WithErrors")
	}
}

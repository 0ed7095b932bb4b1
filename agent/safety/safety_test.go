package safety

import "testing"

func TestDefaultGate(t *testing.T) {
	t.Parallel()

	g := Default()
	cases := map[string]bool{
		"What are your opening hours?":   true,
		"tell me something unsafe":       false,
		"this is unsafe-ish":             false,
		"UNSAFE in caps is not blocked":  true,
		"":                               true,
	}
	for query, want := range cases {
		if got := g.Check(query); got != want {
			t.Fatalf("Check(%q) = %v, want %v", query, got, want)
		}
	}
}

func TestCustomPredicate(t *testing.T) {
	t.Parallel()

	g := New(BlocklistPredicate("stolen", " ", ""))
	if g.Check("selling stolen bikes") {
		t.Fatal("expected blocked query")
	}
	if !g.Check("selling used bikes") {
		t.Fatal("blank tokens must be ignored")
	}

	var zero *Gate
	if !zero.Check("anything") {
		t.Fatal("nil gate must allow")
	}
}

package di

import "testing"

type greeter struct{ name string }

func TestContainer_LazySingleton(t *testing.T) {
	c := NewContainer()
	c.Register("name", "pool")

	token := NewToken[*greeter]("greeter")
	calls := 0
	RegisterToken(c, token, func(sr ServiceRegistry) *greeter {
		calls++
		return &greeter{name: sr.Get("name").(string)}
	})

	first := GetToken(c, token)
	second := GetToken(c, token)

	if first != second {
		t.Fatal("expected the same instance on every resolution")
	}
	if calls != 1 {
		t.Fatalf("factory called %d times, want 1", calls)
	}
	if first.name != "pool" {
		t.Fatalf("name = %q", first.name)
	}
}

func TestContainer_UnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown service")
		}
	}()
	NewContainer().Get("missing")
}

package up

import "testing"

type fakeGate struct {
	enabled bool
	log     []bool
}

func (g *fakeGate) Disable() bool {
	was := g.enabled
	g.enabled = false
	g.log = append(g.log, false)
	return was
}

func (g *fakeGate) Restore(enabled bool) {
	g.enabled = enabled
	g.log = append(g.log, enabled)
}

func TestSessionTogglesGate(t *testing.T) {
	gate := &fakeGate{enabled: true}
	c := NewCell(gate, 0)

	c.ExclusiveSession(func(v *int) {
		if gate.enabled {
			t.Fatal("delivery should be off inside a session")
		}
		*v = 41
	})
	c.ExclusiveSession(func(v *int) { *v++ })

	if !gate.enabled {
		t.Fatal("delivery should be restored after the session")
	}
	var got int
	c.ExclusiveSession(func(v *int) { got = *v })
	if got != 42 {
		t.Fatalf("value = %d, want 42", got)
	}
}

func TestNestedDistinctCellsRestoreInOrder(t *testing.T) {
	gate := &fakeGate{enabled: true}
	outer := NewCell(gate, "outer")
	inner := NewCell(gate, "inner")

	outer.ExclusiveSession(func(*string) {
		inner.ExclusiveSession(func(*string) {
			if gate.enabled {
				t.Fatal("delivery should be off in the inner session")
			}
		})
		if gate.enabled {
			t.Fatal("inner restore must not re-enable delivery early")
		}
	})
	if !gate.enabled {
		t.Fatal("outer restore should re-enable delivery")
	}
}

func TestReentryPanics(t *testing.T) {
	gate := &fakeGate{enabled: true}
	c := NewCell(gate, 0)

	defer func() {
		if recover() == nil {
			t.Fatal("re-entering a held cell should panic")
		}
	}()
	c.ExclusiveSession(func(*int) {
		c.ExclusiveSession(func(*int) {})
	})
}

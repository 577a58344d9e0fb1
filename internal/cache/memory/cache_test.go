package memory

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New()
	defer c.Stop()

	c.Set("a", 42, time.Minute)

	v, ok := c.Get("a")
	if !ok {
		t.Fatal("expected hit")
	}
	if v.(int) != 42 {
		t.Errorf("got %v, want 42", v)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New()
	defer c.Stop()

	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New()
	defer c.Stop()

	c.Set("a", "v", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, ok := c.Get("a"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New()
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Delete("a")

	if _, ok := c.Get("a"); ok {
		t.Error("expected miss after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New()
	defer c.Stop()

	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)

	v, _ := c.Get("a")
	if v.(int) != 2 {
		t.Errorf("got %v, want 2", v)
	}
}

func TestCache_StopIdempotent(t *testing.T) {
	c := New()
	c.Stop()
	c.Stop()
}

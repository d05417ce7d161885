package router

import "testing"

type fakeCtx struct {
	yielded bool
	params  []Param
	calls   int
}

func (c *fakeCtx) Yielded() bool           { return c.yielded }
func (c *fakeCtx) ResetYield()             { c.yielded = false }
func (c *fakeCtx) SetParams(p []Param)     { c.params = p }
func (c *fakeCtx) Param(key string) string {
	for _, p := range c.params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

func TestExactMethodMatch(t *testing.T) {
	r := New[*fakeCtx]()
	var got string
	r.Handle("GET", "/hello", func(c *fakeCtx) { got = "hello" })

	ctx := &fakeCtx{}
	if !r.Dispatch("GET", "/hello", ctx) {
		t.Fatal("expected match")
	}
	if got != "hello" {
		t.Errorf("handler not invoked, got %q", got)
	}
}

func TestWildcardMethodFallback(t *testing.T) {
	r := New[*fakeCtx]()
	invoked := false
	r.Handle("*", "/ping", func(c *fakeCtx) { invoked = true })

	ctx := &fakeCtx{}
	if !r.Dispatch("POST", "/ping", ctx) {
		t.Fatal("expected wildcard fallback match")
	}
	if !invoked {
		t.Error("wildcard handler not invoked")
	}
}

func TestParamsAndYield(t *testing.T) {
	r := New[*fakeCtx]()
	h1Calls := 0
	r.Handle("GET", "/:a/:b", func(c *fakeCtx) {
		h1Calls++
		c.yielded = true
	})
	var seenA, seenB string
	r.Handle("GET", "/:a/:b", func(c *fakeCtx) {
		seenA, seenB = c.Param("a"), c.Param("b")
	})

	ctx := &fakeCtx{}
	if !r.Dispatch("GET", "/x/y", ctx) {
		t.Fatal("expected match after yield")
	}
	if h1Calls != 1 {
		t.Errorf("expected h1 invoked exactly once, got %d", h1Calls)
	}
	if seenA != "x" || seenB != "y" {
		t.Errorf("expected params x/y, got %s/%s", seenA, seenB)
	}
}

func TestNoMatchAfterWildcardFallback(t *testing.T) {
	r := New[*fakeCtx]()
	r.Handle("GET", "/hello", func(c *fakeCtx) {})

	ctx := &fakeCtx{}
	if r.Dispatch("POST", "/hello", ctx) {
		t.Error("expected no match")
	}
}

func TestCatchallWildcardSegment(t *testing.T) {
	r := New[*fakeCtx]()
	var rest string
	r.Handle("GET", "/static/*", func(c *fakeCtx) { rest = c.Param("*") })

	ctx := &fakeCtx{}
	if !r.Dispatch("GET", "/static/css/app.css", ctx) {
		t.Fatal("expected catchall match")
	}
	if rest != "css/app.css" {
		t.Errorf("expected rest 'css/app.css', got %q", rest)
	}
}

func TestRegistrationOrderTieBreak(t *testing.T) {
	r := New[*fakeCtx]()
	order := ""
	r.Handle("GET", "/x", func(c *fakeCtx) { order += "first" })
	r.Handle("GET", "/x", func(c *fakeCtx) { order += "second" })

	ctx := &fakeCtx{}
	r.Dispatch("GET", "/x", ctx)
	if order != "first" {
		t.Errorf("expected earliest registration to win, got %q", order)
	}
}

package render_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-ormform/pkg/render"
)

func TestCollectHidden(t *testing.T) {
	got := render.CollectHidden(
		render.Hidden(" version ", 3),
		render.CSRFToken("_csrf", "stale"),
		render.Hidden("  ", "skip"),
		render.CSRFToken("_csrf", "token123"),
	)
	got = append(got, render.Identity("id", nil)...)

	want := []render.HiddenField{
		{Name: "_csrf", Value: "token123"},
		{Name: "version", Value: "3"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("hidden fields mismatch (-want +got):\n%s", diff)
	}
	if render.CollectHidden() != nil {
		t.Fatalf("expected nil for no fields")
	}
}

func TestIdentity(t *testing.T) {
	want := []render.HiddenField{{Name: "id", Value: "7"}}
	if diff := cmp.Diff(want, render.Identity("id", int64(7))); diff != "" {
		t.Fatalf("identity mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeDescription(t *testing.T) {
	cases := map[string]string{
		"  plain text ":                        "plain text",
		"<b>bold</b><script>alert(1)</script>": "<b>bold</b>",
		`<a href="https://example.com" onclick="x()">docs</a>`: `<a href="https://example.com" rel="nofollow">docs</a>`,
		"": "",
	}
	for in, want := range cases {
		if got := render.SanitizeDescription(in); got != want {
			t.Fatalf("SanitizeDescription(%q) = %q, want %q", in, got, want)
		}
	}
}

package s3

import "testing"

func TestKeyspaceListing(t *testing.T) {
	cases := []struct {
		root   string
		prefix string
		want   string
	}{
		{root: "", prefix: "", want: ""},
		{root: "tabletalk", prefix: "", want: "tabletalk/"},
		{root: "/tabletalk/", prefix: "uploads/sales/", want: "tabletalk/uploads/sales/"},
		{root: "tabletalk", prefix: "uploads/sales", want: "tabletalk/uploads/sales"},
		{root: "", prefix: "uploads//sales/", want: "uploads/sales/"},
	}
	for _, tc := range cases {
		got, err := newKeyspace(tc.root).listing(tc.prefix)
		if err != nil {
			t.Fatalf("listing(%q, %q) error = %v", tc.root, tc.prefix, err)
		}
		if got != tc.want {
			t.Fatalf("listing(%q, %q) = %q, want %q", tc.root, tc.prefix, got, tc.want)
		}
	}
}

func TestKeyspaceObjectRejectsEmptyAndTraversal(t *testing.T) {
	keys := newKeyspace("tabletalk")
	for _, key := range []string{"", "/", "a/../../b"} {
		if _, err := keys.object(key); err == nil {
			t.Fatalf("object(%q) expected error", key)
		}
	}
	if got := keys.relative("tabletalk/uploads/a.parquet"); got != "uploads/a.parquet" {
		t.Fatalf("relative() = %q", got)
	}
	if got := keys.relative("elsewhere/a.parquet"); got != "elsewhere/a.parquet" {
		t.Fatalf("relative() = %q", got)
	}
}

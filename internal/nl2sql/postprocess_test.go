package nl2sql

import "testing"

func TestCleanQuery(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain", raw: "  SELECT 1  ", want: "SELECT 1"},
		{name: "tagged fence", raw: "```sql\nSELECT 1;\n```", want: "SELECT 1;"},
		{name: "bare fence", raw: "```\nSELECT 1\n```\n", want: "SELECT 1"},
		{name: "fence mid text", raw: "Here:\n```sql\nSELECT 1\n```", want: "Here:\n\nSELECT 1"},
		{name: "percent doubled", raw: "SELECT * FROM t WHERE name LIKE 'a%'", want: "SELECT * FROM t WHERE name LIKE 'a%%'"},
		{name: "only fences", raw: "```sql\n```", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanQuery(tt.raw); got != tt.want {
				t.Fatalf("CleanQuery(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExecutableQueryUndoesPercentDoubling(t *testing.T) {
	raw := "SELECT * FROM t WHERE name LIKE '%x%'"
	if got := ExecutableQuery(CleanQuery(raw)); got != raw {
		t.Fatalf("ExecutableQuery() = %q", got)
	}
}

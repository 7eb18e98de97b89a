package llm

import "testing"

func TestStripCodeFence(t *testing.T) {
	cases := map[string]string{
		"```json\n[1,2]\n```": "[1,2]",
		"```\n{\"a\":1}\n```":  `{"a":1}`,
		"  plain  ":           "plain",
	}
	for in, want := range cases {
		if got := StripCodeFence(in); got != want {
			t.Errorf("StripCodeFence(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeJSONWithProse(t *testing.T) {
	var out []struct {
		Title string `json:"title"`
	}
	content := "Here is your roadmap:\n[{\"title\":\"HTML Basics\"}]\nGood luck!"
	if err := DecodeJSON(content, &out); err != nil {
		t.Fatalf("DecodeJSON returned error: %v", err)
	}
	if len(out) != 1 || out[0].Title != "HTML Basics" {
		t.Fatalf("unexpected decode result %+v", out)
	}
}

func TestDecodeObjectsWholeArray(t *testing.T) {
	items := DecodeObjects("```json\n[{\"a\":1},{\"a\":2}]\n```")
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestDecodeObjectsWrappedArray(t *testing.T) {
	items := DecodeObjects(`{"questions":[{"a":1},{"a":2},{"a":3}]}`)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
}

func TestDecodeObjectsRepairsTrailingCommas(t *testing.T) {
	content := `{"a": 1, "list": ["x", "y",],}` + "\n" + `{"a": 2}`
	items := DecodeObjects(content)
	if len(items) != 2 {
		t.Fatalf("expected 2 repaired items, got %d", len(items))
	}
}

func TestDecodeObjectsDropsTruncatedFragment(t *testing.T) {
	content := `[{"a": 1}, {"a": 2, "list": ["x",`
	items := DecodeObjects(content)
	if len(items) != 1 {
		t.Fatalf("expected exactly 1 item, got %d", len(items))
	}
}

func TestRepairFragmentStripsControlCharacters(t *testing.T) {
	got := RepairFragment("{\"a\":\"x\x01y\"\n,}")
	if got != `{"a":"xy"}` {
		t.Fatalf("unexpected repair result %q", got)
	}
}

func TestSummarizeSnippet(t *testing.T) {
	if got := SummarizeSnippet("  "); got != "<empty>" {
		t.Fatalf("unexpected snippet %q", got)
	}
	long := make([]byte, 400)
	for i := range long {
		long[i] = 'a'
	}
	if got := SummarizeSnippet(string(long)); len(got) != 163 {
		t.Fatalf("expected truncated snippet, got length %d", len(got))
	}
}

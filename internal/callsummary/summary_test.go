package callsummary

import (
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/kolkov/calltrace/internal/tracelog"
)

func classify(texts ...string) []tracelog.Line {
	lines := make([]tracelog.Line, 0, len(texts))
	for _, text := range texts {
		lines = append(lines, tracelog.Classify(text))
	}
	return lines
}

func TestAggregate_SingleCall(t *testing.T) {
	s := Aggregate(classify(
		"[1] Entering 'f' in 'a.py'",
		"[0] Exiting 'f' in 'a.py'",
	))

	if s.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Len())
	}
	if got := s.Count("a.py | f"); got != 1 {
		t.Errorf("Count(a.py | f) = %d, want 1", got)
	}
}

func TestAggregate_FirstSeenOrder(t *testing.T) {
	s := Aggregate(classify(
		"[1] Entering 'main' in 'main.go'",
		"[1] Entering 'load' in 'store.go'",
		"[0] Exiting 'load' in 'store.go'",
		"[1] Entering 'load' in 'store.go'",
		"[1] Entering 'save' in 'store.go'",
		"[1] Entering 'load' in 'store.go'",
	))

	want := []Entry{
		{Unit: "main.go", Function: "main", Calls: 1},
		{Unit: "store.go", Function: "load", Calls: 3},
		{Unit: "store.go", Function: "save", Calls: 1},
	}
	got := s.Entries()
	if len(got) != len(want) {
		t.Fatalf("Entries() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Entries()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

// The total of a summary equals the number of well-formed Entering lines.
func TestAggregate_TotalMatchesEnteringLines(t *testing.T) {
	texts := []string{
		"[1] Entering 'a' in 'x.go'",
		"output line",
		"[1] Entering 'b' in 'x.go'",
		"[0] Exiting 'b' in 'x.go'",
		"[1] Entering 'b' in 'y.go'",
		"[0] Exiting 'b' in 'y.go'",
		"[0] Exiting 'a' in 'x.go'",
	}
	lines := classify(texts...)
	entering := 0
	for _, line := range lines {
		if line.Kind == tracelog.Entering {
			entering++
		}
	}

	s := Aggregate(lines)
	if s.Total() != entering {
		t.Errorf("Total() = %d, want %d", s.Total(), entering)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
}

func TestAggregate_SkipsMalformedLines(t *testing.T) {
	s := Aggregate(classify(
		"Entering the main loop",
		"[1] Entering 'f' in a.go",
		"[1] Entering 'g' in 'a.go'",
	))

	if s.Total() != 1 {
		t.Errorf("Total() = %d, want 1", s.Total())
	}
	if s.Count("a.go | g") != 1 {
		t.Errorf("well-formed line was not counted")
	}
}

func TestPlainLines(t *testing.T) {
	s := New()
	s.Add("a.go", "f")
	s.Add("a.go", "f")
	s.Add("b.go", "g")

	text := strings.Join(s.PlainLines(), "\n")
	for _, want := range []string{
		">>> Function Call Summary <<<",
		"a.go | f: Called 2 times",
		"b.go | g: Called 1 times",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("PlainLines() missing %q:\n%s", want, text)
		}
	}
	if strings.Index(text, "a.go | f") > strings.Index(text, "b.go | g") {
		t.Errorf("PlainLines() is not in first-seen order:\n%s", text)
	}
}

func TestMarshalJSON_Ordered(t *testing.T) {
	s := New()
	s.Add("z.go", "last")
	s.Add("a.go", "first")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal() error: %v", err)
	}
	want := `{"z.go | last":1,"a.go | first":1}`
	if string(data) != want {
		t.Errorf("json.Marshal() = %s, want %s", data, want)
	}
}

func TestMarshalYAML_Ordered(t *testing.T) {
	s := New()
	s.Add("z.go", "last")
	s.Add("z.go", "last")
	s.Add("a.go", "first")

	data, err := yaml.Marshal(s)
	if err != nil {
		t.Fatalf("yaml.Marshal() error: %v", err)
	}
	want := "z.go | last: 2\na.go | first: 1\n"
	if string(data) != want {
		t.Errorf("yaml.Marshal() = %q, want %q", data, want)
	}
}

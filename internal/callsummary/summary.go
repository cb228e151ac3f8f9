// Package callsummary counts function entries in a trace log.
//
// A Summary maps the key "unit | function" to the number of Entering lines
// seen for it. Keys keep the order in which they first appeared in the log,
// so a summary reads in execution order.
package callsummary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/linkedhashmap"
	"gopkg.in/yaml.v3"

	"github.com/kolkov/calltrace/internal/tracelog"
)

// KeySeparator joins unit and function names in a summary key.
const KeySeparator = " | "

// Key returns the summary key for a function in a unit.
func Key(unit, function string) string {
	return unit + KeySeparator + function
}

// Entry is one row of a summary.
type Entry struct {
	Unit     string `json:"unit" yaml:"unit"`
	Function string `json:"function" yaml:"function"`
	Calls    int    `json:"calls" yaml:"calls"`
}

// Key returns the entry's summary key.
func (e Entry) Key() string {
	return Key(e.Unit, e.Function)
}

// Summary is an insertion-ordered count of function entries.
//
// The zero value is not usable; create summaries with New or Aggregate.
type Summary struct {
	counts *linkedhashmap.Map
}

// New returns an empty summary.
func New() *Summary {
	return &Summary{counts: linkedhashmap.New()}
}

// Aggregate scans lines left to right and counts every Entering line.
//
// Unit and function are taken from the quote-delimited segments of the line.
// Lines with fewer than four segments are skipped.
func Aggregate(lines []tracelog.Line) *Summary {
	s := New()
	for _, line := range lines {
		if line.Kind != tracelog.Entering {
			continue
		}
		function, unit, ok := tracelog.QuotedFields(line.Text)
		if !ok {
			continue
		}
		s.Add(unit, function)
	}
	return s
}

// Add records one entry of function in unit.
func (s *Summary) Add(unit, function string) {
	key := Key(unit, function)
	s.counts.Put(key, s.Count(key)+1)
}

// Count returns the number of entries recorded for key.
func (s *Summary) Count(key string) int {
	v, found := s.counts.Get(key)
	if !found {
		return 0
	}
	return v.(int)
}

// Len returns the number of distinct functions.
func (s *Summary) Len() int {
	return s.counts.Size()
}

// Total returns the number of entries across all functions.
func (s *Summary) Total() int {
	total := 0
	for _, v := range s.counts.Values() {
		total += v.(int)
	}
	return total
}

// Keys returns the summary keys in first-seen order.
func (s *Summary) Keys() []string {
	keys := make([]string, 0, s.counts.Size())
	for _, k := range s.counts.Keys() {
		keys = append(keys, k.(string))
	}
	return keys
}

// Entries returns the summary rows in first-seen order.
func (s *Summary) Entries() []Entry {
	entries := make([]Entry, 0, s.counts.Size())
	it := s.counts.Iterator()
	for it.Next() {
		unit, function := splitKey(it.Key().(string))
		entries = append(entries, Entry{
			Unit:     unit,
			Function: function,
			Calls:    it.Value().(int),
		})
	}
	return entries
}

// PlainLines renders the summary block appended to a reformatted log.
func (s *Summary) PlainLines() []string {
	lines := []string{
		"",
		">>> Function Call Summary <<<",
		"------ Legend ------",
		"'File Name | Function Name: Called X times' indicates how many times a function was called.",
		"The summary is listed in the order functions were first called.",
		"---------------------",
		"",
	}
	for _, key := range s.Keys() {
		lines = append(lines, fmt.Sprintf("%s: Called %d times", key, s.Count(key)))
	}
	return lines
}

// MarshalJSON encodes the summary as a JSON object whose members keep
// first-seen order.
func (s *Summary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		fmt.Fprintf(&buf, ":%d", s.Count(key))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML encodes the summary as an ordered YAML mapping.
func (s *Summary) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, key := range s.Keys() {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(s.Count(key))},
		)
	}
	return node, nil
}

func splitKey(key string) (unit, function string) {
	unit, function, found := strings.Cut(key, KeySeparator)
	if !found {
		return "", key
	}
	return unit, function
}

package catalog

import "strings"

type Outcome uint8

const (
	OutcomeEmpty Outcome = iota
	OutcomeValue
	OutcomeFailed
)

type Result struct {
	Outcome Outcome
	Value   string
	Err     error
}

func Value(v string) Result {
	if strings.TrimSpace(v) == "" {
		return Result{Outcome: OutcomeEmpty}
	}
	return Result{Outcome: OutcomeValue, Value: v}
}

func Empty() Result {
	return Result{Outcome: OutcomeEmpty}
}

func Failed(err error) Result {
	return Result{Outcome: OutcomeFailed, Err: err}
}

func (r Result) OK() bool {
	return r.Outcome == OutcomeValue
}

func (r Result) Failed() bool {
	return r.Outcome == OutcomeFailed
}

func (r Result) Map(fn func(string) string) Result {
	if r.Outcome != OutcomeValue {
		return r
	}
	return Value(fn(r.Value))
}

// ExtractTag returns the text between the first <tag ...> opening and the
// next </tag. Absent or unterminated tags give an empty result.
func ExtractTag(text, tag string) Result {
	open := strings.Index(text, "<"+tag)
	if open < 0 {
		return Empty()
	}
	rest := text[open+len(tag)+1:]
	gt := strings.IndexByte(rest, '>')
	if gt < 0 {
		return Empty()
	}
	rest = rest[gt+1:]
	end := strings.Index(rest, "</"+tag)
	if end < 0 {
		return Empty()
	}
	return Value(rest[:end])
}

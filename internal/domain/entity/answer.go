package entity

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
)

// AnswerResponse is the FastGPT reply. Any part of it may be missing, so every
// field is optional and Raw always keeps the body as received.
type AnswerResponse struct {
	Data *AnswerData
	Meta *AnswerMeta
	Raw  []byte
}

type AnswerData struct {
	Output     AnswerOutput
	References []Reference
}

type Reference struct {
	Title string
	URL   string
}

type AnswerMeta struct {
	ID         string
	APIBalance float64
}

// AnswerOutput holds data.output undecoded so that absent, null, "", false
// and 0 can all be told apart from a real answer.
type AnswerOutput json.RawMessage

// Truthy reports whether the output counts as an answer. Only absent, null,
// false, "" and 0 do not.
func (o AnswerOutput) Truthy() bool {
	raw := bytes.TrimSpace(o)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case 'n', 'f':
		return false
	case 't', '{', '[':
		return true
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		return s != ""
	default:
		n, err := strconv.ParseFloat(string(raw), 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return false
		}
		return n != 0
	}
}

// Text renders the output for a chat reply. Strings are unquoted, anything
// else is rendered as its JSON text.
func (o AnswerOutput) Text() string {
	return jsonText(json.RawMessage(o))
}

// HasOutput reports whether data.output holds a usable answer.
func (r *AnswerResponse) HasOutput() bool {
	return r != nil && r.Data != nil && r.Data.Output.Truthy()
}

// RawString returns the body compacted to a single line when it is valid JSON.
func (r *AnswerResponse) RawString() string {
	if r == nil {
		return ""
	}
	return CompactJSON(r.Raw)
}

// DecodeAnswerResponse never fails: parts of the body that do not have the
// expected shape are left empty.
func DecodeAnswerResponse(body []byte) *AnswerResponse {
	resp := &AnswerResponse{Raw: body}

	var envelope struct {
		Data json.RawMessage `json:"data"`
		Meta json.RawMessage `json:"meta"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return resp
	}

	resp.Data = decodeAnswerData(envelope.Data)
	resp.Meta = decodeAnswerMeta(envelope.Meta)

	return resp
}

func decodeAnswerData(raw json.RawMessage) *AnswerData {
	fields, ok := decodeObject(raw)
	if !ok {
		return nil
	}

	return &AnswerData{
		Output:     AnswerOutput(fields["output"]),
		References: decodeReferences(fields["references"]),
	}
}

// decodeReferences keeps every element of the array in order. Elements that
// are not objects, or whose title/url have an odd type, still produce an
// entry so the numbering matches the upstream list.
func decodeReferences(raw json.RawMessage) []Reference {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}

	refs := make([]Reference, 0, len(items))
	for _, item := range items {
		fields, _ := decodeObject(item)
		refs = append(refs, Reference{
			Title: jsonText(fields["title"]),
			URL:   jsonText(fields["url"]),
		})
	}
	return refs
}

func decodeAnswerMeta(raw json.RawMessage) *AnswerMeta {
	fields, ok := decodeObject(raw)
	if !ok {
		return nil
	}

	meta := &AnswerMeta{ID: jsonText(fields["id"])}
	if balance, err := strconv.ParseFloat(jsonText(fields["api_balance"]), 64); err == nil {
		meta.APIBalance = balance
	}
	return meta
}

func decodeObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	if !isObject(raw) {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// jsonText unquotes strings, maps absent and null to "" and leaves any other
// value as its JSON text.
func jsonText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// CompactJSON returns b on one line if it is JSON, or unchanged otherwise.
func CompactJSON(b []byte) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return string(b)
	}
	return buf.String()
}

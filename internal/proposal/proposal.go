// Package proposal holds the untrusted transaction payload produced by the
// natural-language parser.
//
// A Proposal is a raw JSON object. Nothing in it is trusted until
// validator.Validate turns it into a Draft.
package proposal

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Payload keys. Alternates are accepted on read because parsers drift.
const (
	KeyDescription = "desc"
	KeyTotalAmount = "totalAmount"
	KeyPayer       = "payer"
	KeyUsers       = "users"
	KeyReasoning   = "reasoning"
)

var aliases = map[string][]string{
	KeyDescription: {"description"},
	KeyTotalAmount: {"amount", "total"},
	KeyPayer:       {"paidBy"},
	KeyUsers:       {"splits"},
}

// ErrNoJSONObject is returned when the input contains no '{'.
var ErrNoJSONObject = errors.New("response contains no JSON object")

// ParseError reports a payload that stayed unparseable after recovery.
type ParseError struct {
	Fragment string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid proposal JSON near %q: %v", e.Fragment, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Proposal is an untrusted candidate transaction.
type Proposal struct {
	raw *structpb.Struct

	// Recovered is set when the payload only parsed after closing a
	// truncated object.
	Recovered bool
}

// New wraps an existing struct. A nil struct yields an empty proposal.
func New(s *structpb.Struct) *Proposal {
	if s == nil {
		s = &structpb.Struct{Fields: map[string]*structpb.Value{}}
	}
	return &Proposal{raw: s}
}

// Fields describes a proposal assembled from already-structured input, such
// as a user's manual edit.
type Fields struct {
	Description string
	TotalAmount float64
	Payer       string
	Users       map[string]string
	Reasoning   string

	// Amounts holds numeric splits. Entries in Users take precedence.
	Amounts map[string]float64
}

// Build creates a proposal from fields. Empty strings are omitted so that the
// validator sees them as missing.
func Build(f Fields) (*Proposal, error) {
	m := map[string]any{
		KeyTotalAmount: f.TotalAmount,
	}
	if f.Description != "" {
		m[KeyDescription] = f.Description
	}
	if f.Payer != "" {
		m[KeyPayer] = f.Payer
	}
	if f.Reasoning != "" {
		m[KeyReasoning] = f.Reasoning
	}
	if len(f.Users)+len(f.Amounts) > 0 {
		users := make(map[string]any, len(f.Users)+len(f.Amounts))
		for id, amount := range f.Amounts {
			users[id] = amount
		}
		for id, amount := range f.Users {
			users[id] = amount
		}
		m[KeyUsers] = users
	}

	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, fmt.Errorf("build proposal: %w", err)
	}
	return New(s), nil
}

// Struct returns the underlying payload.
func (p *Proposal) Struct() *structpb.Struct {
	return p.raw
}

// Field returns the value stored under key or one of its aliases.
func (p *Proposal) Field(key string) (*structpb.Value, bool) {
	if v, ok := p.raw.GetFields()[key]; ok && !isNull(v) {
		return v, true
	}
	for _, alt := range aliases[key] {
		if v, ok := p.raw.GetFields()[alt]; ok && !isNull(v) {
			return v, true
		}
	}
	return nil, false
}

// Description returns the trimmed description, if present.
func (p *Proposal) Description() (string, bool) {
	return p.stringField(KeyDescription)
}

// Payer returns the payer id, if present.
func (p *Proposal) Payer() (string, bool) {
	return p.stringField(KeyPayer)
}

// Reasoning returns the narrative explanation or "".
func (p *Proposal) Reasoning() string {
	s, _ := p.stringField(KeyReasoning)
	return s
}

// TotalAmount returns the raw total value. It may be a number or a string.
func (p *Proposal) TotalAmount() (*structpb.Value, bool) {
	return p.Field(KeyTotalAmount)
}

// Users returns the raw split mapping, user id to signed amount.
func (p *Proposal) Users() (map[string]*structpb.Value, bool) {
	v, ok := p.Field(KeyUsers)
	if !ok {
		return nil, false
	}
	s := v.GetStructValue()
	if s == nil {
		return nil, false
	}
	return s.GetFields(), true
}

// JSON renders the payload as compact JSON.
func (p *Proposal) JSON() string {
	b, err := protojson.Marshal(p.raw)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func (p *Proposal) stringField(key string) (string, bool) {
	v, ok := p.Field(key)
	if !ok {
		return "", false
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", false
	}
	trimmed := strings.TrimSpace(s.StringValue)
	return trimmed, trimmed != ""
}

func isNull(v *structpb.Value) bool {
	_, null := v.GetKind().(*structpb.Value_NullValue)
	return v == nil || null
}

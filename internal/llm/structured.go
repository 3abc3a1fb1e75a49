package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

var compiledSchemas sync.Map // Schema.Name -> *jsonschema.Schema

func (s *Schema) compiled() (*jsonschema.Schema, error) {
	if c, ok := compiledSchemas.Load(s.Name); ok {
		return c.(*jsonschema.Schema), nil
	}

	raw, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	url := "mem:///" + s.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, err
	}

	actual, _ := compiledSchemas.LoadOrStore(s.Name, sch)
	return actual.(*jsonschema.Schema), nil
}

// Validate checks that raw is JSON matching the schema. Mismatches are
// reported as *ErrInvalidResponse.
func (s *Schema) Validate(raw json.RawMessage) error {
	sch, err := s.compiled()
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", s.Name, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("not JSON: %w", err)}
	}
	if err := sch.Validate(inst); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: err}
	}
	return nil
}

type validatingProvider struct {
	inner Provider
}

// WithValidation rejects truncated output and output that does not match
// the request schema.
func WithValidation(p Provider) Provider {
	return &validatingProvider{inner: p}
}

func (v *validatingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := v.inner.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Truncated {
		return nil, &ErrMaxTokensExceeded{Content: resp.Content}
	}
	if req.Schema != nil {
		if err := req.Schema.Validate(resp.Content); err != nil {
			return nil, err
		}
	}
	return resp, nil
}

func (v *validatingProvider) ModelID() string { return v.inner.ModelID() }

// GenerateJSON runs req and decodes the output into a T.
func GenerateJSON[T any](ctx context.Context, p Provider, req Request) (*T, *Response, error) {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	out := new(T)
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return nil, resp, &ErrInvalidResponse{Content: resp.Content, Err: err}
	}
	return out, resp, nil
}

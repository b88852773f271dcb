package schema

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	js "github.com/santhosh-tekuri/jsonschema/v5"
)

// Compiler validates wire documents against JSON schemas, caching compiled
// schemas by content.
type Compiler struct {
	compiler *js.Compiler
	cache    *expirable.LRU[string, *js.Schema]
	named    map[string]map[string]interface{}
}

// NewCompilerWithCache creates a compiler that knows the portal's wire schemas
func NewCompilerWithCache(maxSize int) *Compiler {
	c := js.NewCompiler()
	c.Draft = js.Draft2020

	return &Compiler{
		compiler: c,
		cache:    expirable.NewLRU[string, *js.Schema](maxSize, nil, time.Hour),
		named: map[string]map[string]interface{}{
			Submission:  submissionSchema,
			FormState:   formStateSchema,
			Declaration: declarationSchema,
		},
	}
}

func (c *Compiler) key(schema map[string]interface{}) (string, []byte, error) {
	b, err := json.Marshal(schema)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	sum := sha256.Sum256(b)
	return fmt.Sprintf("%x", sum[:8]), b, nil
}

// Prepare compiles and caches a schema
func (c *Compiler) Prepare(ctx context.Context, schema map[string]interface{}) (*js.Schema, error) {
	key, schemaBytes, err := c.key(schema)
	if err != nil {
		return nil, err
	}
	if compiled, ok := c.cache.Get(key); ok {
		return compiled, nil
	}

	resourceURL := fmt.Sprintf("mem://schema/%s.json", key)
	if err := c.compiler.AddResource(resourceURL, bytes.NewReader(schemaBytes)); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}

	compiled, err := c.compiler.Compile(resourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	c.cache.Add(key, compiled)
	return compiled, nil
}

// Validate checks a value against one of the built-in schemas
func (c *Compiler) Validate(ctx context.Context, name string, value interface{}) error {
	schema, ok := c.named[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	return c.ValidateAgainst(ctx, schema, value)
}

// ValidateAgainst checks a value against an arbitrary schema
func (c *Compiler) ValidateAgainst(ctx context.Context, schema map[string]interface{}, value interface{}) error {
	compiled, err := c.Prepare(ctx, schema)
	if err != nil {
		return err
	}

	// round-trip through JSON so typed values validate like decoded ones
	valueBytes, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	var valueRaw interface{}
	if err := json.Unmarshal(valueBytes, &valueRaw); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}

	if err := compiled.Validate(valueRaw); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

package parser

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pable/go-cricket-metrics/internal/model"
)

var ErrSchema = errors.New("document does not match schema")

//go:embed schema.json
var schemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Hash returns the hex SHA-256 of a document. It is the match id, so
// ingesting the same bytes twice is detected as a duplicate.
func Hash(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// Issue is one schema violation.
type Issue struct {
	Field       string
	Description string
}

func (i Issue) String() string { return i.Field + ": " + i.Description }

// SchemaError lists every violation found in a document.
type SchemaError struct {
	Issues []Issue
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		parts = append(parts, i.String())
	}
	return fmt.Sprintf("%v: %s", ErrSchema, strings.Join(parts, "; "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// Validate checks data against the embedded match document schema.
func Validate(data []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	se := &SchemaError{}
	for _, re := range res.Errors() {
		se.Issues = append(se.Issues, Issue{Field: re.Field(), Description: re.Description()})
	}
	return se
}

// Parse decodes a match document. When validate is set the document is first
// checked against the schema.
func Parse(data []byte, validate bool) (*model.MatchDocument, error) {
	if validate {
		if err := Validate(data); err != nil {
			return nil, err
		}
	}
	var doc model.MatchDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return &doc, nil
}

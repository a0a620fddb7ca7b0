package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Response schema names, one file each under schemas/.
const (
	schemaTaxPosition = "tax_position"
	schemaHealth      = "health"
	schemaProblem     = "problem"
)

// responseSchemas holds the compiled response contracts.
type responseSchemas struct {
	byName map[string]*jsonschema.Schema
}

func compileResponseSchemas() (*responseSchemas, error) {
	names := []string{schemaTaxPosition, schemaHealth, schemaProblem}
	rs := &responseSchemas{byName: make(map[string]*jsonschema.Schema, len(names))}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	for _, name := range names {
		data, err := schemaFS.ReadFile("schemas/" + name + ".schema.json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		url := schemaURL(name)
		if err := c.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("load schema %s: %w", name, err)
		}
	}
	for _, name := range names {
		compiled, err := c.Compile(schemaURL(name))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		rs.byName[name] = compiled
	}
	return rs, nil
}

func schemaURL(name string) string {
	return "https://taxledger.local/schemas/" + name + ".schema.json"
}

// encode marshals body and checks it against the named schema.
func (rs *responseSchemas) encode(name string, body any) ([]byte, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s response: %w", name, err)
	}

	schema, ok := rs.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown response schema %q", name)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", name, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%s response violates schema: %w", name, err)
	}
	return data, nil
}

// writeJSON writes body with status after checking it against its schema.
// A body that fails the check is replaced by a 500 problem.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, schema string, body any) {
	data, err := s.schemas.encode(schema, body)
	if err != nil {
		s.logger.Error("response contract violated", "path", r.URL.Path, "error", err)
		writeProblem(w, newProblem(r, http.StatusInternalServerError, internalDetail))
		return
	}

	contentType := "application/json"
	if schema == schemaProblem {
		contentType = problemContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

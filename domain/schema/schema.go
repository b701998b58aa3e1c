// Package schema validates catalog entries before any file is read.
package schema

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/faktion/registry/domain/catalog"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schemas/registry-item.schema.json
var schemaBytes []byte

const schemaURL = "registry-item.schema.json"

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
)

// Reason identifies why an entry was rejected.
type Reason string

const (
	ReasonNone        Reason = ""
	ReasonMissingName Reason = "missing_name"
	ReasonNoFiles     Reason = "no_files"
	ReasonInvalidPath Reason = "invalid_path"
	ReasonSchema      Reason = "schema_violation"
)

// Issue is a single validation problem.
type Issue struct {
	Path    string // instance location, e.g. "/files/0/path"
	Message string
	Keyword string
}

// Result is the tagged outcome of Validate.
type Result struct {
	Valid  bool
	Reason Reason
	Issues []Issue
}

// Summary joins the issues into one line for logs.
func (r Result) Summary() string {
	if r.Valid {
		return ""
	}
	parts := make([]string, 0, len(r.Issues))
	for _, is := range r.Issues {
		if is.Path != "" {
			parts = append(parts, is.Path+": "+is.Message)
		} else {
			parts = append(parts, is.Message)
		}
	}
	if len(parts) == 0 {
		return string(r.Reason)
	}
	return strings.Join(parts, "; ")
}

// Validator checks entries against the registry item schema.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	schema  *jsonschema.Schema
	printer *message.Printer
}

// NewValidator compiles the embedded schema (once per process).
func NewValidator() (*Validator, error) {
	s, err := getSchema()
	if err != nil {
		return nil, err
	}
	return &Validator{
		schema:  s,
		printer: message.NewPrinter(language.English),
	}, nil
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshal schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(schemaURL, doc); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// Validate checks the entry. It performs no I/O and never panics; every
// failure is reported through the Result.
func (v *Validator) Validate(e catalog.Entry) Result {
	if strings.TrimSpace(e.Name) == "" {
		return reject(ReasonMissingName, Issue{Path: "/name", Message: "name is required", Keyword: "required"})
	}

	if len(e.Files) == 0 {
		return reject(ReasonNoFiles, Issue{Path: "/files", Message: "at least one file is required", Keyword: "minItems"})
	}

	var pathIssues []Issue
	for i, f := range e.Files {
		if !IsLocalPath(f.Path) {
			pathIssues = append(pathIssues, Issue{
				Path:    fmt.Sprintf("/files/%d/path", i),
				Message: fmt.Sprintf("%q is not a relative path inside the registry", f.Path),
				Keyword: "path",
			})
		}
	}
	if len(pathIssues) > 0 {
		return Result{Reason: ReasonInvalidPath, Issues: pathIssues}
	}

	raw, err := e.RawJSON()
	if err != nil {
		return reject(ReasonSchema, Issue{Message: err.Error()})
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return reject(ReasonSchema, Issue{Message: err.Error()})
	}

	err = v.schema.Validate(inst)
	if err == nil {
		return Result{Valid: true}
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return reject(ReasonSchema, Issue{Message: err.Error()})
	}
	return Result{Reason: ReasonSchema, Issues: v.issues(ve)}
}

// IsLocalPath reports whether p is a non-empty relative path that stays
// within its root.
func IsLocalPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return false
	}
	return filepath.IsLocal(filepath.FromSlash(p))
}

func reject(reason Reason, issue Issue) Result {
	return Result{Reason: reason, Issues: []Issue{issue}}
}

// issues walks the error tree and returns the leaf problems.
func (v *Validator) issues(ve *jsonschema.ValidationError) []Issue {
	var out []Issue
	v.collect(ve, &out)
	if len(out) == 0 {
		return []Issue{{Message: ve.Error()}}
	}

	seen := make(map[string]bool, len(out))
	deduped := out[:0]
	for _, is := range out {
		k := is.Path + "|" + is.Keyword + "|" + is.Message
		if seen[k] {
			continue
		}
		seen[k] = true
		deduped = append(deduped, is)
	}
	return deduped
}

func (v *Validator) collect(ve *jsonschema.ValidationError, out *[]Issue) {
	if len(ve.Causes) > 0 {
		for _, c := range ve.Causes {
			v.collect(c, out)
		}
		return
	}

	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}

	keyword, msg := "", ""
	if ve.ErrorKind != nil {
		if kw := ve.ErrorKind.KeywordPath(); len(kw) > 0 {
			keyword = kw[len(kw)-1]
		}
		msg = ve.ErrorKind.LocalizedString(v.printer)
	}

	// container keywords carry no detail of their own
	if keyword == "" || keyword == "allOf" || keyword == "oneOf" || keyword == "$ref" {
		return
	}

	*out = append(*out, Issue{Path: path, Message: msg, Keyword: keyword})
}

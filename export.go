package agentrun

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// SchemaFileName returns the file name a function's schema is exported to.
func SchemaFileName(name string) string {
	return name + ".schema.json"
}

// ExportSchema writes fn's schema as indented JSON to dir/<name>.schema.json,
// creating dir when needed, and returns the written path. The schema must
// compile as JSON Schema; an invalid one is reported and nothing is written.
func ExportSchema(fn Function, dir string) (string, error) {
	schema := fn.Schema()
	if _, err := compileArgumentSchema(schema); err != nil {
		return "", fmt.Errorf("schema for %q is not valid JSON Schema: %w", fn.Name(), err)
	}
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema for %q: %w", fn.Name(), err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create schema dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, SchemaFileName(fn.Name()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write schema %s: %w", path, err)
	}
	return path, nil
}

// ExportSchemas exports every registered function. When dir is empty each
// function goes to its own schema directory (see WithSchemaDir), falling back
// to DefaultSchemaDir. A failing function is logged and skipped; all failures
// are returned joined. Successful writes are logged only for functions built
// with WithFunctionLog(true).
func (r *Registry) ExportSchemas(ctx context.Context, dir string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	var errs []error
	for _, fn := range r.GetAll() {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		target := dir
		if target == "" {
			target = DefaultSchemaDir
			if sl, ok := fn.(SchemaLocator); ok && sl.SchemaDir() != "" {
				target = sl.SchemaDir()
			}
		}
		path, err := ExportSchema(fn, target)
		if err != nil {
			logger.ErrorContext(ctx, "schema export failed", "function", fn.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		if el, ok := fn.(ExportLogger); ok && el.LogEnabled() {
			logger.InfoContext(ctx, "schema written", "function", fn.Name(), "path", path)
		}
	}
	return errors.Join(errs...)
}

// Package filter selects which operations become tools.
//
// An operation survives when it passes every dimension (method, path, tag,
// operation id). Within a dimension, excludes win over includes, and an
// empty include set lets everything through. Methods default to GET.
package filter

import (
	"regexp"
	"strings"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// Options is the raw operator input, as collected from flags, environment
// and the config file. Repeated flags are already merged into one list.
type Options struct {
	Methods             []string `toml:"methods"`
	Paths               []string `toml:"paths"`
	ExcludePaths        []string `toml:"exclude_paths"`
	Tags                []string `toml:"tags"`
	ExcludeTags         []string `toml:"exclude_tags"`
	OperationIDs        []string `toml:"operation_ids"`
	ExcludeOperationIDs []string `toml:"exclude_operation_ids"`
}

// Config is a validated, immutable filter.
type Config struct {
	methods             map[models.Method]struct{}
	includePaths        []*Pattern
	excludePaths        []*Pattern
	includeTags         map[string]struct{}
	excludeTags         map[string]struct{}
	includeOperationIDs map[string]struct{}
	excludeOperationIDs map[string]struct{}
}

// NewConfig validates opts. Unknown methods and empty patterns or names are
// ConfigErrors; nothing is filtered until the whole config is valid.
// Method entries may be comma separated ("GET,POST").
func NewConfig(opts Options) (*Config, error) {
	c := &Config{methods: map[models.Method]struct{}{}}

	for _, raw := range splitAll(opts.Methods) {
		m, ok := models.ParseMethod(raw)
		if !ok {
			return nil, apperrors.Config("unknown HTTP method", raw)
		}
		c.methods[m] = struct{}{}
	}
	if len(c.methods) == 0 {
		c.methods[models.MethodGet] = struct{}{}
	}

	var err error
	if c.includePaths, err = compileAll(opts.Paths, "paths"); err != nil {
		return nil, err
	}
	if c.excludePaths, err = compileAll(opts.ExcludePaths, "exclude_paths"); err != nil {
		return nil, err
	}
	if c.includeTags, err = toSet(opts.Tags, "tags"); err != nil {
		return nil, err
	}
	if c.excludeTags, err = toSet(opts.ExcludeTags, "exclude_tags"); err != nil {
		return nil, err
	}
	if c.includeOperationIDs, err = toSet(opts.OperationIDs, "operation_ids"); err != nil {
		return nil, err
	}
	if c.excludeOperationIDs, err = toSet(opts.ExcludeOperationIDs, "exclude_operation_ids"); err != nil {
		return nil, err
	}
	return c, nil
}

// Methods returns the effective method set in canonical order.
func (c *Config) Methods() []models.Method {
	var out []models.Method
	for _, m := range models.Methods {
		if _, ok := c.methods[m]; ok {
			out = append(out, m)
		}
	}
	return out
}

// Select returns the operations that pass every dimension, in input order.
func Select(ops []models.Operation, c *Config) []models.Operation {
	out := make([]models.Operation, 0, len(ops))
	for _, op := range ops {
		if c.Match(op) {
			out = append(out, op)
		}
	}
	return out
}

// Match reports whether op passes every dimension of c.
func (c *Config) Match(op models.Operation) bool {
	return c.matchMethod(op) && c.matchPath(op) && c.matchTags(op) && c.matchOperationID(op)
}

func (c *Config) matchMethod(op models.Operation) bool {
	_, ok := c.methods[op.Method]
	return ok
}

func (c *Config) matchPath(op models.Operation) bool {
	for _, p := range c.excludePaths {
		if p.Match(op.Path) {
			return false
		}
	}
	if len(c.includePaths) == 0 {
		return true
	}
	for _, p := range c.includePaths {
		if p.Match(op.Path) {
			return true
		}
	}
	return false
}

func (c *Config) matchTags(op models.Operation) bool {
	if op.HasTag(c.excludeTags) {
		return false
	}
	return len(c.includeTags) == 0 || op.HasTag(c.includeTags)
}

func (c *Config) matchOperationID(op models.Operation) bool {
	// sets never hold "", so operations without an id only fail a non-empty include set
	if _, excluded := c.excludeOperationIDs[op.OperationID]; excluded {
		return false
	}
	if len(c.includeOperationIDs) == 0 {
		return true
	}
	_, ok := c.includeOperationIDs[op.OperationID]
	return ok
}

// Pattern is a compiled glob. "*" matches any run of characters, including
// "/". Everything else matches literally and case-sensitively against the
// whole path.
type Pattern struct {
	glob string
	re   *regexp.Regexp
}

// Compile compiles a glob pattern.
func Compile(glob string) (*Pattern, error) {
	if glob == "" {
		return nil, apperrors.Config("empty path pattern", "")
	}
	parts := strings.Split(glob, "*")
	for i, part := range parts {
		parts[i] = regexp.QuoteMeta(part)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return nil, apperrors.Config("invalid path pattern", glob)
	}
	return &Pattern{glob: glob, re: re}, nil
}

// Match reports whether path matches the whole pattern.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

func (p *Pattern) String() string { return p.glob }

func compileAll(globs []string, field string) ([]*Pattern, error) {
	out := make([]*Pattern, 0, len(globs))
	for _, g := range globs {
		p, err := Compile(strings.TrimSpace(g))
		if err != nil {
			if e, ok := err.(*apperrors.Error); ok && e.Details == "" {
				e.Details = field
			}
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func toSet(values []string, field string) (map[string]struct{}, error) {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, apperrors.Config("empty value", field)
		}
		set[v] = struct{}{}
	}
	return set, nil
}

func splitAll(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

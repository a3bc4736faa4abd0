package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

func op(method models.Method, path, id string, tags ...string) models.Operation {
	return models.Operation{Method: method, Path: path, OperationID: id, Tags: tags}
}

var sample = []models.Operation{
	op(models.MethodGet, "/documents", "listDocuments", "documents"),
	op(models.MethodPost, "/documents", "createDocument", "documents"),
	op(models.MethodGet, "/documents/{id}", "", "documents"),
	op(models.MethodDelete, "/documents/{id}", "deleteDocument", "documents", "admin"),
	op(models.MethodGet, "/admin/users", "listUsers", "admin"),
	op(models.MethodGet, "/health", ""),
}

func mustConfig(t *testing.T, opts Options) *Config {
	t.Helper()
	c, err := NewConfig(opts)
	require.NoError(t, err)
	return c
}

func keys(ops []models.Operation) []string {
	out := make([]string, 0, len(ops))
	for _, o := range ops {
		out = append(out, o.Key())
	}
	return out
}

func TestDefaultSelectsOnlyGet(t *testing.T) {
	got := Select(sample, mustConfig(t, Options{}))
	for _, o := range got {
		assert.Equal(t, models.MethodGet, o.Method)
	}
	assert.Len(t, got, 4)
}

func TestMethodsCommaSeparatedAndCaseInsensitive(t *testing.T) {
	c := mustConfig(t, Options{Methods: []string{"get,Post", "delete"}})
	assert.Equal(t, []models.Method{models.MethodGet, models.MethodPost, models.MethodDelete}, c.Methods())
	assert.Len(t, Select(sample, c), len(sample))
}

func TestUnknownMethodIsConfigError(t *testing.T) {
	_, err := NewConfig(Options{Methods: []string{"GET", "FETCH"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "FETCH")
}

func TestEmptyPatternIsConfigError(t *testing.T) {
	_, err := NewConfig(Options{ExcludePaths: []string{""}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))

	_, err = NewConfig(Options{Tags: []string{" "}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))
}

func TestExcludeDominatesInclude(t *testing.T) {
	c := mustConfig(t, Options{
		Methods:      []string{"GET", "DELETE"},
		Paths:        []string{"/documents*"},
		ExcludePaths: []string{"/documents/*"},
	})
	assert.Equal(t, []string{"GET /documents"}, keys(Select(sample, c)))

	// same pattern in both sets
	c = mustConfig(t, Options{Paths: []string{"/health"}, ExcludePaths: []string{"/health"}})
	assert.Empty(t, Select(sample, c))

	c = mustConfig(t, Options{Methods: []string{"GET", "DELETE"}, Tags: []string{"documents"}, ExcludeTags: []string{"admin"}})
	assert.Equal(t, []string{"GET /documents", "GET /documents/{id}"}, keys(Select(sample, c)))

	c = mustConfig(t, Options{OperationIDs: []string{"listUsers"}, ExcludeOperationIDs: []string{"listUsers"}})
	assert.Empty(t, Select(sample, c))
}

func TestTagDimension(t *testing.T) {
	c := mustConfig(t, Options{Tags: []string{"admin"}})
	assert.Equal(t, []string{"GET /admin/users"}, keys(Select(sample, c)))

	c = mustConfig(t, Options{ExcludeTags: []string{"documents"}})
	// untagged operations pass an exclude-only tag filter
	assert.Equal(t, []string{"GET /admin/users", "GET /health"}, keys(Select(sample, c)))
}

func TestOperationIDDimension(t *testing.T) {
	c := mustConfig(t, Options{Methods: []string{"GET", "POST"}, OperationIDs: []string{"createDocument", "listUsers"}})
	assert.Equal(t, []string{"POST /documents", "GET /admin/users"}, keys(Select(sample, c)))

	// the method dimension still applies to explicitly included ids
	c = mustConfig(t, Options{OperationIDs: []string{"deleteDocument"}})
	assert.Empty(t, Select(sample, c))

	c = mustConfig(t, Options{ExcludeOperationIDs: []string{"listDocuments"}})
	assert.Equal(t, []string{"GET /documents/{id}", "GET /admin/users", "GET /health"}, keys(Select(sample, c)))
}

func TestSelectPreservesOrder(t *testing.T) {
	c := mustConfig(t, Options{Methods: []string{"DELETE", "GET"}})
	assert.Equal(t, []string{
		"GET /documents",
		"GET /documents/{id}",
		"DELETE /documents/{id}",
		"GET /admin/users",
		"GET /health",
	}, keys(Select(sample, c)))
}

func TestGlobMatching(t *testing.T) {
	cases := []struct {
		glob  string
		path  string
		match bool
	}{
		{"/admin/*", "/admin/users", true},
		{"/admin/*", "/admin/users/1", true},
		{"/admin/*", "/adminx/users", false},
		{"/admin/*", "/admin", false},
		{"/documents", "/documents", true},
		{"/documents", "/documents/1", false},
		{"/Documents", "/documents", false},
		{"*/{id}", "/documents/{id}", true},
		{"/v1.0/*", "/v1x0/items", false},
		{"/a*c", "/abbbc", true},
		{"*", "/anything/at/all", true},
	}
	for _, tc := range cases {
		p, err := Compile(tc.glob)
		require.NoError(t, err)
		assert.Equal(t, tc.match, p.Match(tc.path), "%s vs %s", tc.glob, tc.path)
	}
}

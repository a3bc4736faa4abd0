package openapi2mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/client"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

type fakeDoer struct {
	calls []*client.Request
	resp  *client.Response
	err   error
}

func (f *fakeDoer) Do(_ context.Context, req *client.Request) (*client.Response, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &client.Response{StatusCode: http.StatusOK, Body: []byte(`{}`)}, nil
}

func generateOne(t *testing.T, doer client.Doer, op models.Operation, opts *ToolGenOptions) *Tool {
	t.Helper()
	tools, err := NewGenerator(doer, opts).Generate([]models.Operation{op})
	require.NoError(t, err)
	require.Len(t, tools, 1)
	return tools[0]
}

var getDocument = models.Operation{
	Method:     models.MethodGet,
	Path:       "/documents/{doc_id}",
	Parameters: []models.Parameter{pathParam("doc_id")},
}

func TestInvokeSubstitutesPathOnce(t *testing.T) {
	doer := &fakeDoer{}
	tool := generateOne(t, doer, getDocument, nil)

	res, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "123"})
	require.NoError(t, err)
	assert.False(t, res.IsError())
	require.Len(t, doer.calls, 1)
	assert.Equal(t, "/documents/123", doer.calls[0].Path)
	assert.NotContains(t, doer.calls[0].Path, "{")
}

func TestInvokeEscapesPathValues(t *testing.T) {
	doer := &fakeDoer{}
	tool := generateOne(t, doer, getDocument, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "a/b c"})
	require.NoError(t, err)
	assert.Equal(t, "/documents/a%2Fb%20c", doer.calls[0].Path)

	op := models.Operation{Method: models.MethodGet, Path: "/groups/{group-id}", Parameters: []models.Parameter{pathParam("group-id")}}
	doer = &fakeDoer{}
	tool = generateOne(t, doer, op, nil)
	_, err = tool.Invoke(context.Background(), map[string]any{"group-id": "x/y"})
	require.NoError(t, err)
	assert.Equal(t, "/groups/x%2Fy", doer.calls[0].Path)
}

func TestInvokeMissingPathParameterMakesNoCall(t *testing.T) {
	doer := &fakeDoer{}
	tool := generateOne(t, doer, getDocument, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvocation(err, apperrors.MissingParameter))
	var invErr *apperrors.InvocationError
	require.True(t, errors.As(err, &invErr))
	assert.Equal(t, "doc_id", invErr.Parameter)
	assert.Empty(t, doer.calls)

	_, err = tool.Invoke(context.Background(), nil)
	assert.True(t, apperrors.IsInvocation(err, apperrors.MissingParameter))
	assert.Empty(t, doer.calls)
}

func TestInvokeQueryAndHeaders(t *testing.T) {
	op := models.Operation{
		Method: models.MethodGet,
		Path:   "/documents",
		Parameters: []models.Parameter{
			{Name: "limit", In: models.InQuery, Type: models.TypeInteger},
			{Name: "tag", In: models.InQuery, Type: models.TypeArray, Items: models.TypeString},
			{Name: "filter[owner]", In: models.InQuery, Type: models.TypeString},
			{Name: "unused", In: models.InQuery, Type: models.TypeString},
			{Name: "X-Tenant", In: models.InHeader, Required: true, Type: models.TypeString},
		},
	}
	doer := &fakeDoer{}
	tool := generateOne(t, doer, op, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{
		"limit":         float64(10),
		"tag":           []any{"a", "b"},
		"filter_owner_": "me",
		"X-Tenant":      "acme",
		"not_a_param":   "ignored",
	})
	require.NoError(t, err)
	req := doer.calls[0]
	assert.Equal(t, "10", req.Query.Get("limit"))
	assert.Equal(t, []string{"a", "b"}, req.Query["tag"])
	assert.Equal(t, "me", req.Query.Get("filter[owner]"))
	assert.NotContains(t, req.Query, "unused")
	assert.Equal(t, "acme", req.Header.Get("X-Tenant"))

	_, err = tool.Invoke(context.Background(), map[string]any{"limit": 1})
	assert.True(t, apperrors.IsInvocation(err, apperrors.MissingParameter))
	assert.Len(t, doer.calls, 1)
}

func TestInvokeSameNameInDifferentLocations(t *testing.T) {
	op := models.Operation{
		Method: models.MethodGet,
		Path:   "/items/{id}",
		Parameters: []models.Parameter{
			pathParam("id"),
			{Name: "id", In: models.InQuery, Type: models.TypeString},
			{Name: "id", In: models.InHeader, Type: models.TypeString},
		},
	}
	doer := &fakeDoer{}
	tool := generateOne(t, doer, op, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{
		"id":        "5",
		"query_id":  "x",
		"header_id": "y",
	})
	require.NoError(t, err)
	require.Len(t, doer.calls, 1)
	req := doer.calls[0]
	assert.Equal(t, "/items/5", req.Path)
	assert.Equal(t, "x", req.Query.Get("id"))
	assert.Equal(t, "y", req.Header.Get("id"))
}

func TestInvokeRejectsInvalidValues(t *testing.T) {
	op := models.Operation{
		Method:     models.MethodGet,
		Path:       "/documents",
		Parameters: []models.Parameter{{Name: "limit", In: models.InQuery, Type: models.TypeInteger}},
	}
	doer := &fakeDoer{}
	tool := generateOne(t, doer, op, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{"limit": 1.5})
	assert.True(t, apperrors.IsInvocation(err, apperrors.InvalidArgument))
	assert.Empty(t, doer.calls)
}

var createDocument = models.Operation{
	Method: models.MethodPost,
	Path:   "/documents",
	RequestBody: &models.RequestBody{
		Required:    true,
		ContentType: "application/json",
		Schema: map[string]any{
			"type":       "object",
			"required":   []string{"title"},
			"properties": map[string]any{"title": map[string]any{"type": "string"}},
		},
	},
}

func TestInvokeBody(t *testing.T) {
	doer := &fakeDoer{}
	tool := generateOne(t, doer, createDocument, nil)

	_, err := tool.Invoke(context.Background(), map[string]any{"body": map[string]any{"title": "x"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x"}`, string(doer.calls[0].Body))
	assert.Equal(t, "application/json", doer.calls[0].Header.Get("Content-Type"))

	_, err = tool.Invoke(context.Background(), map[string]any{"body": map[string]any{"title": 5}})
	assert.True(t, apperrors.IsInvocation(err, apperrors.InvalidArgument))

	_, err = tool.Invoke(context.Background(), map[string]any{})
	assert.True(t, apperrors.IsInvocation(err, apperrors.MissingParameter))
	assert.Len(t, doer.calls, 1)
}

func TestInvokeIgnoresBodyWithoutBodySchema(t *testing.T) {
	doer := &fakeDoer{}
	tool := generateOne(t, doer, getDocument, nil)
	_, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "1", "body": map[string]any{"x": 1}})
	require.NoError(t, err)
	assert.Nil(t, doer.calls[0].Body)
}

func TestInvokeRemoteFailures(t *testing.T) {
	doer := &fakeDoer{resp: &client.Response{StatusCode: http.StatusNotFound, Body: []byte("not found")}}
	tool := generateOne(t, doer, getDocument, nil)

	res, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	require.True(t, res.IsError())
	assert.Equal(t, "API request failed with status 404", res.Failure.Error)
	require.NotNil(t, res.Failure.StatusCode)
	assert.Equal(t, 404, *res.Failure.StatusCode)
	assert.Equal(t, "not found", *res.Failure.Response)
	assert.JSONEq(t, `{"error":"API request failed with status 404","status_code":404,"response":"not found"}`, res.Text())

	doer = &fakeDoer{err: errors.New("connection refused")}
	tool = generateOne(t, doer, getDocument, nil)
	res, err = tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":"Failed to execute API request: connection refused","status_code":null,"response":null}`, res.Text())
}

func TestInvokeSuccessBodies(t *testing.T) {
	doer := &fakeDoer{resp: &client.Response{StatusCode: 200, Body: []byte(`{"id": 12345678901234567890, "ok": true}`)}}
	tool := generateOne(t, doer, getDocument, nil)
	res, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, `{"id": 12345678901234567890, "ok": true}`, res.Text())
	assert.Equal(t, json.Number("12345678901234567890"), res.Data.(map[string]any)["id"])

	doer.resp = &client.Response{StatusCode: 200, Body: []byte("plain text")}
	res, err = tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, "plain text", res.Text())

	doer.resp = &client.Response{StatusCode: 204}
	res, err = tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"success","status_code":204}`, res.Text())
}

func TestInvokeExcludesAttributes(t *testing.T) {
	doer := &fakeDoer{resp: &client.Response{StatusCode: 200, Body: []byte(
		`{"user":{"name":"a","email":"x"},"items":[{"id":1,"secret":"s"},{"id":2}],"token":"t"}`)}}
	tool := generateOne(t, doer, getDocument, &ToolGenOptions{ExcludeAttributes: []string{"user.email", "items.secret", "token", "missing.path"}})

	res, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":{"name":"a"},"items":[{"id":1},{"id":2}]}`, res.Text())
}

func TestInvokeAgainstHTTPServer(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if strings.HasSuffix(r.URL.Path, "/missing") {
			http.Error(w, `{"detail":"missing"}`, http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"42"}`))
	}))
	defer srv.Close()

	api, err := client.New(client.Config{BaseURL: srv.URL, BasePath: "/api", Token: "tok"})
	require.NoError(t, err)
	tool := generateOne(t, api, getDocument, nil)

	res, err := tool.Invoke(context.Background(), map[string]any{"doc_id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/documents/42", gotPath)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.JSONEq(t, `{"id":"42"}`, res.Text())

	res, err = tool.Invoke(context.Background(), map[string]any{"doc_id": "missing"})
	require.NoError(t, err)
	assert.Equal(t, 404, res.StatusCode)
	assert.True(t, bytes.Contains([]byte(*res.Failure.Response), []byte("missing")))
}

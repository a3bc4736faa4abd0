package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

const documentsYAML = `
openapi: 3.0.3
info:
  title: Documents API
  version: "1.2"
servers:
  - url: https://{region}.example.com/v1
    variables:
      region:
        default: eu
paths:
  /documents:
    get:
      operationId: listDocuments
      tags: [documents]
      summary: List documents
      parameters:
        - name: limit
          in: query
          schema:
            type: integer
        - name: tag
          in: query
          schema:
            type: array
            items:
              type: string
      responses:
        200:
          description: A page of documents
    post:
      tags: [documents]
      requestBody:
        required: true
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Document'
      responses:
        "201":
          description: Created
  /documents/{id}:
    parameters:
      - name: id
        in: path
        required: true
        schema:
          type: string
      - name: X-Trace
        in: header
        schema:
          type: string
    delete:
      parameters:
        - name: X-Trace
          in: header
          required: true
          description: overridden
          schema:
            type: string
      responses:
        "204":
          description: Deleted
    get:
      parameters:
        - name: session
          in: cookie
          schema:
            type: string
      responses:
        "200":
          description: One document
    trace:
      responses:
        "200":
          description: ignored
components:
  schemas:
    Document:
      type: object
      required: [title]
      properties:
        title:
          type: string
        parent:
          $ref: '#/components/schemas/Document'
`

func TestParseOpenAPI3(t *testing.T) {
	spec, err := ParseData([]byte(documentsYAML))
	require.NoError(t, err)

	assert.Equal(t, "openapi3", spec.Dialect)
	assert.Equal(t, "Documents API", spec.Title)
	assert.Equal(t, "https://eu.example.com/v1", spec.DefaultBaseURL)

	var keys []string
	for _, op := range spec.Operations {
		keys = append(keys, op.Key())
	}
	// document order, trace skipped
	assert.Equal(t, []string{
		"GET /documents",
		"POST /documents",
		"DELETE /documents/{id}",
		"GET /documents/{id}",
	}, keys)

	list := spec.Operations[0]
	assert.Equal(t, "listDocuments", list.OperationID)
	assert.Equal(t, "A page of documents", list.ReturnsDescription)
	require.Len(t, list.Parameters, 2)
	assert.Equal(t, models.TypeInteger, list.Parameters[0].Type)
	assert.Equal(t, models.TypeArray, list.Parameters[1].Type)
	assert.Equal(t, models.TypeString, list.Parameters[1].Items)

	create := spec.Operations[1]
	require.NotNil(t, create.RequestBody)
	assert.True(t, create.RequestBody.Required)
	assert.Equal(t, "object", create.RequestBody.Schema["type"])
	props := create.RequestBody.Schema["properties"].(map[string]any)
	parent := props["parent"].(map[string]any)
	assert.Contains(t, parent["description"], "Recursive reference")
}

func TestParseMergesPathParameters(t *testing.T) {
	spec, err := ParseData([]byte(documentsYAML))
	require.NoError(t, err)

	del := spec.Operations[2]
	require.Len(t, del.Parameters, 2)
	// operation-level header first, overriding the path-level definition
	assert.Equal(t, "X-Trace", del.Parameters[0].Name)
	assert.True(t, del.Parameters[0].Required)
	assert.Equal(t, "overridden", del.Parameters[0].Description)
	assert.Equal(t, "id", del.Parameters[1].Name)
	assert.Equal(t, models.InPath, del.Parameters[1].In)
	assert.True(t, del.Parameters[1].Required)

	get := spec.Operations[3]
	for _, p := range get.Parameters {
		assert.NotEqual(t, "session", p.Name, "cookie parameters are skipped")
	}
	assert.Nil(t, get.RequestBody)
}

func TestParseUndeclaredPathPlaceholder(t *testing.T) {
	doc := `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /items/{id}/parts/{part}:
    get:
      operationId: getPart
      parameters:
        - name: part
          in: path
          required: true
          schema: {type: integer}
      responses:
        "200": {description: ok}
`
	spec, err := ParseData([]byte(doc))
	require.NoError(t, err)
	require.Len(t, spec.Operations, 1)

	params := spec.Operations[0].Parameters
	require.Len(t, params, 2)
	assert.Equal(t, "part", params[0].Name)
	assert.Equal(t, models.TypeInteger, params[0].Type)
	assert.Equal(t, "id", params[1].Name)
	assert.Equal(t, models.InPath, params[1].In)
	assert.True(t, params[1].Required)
	assert.Equal(t, models.TypeString, params[1].Type)
}

const petstoreSwagger = `{
  "swagger": "2.0",
  "info": {"title": "Petstore", "version": "1.0"},
  "host": "petstore.example.com",
  "basePath": "/api/",
  "schemes": ["https", "http"],
  "paths": {
    "/pets/{petId}": {
      "get": {
        "operationId": "getPet",
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "type": "integer"}
        ],
        "responses": {"200": {"description": "A pet", "schema": {"$ref": "#/definitions/Pet"}}}
      },
      "put": {
        "parameters": [
          {"name": "petId", "in": "path", "required": true, "type": "integer"},
          {"name": "pet", "in": "body", "schema": {"$ref": "#/definitions/Pet"}}
        ],
        "responses": {"200": {"description": "Updated"}}
      }
    }
  },
  "definitions": {
    "Pet": {"type": "object", "properties": {"name": {"type": "string"}}}
  }
}`

func TestParseSwagger2(t *testing.T) {
	spec, err := ParseData([]byte(petstoreSwagger))
	require.NoError(t, err)

	assert.Equal(t, "swagger2", spec.Dialect)
	assert.Equal(t, "https://petstore.example.com", spec.DefaultBaseURL)
	assert.Equal(t, "/api", spec.BasePath)
	require.Len(t, spec.Operations, 2)

	get := spec.Operations[0]
	assert.Equal(t, models.MethodGet, get.Method)
	require.Len(t, get.Parameters, 1)
	assert.Equal(t, models.TypeInteger, get.Parameters[0].Type)

	put := spec.Operations[1]
	require.NotNil(t, put.RequestBody)
	assert.Equal(t, "object", put.RequestBody.Schema["type"])
}

func TestParseUnresolvedReference(t *testing.T) {
	doc := `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /a:
    get:
      parameters:
        - $ref: '#/components/parameters/Missing'
      responses:
        "200": {description: ok}
`
	_, err := ParseData([]byte(doc))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), "#/components/parameters/Missing")
}

func TestParseReferenceCycle(t *testing.T) {
	doc := `
openapi: 3.0.0
info: {title: t, version: "1"}
paths: {}
components:
  schemas:
    A:
      $ref: '#/components/schemas/B'
    B:
      $ref: '#/components/schemas/A'
`
	_, err := ParseData([]byte(doc))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
	assert.Contains(t, err.Error(), "cycle")
}

func TestParseExternalReference(t *testing.T) {
	doc := `
openapi: 3.0.0
info: {title: t, version: "1"}
paths:
  /a:
    get:
      responses:
        "200":
          $ref: 'other.yaml#/responses/ok'
`
	_, err := ParseData([]byte(doc))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeSchema))
}

func TestParseNotStructuredData(t *testing.T) {
	_, err := ParseData([]byte("{not: [valid"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))

	_, err = ParseData([]byte("just a string"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))

	_, err = ParseData([]byte("title: no version field"))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

func TestParseFromFileAndURL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(documentsYAML), 0o600))

	spec, err := Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, spec.Source)
	assert.Len(t, spec.Operations, 4)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/openapi.json" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"openapi":"3.0.0","info":{"title":"t","version":"1"},"servers":[{"url":"/v2"}],"paths":{}}`))
	}))
	defer srv.Close()

	spec, err = Parse(context.Background(), srv.URL+"/openapi.json")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/v2", spec.DefaultBaseURL)

	_, err = Parse(context.Background(), srv.URL+"/missing.json")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

func TestParseTooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(documentsYAML), 0o600))

	_, err := Parse(context.Background(), path, WithMaxSize(64))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

type fakeStore map[string][]byte

func (s fakeStore) SpecContent(_ context.Context, name string) ([]byte, error) {
	if data, ok := s[name]; ok {
		return data, nil
	}
	return nil, errors.New("spec not found")
}

func TestParseFromStore(t *testing.T) {
	store := fakeStore{"petstore": []byte(petstoreSwagger)}

	spec, err := Parse(context.Background(), "store:petstore", WithStore(store))
	require.NoError(t, err)
	assert.Equal(t, "Petstore", spec.Title)

	_, err = Parse(context.Background(), "store:other", WithStore(store))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))

	_, err = Parse(context.Background(), "store:petstore")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeLoad))
}

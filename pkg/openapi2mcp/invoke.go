package openapi2mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"github.com/yosida95/uritemplate/v3"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/client"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

// ErrorResult is the wire shape of a failed upstream call.
type ErrorResult struct {
	Error      string  `json:"error"`
	StatusCode *int    `json:"status_code"`
	Response   *string `json:"response"`
}

// Result is the outcome of an invocation that reached the upstream API or
// failed trying to.
type Result struct {
	// StatusCode is 0 when no HTTP response was received.
	StatusCode int
	// Data is the decoded JSON body (numbers as json.Number) or the raw text.
	Data    any
	Failure *ErrorResult

	text string
}

// IsError reports a remote failure.
func (r *Result) IsError() bool { return r.Failure != nil }

// Text renders the result for the tool caller: the response body verbatim
// for JSON and text, or the error object.
func (r *Result) Text() string { return r.text }

// Invoke calls the upstream API with args. Argument problems are returned
// as *apperrors.InvocationError before any request is sent; upstream
// failures are returned as a Result with Failure set, never as an error.
func (t *Tool) Invoke(ctx context.Context, args map[string]any) (*Result, error) {
	req, err := t.buildRequest(args)
	if err != nil {
		return nil, err
	}

	resp, err := t.api.Do(ctx, req)
	if err != nil {
		return failure(fmt.Sprintf("Failed to execute API request: %v", err), nil, nil), nil
	}
	if !resp.OK() {
		status := resp.StatusCode
		body := string(resp.Body)
		return failure(fmt.Sprintf("API request failed with status %d", status), &status, &body), nil
	}
	return t.success(resp), nil
}

func (t *Tool) buildRequest(args map[string]any) (*client.Request, error) {
	if args == nil {
		args = map[string]any{}
	}
	req := &client.Request{
		Method: t.Operation.Method,
		Query:  url.Values{},
		Header: http.Header{},
	}

	pathValues := map[string]string{}
	for _, a := range t.args {
		raw, present := args[a.key]
		if !present || raw == nil {
			if a.param.Required || a.param.In == models.InPath {
				return nil, apperrors.Missing(t.Name, a.key)
			}
			continue
		}
		v, err := models.Convert(a.param.Type, a.param.Items, raw)
		if err != nil {
			return nil, apperrors.Invalid(t.Name, a.key, err.Error())
		}
		switch a.param.In {
		case models.InPath:
			pathValues[a.param.Name] = v.String()
		case models.InQuery:
			for _, s := range v.QueryValues() {
				req.Query.Add(a.param.Name, s)
			}
		case models.InHeader:
			req.Header.Set(a.param.Name, v.String())
		}
	}

	path, err := t.expandPath(pathValues)
	if err != nil {
		return nil, err
	}
	req.Path = path

	if rb := t.Operation.RequestBody; rb != nil {
		raw, present := args[BodyField]
		switch {
		case present && raw != nil:
			body, err := t.encodeBody(raw)
			if err != nil {
				return nil, err
			}
			req.Body = body
			if rb.ContentType != "" && !strings.Contains(rb.ContentType, "*") {
				req.Header.Set("Content-Type", rb.ContentType)
			}
		case rb.Required:
			return nil, apperrors.Missing(t.Name, BodyField)
		}
	}
	return req, nil
}

// expandPath substitutes every placeholder exactly once. Values are
// percent-encoded so they cannot introduce new path segments.
func (t *Tool) expandPath(values map[string]string) (string, error) {
	if t.template != nil {
		vars := uritemplate.Values{}
		for name, v := range values {
			vars.Set(name, uritemplate.String(v))
		}
		for _, name := range t.template.Varnames() {
			if _, ok := values[name]; !ok {
				return "", apperrors.Missing(t.Name, name)
			}
		}
		expanded, err := t.template.Expand(vars)
		if err != nil {
			return "", apperrors.Invalid(t.Name, "", err.Error())
		}
		return expanded, nil
	}

	path := t.Operation.Path
	for name, v := range values {
		path = strings.Replace(path, "{"+name+"}", url.PathEscape(v), 1)
	}
	if i := strings.Index(path, "{"); i >= 0 {
		if j := strings.Index(path[i:], "}"); j > 0 {
			return "", apperrors.Missing(t.Name, path[i+1:i+j])
		}
	}
	return path, nil
}

func (t *Tool) encodeBody(raw any) ([]byte, error) {
	if t.body != nil {
		res, err := t.body.Validate(gojsonschema.NewGoLoader(raw))
		if err != nil {
			return nil, apperrors.Invalid(t.Name, BodyField, err.Error())
		}
		if !res.Valid() {
			msgs := make([]string, 0, len(res.Errors()))
			for _, e := range res.Errors() {
				msgs = append(msgs, e.String())
			}
			return nil, apperrors.Invalid(t.Name, BodyField, strings.Join(msgs, "; "))
		}
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, apperrors.Invalid(t.Name, BodyField, err.Error())
	}
	return body, nil
}

func (t *Tool) success(resp *client.Response) *Result {
	res := &Result{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		res.Data = map[string]any{"status": "success", "status_code": resp.StatusCode}
		res.text = fmt.Sprintf(`{"status":"success","status_code":%d}`, resp.StatusCode)
		return res
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil || dec.More() {
		res.Data = string(resp.Body)
		res.text = string(resp.Body)
		return res
	}
	res.Data = data
	res.text = string(resp.Body)

	if len(t.exclude) > 0 {
		for _, path := range t.exclude {
			removeAttribute(data, path)
		}
		if b, err := json.Marshal(data); err == nil {
			res.text = string(b)
		}
	}
	return res
}

func failure(msg string, status *int, response *string) *Result {
	f := &ErrorResult{Error: msg, StatusCode: status, Response: response}
	res := &Result{Failure: f}
	if status != nil {
		res.StatusCode = *status
	}
	b, _ := json.Marshal(f)
	res.text = string(b)
	return res
}

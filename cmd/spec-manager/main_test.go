package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ubermorgenland/swagger-mcp/pkg/apperrors"
	"github.com/ubermorgenland/swagger-mcp/pkg/models"
)

func TestPrintSpecs(t *testing.T) {
	var buf bytes.Buffer
	printSpecs(&buf, nil, "No specs found in the database.")
	assert.Equal(t, "No specs found in the database.\n", buf.String())

	buf.Reset()
	title := "A very long API title that will not fit"
	rec := models.NewSpecRecord("weather", []byte("openapi: 3.0.0"))
	rec.ID = 3
	rec.Title = &title
	printSpecs(&buf, []*models.SpecRecord{rec}, "")
	out := buf.String()
	assert.Contains(t, out, "weather")
	assert.Contains(t, out, "A very long API title that ...")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "yaml")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 7))
	assert.Equal(t, "exactly", truncate("exactly", 7))
	assert.Equal(t, "héll...", truncate("héllo wörld", 4))
	assert.Equal(t, "天気予報...", truncate("天気予報サービス", 4))
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	rec := models.NewSpecRecord("pets", nil)
	assert.NoError(t, report(&buf, []*models.SpecRecord{rec}, nil))
	assert.Contains(t, buf.String(), "1 imported, 0 failed")

	buf.Reset()
	err := report(&buf, nil, map[string]error{"b.yaml": errors.New("bad"), "a.yaml": errors.New("worse")})
	assert.Error(t, err)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("a.yaml")), bytes.Index(buf.Bytes(), []byte("b.yaml")))
}

func TestResolveDatabaseURL(t *testing.T) {
	databaseURL = ""
	t.Setenv("DATABASE_URL", "")
	_, err := resolveDatabaseURL()
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfig))

	t.Setenv("DATABASE_URL", "postgres://env")
	url, err := resolveDatabaseURL()
	assert.NoError(t, err)
	assert.Equal(t, "postgres://env", url)

	databaseURL = "postgres://flag"
	t.Cleanup(func() { databaseURL = "" })
	url, _ = resolveDatabaseURL()
	assert.Equal(t, "postgres://flag", url)
}

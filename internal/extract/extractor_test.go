package extract_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dumpshift/internal/extract"
)

const rewritten = `CREATE TABLE "usuario" (
  "id" bigint NOT NULL
) ;

INSERT INTO "usuario" VALUES (1,'Ana'),
(2,'Luis');
insert into "servicio" VALUES (1,'Corte');
INSERT  INTO
  "usuario" VALUES (3,'Eva');
INSERT INTO usuario VALUES (4,'unquoted');
`

func TestExtract_Completeness(t *testing.T) {
	ex, err := extract.NewExtractor("")
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO", ex.Keyword())

	res := ex.Extract(rewritten)
	require.True(t, res.Found())
	require.Len(t, res.Statements, 3)

	assert.Equal(t, "INSERT INTO \"usuario\" VALUES (1,'Ana'),\n(2,'Luis');", res.Statements[0].Text)
	assert.Equal(t, "usuario", res.Statements[0].Table)
	assert.Equal(t, "servicio", res.Statements[1].Table)
	assert.Equal(t, 2, res.Statements[2].Index)
	assert.True(t, strings.HasPrefix(res.Statements[2].Text, "INSERT  INTO\n  \"usuario\""))
	assert.Equal(t, []string{"usuario", "servicio"}, res.Tables())
}

func TestExtract_TruncatesAtEmbeddedTerminator(t *testing.T) {
	ex, err := extract.NewExtractor("INSERT INTO")
	require.NoError(t, err)

	res := ex.Extract(`INSERT INTO "nota" VALUES (1,'a;b');`)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, `INSERT INTO "nota" VALUES (1,'a;`, res.Statements[0].Text)
}

func TestExtract_NoStatements(t *testing.T) {
	ex, err := extract.NewExtractor("INSERT INTO")
	require.NoError(t, err)

	res := ex.Extract("CREATE TABLE \"t\" (id int);")
	assert.False(t, res.Found())
	assert.Empty(t, res.Tables())
}

func TestExtract_OtherKeyword(t *testing.T) {
	ex, err := extract.NewExtractor("create   table")
	require.NoError(t, err)
	assert.Equal(t, "create table", ex.Keyword())

	res := ex.Extract(rewritten)
	require.Len(t, res.Statements, 1)
	assert.Equal(t, "usuario", res.Statements[0].Table)
}

func TestWriteStatements(t *testing.T) {
	ex, err := extract.NewExtractor("")
	require.NoError(t, err)
	res := ex.Extract(`INSERT INTO "a" VALUES (1); INSERT INTO "b" VALUES (2);`)

	var buf bytes.Buffer
	require.NoError(t, extract.WriteStatements(&buf, res, extract.DefaultHeader))
	assert.Equal(t,
		"-- INSERT statements for PostgreSQL\n"+
			"-- Generated automatically from MySQL\n"+
			"\n"+
			"INSERT INTO \"a\" VALUES (1);\n"+
			"INSERT INTO \"b\" VALUES (2);\n",
		buf.String())

	buf.Reset()
	require.NoError(t, extract.WriteStatements(&buf, res, nil))
	assert.Equal(t, "INSERT INTO \"a\" VALUES (1);\nINSERT INTO \"b\" VALUES (2);\n", buf.String())
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docquery"
	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/blobstore"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/internal/docio"
	"github.com/hupe1980/docquery/optimizer"
	"github.com/hupe1980/docquery/value"
)

const usersJSON = `[
  {"_key": "ada", "name": "Ada", "age": 36, "city": "london", "loc": [51.5072, -0.1276], "bio": "mathematician and writer"},
  {"_key": "alan", "name": "Alan", "age": 41, "city": "london", "loc": [52.2053, 0.1218], "bio": "mathematician and codebreaker"},
  {"_key": "grace", "name": "Grace", "age": 85, "city": "new york", "loc": [40.7128, -74.0060], "bio": "computer scientist"},
  {"_key": "edsger", "name": "Edsger", "age": 72, "city": "austin", "loc": [30.2672, -97.7431], "bio": "computer scientist and writer"}
]`

func writeSource(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decodeResult(t *testing.T, out string) docquery.Result {
	t.Helper()
	var res docquery.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	return res
}

func resultKeys(res docquery.Result) []string {
	out := make([]string, len(res.Documents))
	for i, d := range res.Documents {
		out[i], _ = d["_key"].AsString()
	}
	return out
}

func queryArg(t *testing.T, q docquery.Query) string {
	t.Helper()
	b, err := json.Marshal(q)
	require.NoError(t, err)
	return string(b)
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		decl    string
		want    index.Descriptor
		wantErr bool
	}{
		{decl: "hash:email", want: index.Descriptor{Kind: index.KindHash, Fields: []string{"email"}}},
		{decl: "skiplist:a, b:unique", want: index.Descriptor{Kind: index.KindSkiplist, Fields: []string{"a", "b"}, Unique: true}},
		{decl: "bitarray:tag", want: index.Descriptor{Kind: index.KindBitarray, Fields: []string{"tag"}}},
		{decl: "geo:loc", want: index.Descriptor{Kind: index.KindGeo1, Fields: []string{"loc"}}},
		{decl: "geo:loc:geojson", want: index.Descriptor{Kind: index.KindGeo1, Fields: []string{"loc"}, GeoJSON: true}},
		{decl: "geo:lat,lon", want: index.Descriptor{Kind: index.KindGeo2, Fields: []string{"lat", "lon"}}},
		{decl: "fulltext:bio:substrings", want: index.Descriptor{Kind: index.KindFulltext, Fields: []string{"bio"}, Substrings: true}},
		{decl: "hash", wantErr: true},
		{decl: "hash:", wantErr: true},
		{decl: "btree:a", wantErr: true},
		{decl: "bitarray:tag:unique", wantErr: true},
		{decl: "hash:a:b:c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			got, err := parseIndex(tt.decl)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "users", collectionName("dumps/users.jsonl.zst"))
	assert.Equal(t, "users", collectionName("users.json"))
	assert.Equal(t, "users", collectionName("users"))
	assert.Equal(t, "users", collectionName("dumps/users/"))
	assert.Equal(t, ".hidden", collectionName(".hidden"))
}

func TestExecuteCommand(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))
	q := queryArg(t, docquery.Query{
		Variable: "u",
		Filter:   ast.Gt(ast.Path("u.age"), ast.ConstOf(40)),
		Sort:     []optimizer.SortKey{{Attribute: "age"}},
	})

	out, err := run(t, "execute", "--source", src, "--index", "skiplist:age", q)
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, []string{"alan", "edsger", "grace"}, resultKeys(res))
	assert.Equal(t, 3, res.Total)

	out, err = run(t, "explain", "--source", src, "--index", "skiplist:age", q)
	require.NoError(t, err)
	assert.Contains(t, out, "skiplist#1[age]")
	assert.Contains(t, out, "(index order)")
}

func TestExampleCommand(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))

	out, err := run(t, "example", "--source", src, `{"city": "london"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "alan"}, resultKeys(decodeResult(t, out)))

	out, err = run(t, "example", "--source", src, "--index", "hash:city", "--id", "1", "--limit", "1", `{"city": "london"}`)
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Count)

	_, err = run(t, "example", "--source", src, "--index", "geo:loc", "--id", "1", `{"city": "london"}`)
	assert.ErrorIs(t, err, docquery.ErrNoIndex)
}

func TestConditionCommand(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))

	out, err := run(t, "condition", "--source", src, "--index", "skiplist:age", `{"age": [[">=", 41], ["<", 80]]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"alan", "edsger"}, resultKeys(decodeResult(t, out)))

	out, err = run(t, "condition", "--source", src, "--index", "bitarray:city", `{"not": {"==": {"city": "london"}}}`)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"grace", "edsger"}, resultKeys(decodeResult(t, out)))

	_, err = run(t, "condition", "--source", src, `{"age": [[">", 1]]}`)
	assert.ErrorIs(t, err, docquery.ErrNoIndex)
}

func TestGeoCommands(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))

	out, err := run(t, "near", "--source", src, "--index", "geo:loc", "--limit", "2", "51.5", "-0.12")
	require.NoError(t, err)
	res := decodeResult(t, out)
	assert.Equal(t, []string{"ada", "alan"}, resultKeys(res))
	assert.Len(t, res.Distances, 2)

	out, err = run(t, "within", "--source", src, "--index", "geo:loc", "51.5", "-0.12", "100000")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "alan"}, resultKeys(decodeResult(t, out)))

	out, err = run(t, "near", "--source", src, "--index", "geo:loc", "--limit", "1", "-30.27", "-97.74")
	require.NoError(t, err)
	assert.Equal(t, []string{"edsger"}, resultKeys(decodeResult(t, out)))

	out, err = run(t, "within", "--source", src, "--index", "geo:loc", "-33.87", "151.21", "1000")
	require.NoError(t, err)
	assert.Empty(t, decodeResult(t, out).Documents)

	_, err = run(t, "near", "--source", src, "--index", "geo:loc", "north", "0")
	assert.ErrorIs(t, err, docquery.ErrBadParameter)
}

func TestFulltextCommand(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))

	out, err := run(t, "fulltext", "--source", src, "--index", "fulltext:bio", "mathematician,writer")
	require.NoError(t, err)
	assert.Equal(t, []string{"ada"}, resultKeys(decodeResult(t, out)))
}

func TestIndexesCommand(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))

	out, err := run(t, "indexes", "--source", src, "--index", "hash:city", "--index", "skiplist:age:unique")
	require.NoError(t, err)
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "hash")
	assert.Contains(t, out, "skiplist")
	assert.Contains(t, out, "true")
}

func TestCompressedSource(t *testing.T) {
	docs, err := docio.ReadAll(bytes.NewReader([]byte(usersJSON)), docio.CompressionNone)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := docio.NewWriter(&buf, docio.CompressionZstd)
	require.NoError(t, err)
	require.NoError(t, docio.WriteLines(w, docs))
	require.NoError(t, w.Close())
	src := writeSource(t, "users.jsonl.zst", buf.Bytes())

	out, err := run(t, "example", "--source", src, `{"age": 85}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"grace"}, resultKeys(decodeResult(t, out)))
}

func TestDirectorySource(t *testing.T) {
	docs, err := docio.ReadAll(bytes.NewReader([]byte(usersJSON)), docio.CompressionNone)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "users")
	require.NoError(t, os.Mkdir(dir, 0o700))
	for i, part := range [][]value.Document{docs[:2], docs[2:]} {
		var buf bytes.Buffer
		require.NoError(t, docio.WriteLines(&buf, part))
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("part-%d.jsonl", i)), buf.Bytes(), 0o600))
	}

	out, err := run(t, "example", "--source", dir+"/", `{"city": "london"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"ada", "alan"}, resultKeys(decodeResult(t, out)))

	out, err = run(t, "indexes", "--source", dir+"/", "--log-level", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "primary")

	_, err = run(t, "execute", "--source", t.TempDir()+"/", "{}")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestConfigFileSource(t *testing.T) {
	src := writeSource(t, "users.json", []byte(usersJSON))
	cfg := writeSource(t, "docquery.yaml", []byte("source: "+src+"\nindexes:\n  - hash:city\nlog_level: error\n"))

	out, err := run(t, "example", "--config", cfg, "--id", "1", `{"city": "austin"}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"edsger"}, resultKeys(decodeResult(t, out)))
}

func TestCommandErrors(t *testing.T) {
	_, err := run(t, "execute", "{}")
	assert.ErrorContains(t, err, "no source")

	src := writeSource(t, "users.json", []byte(usersJSON))
	_, err = run(t, "execute", "--source", src, "not json")
	assert.ErrorIs(t, err, docquery.ErrBadParameter)

	_, err = run(t, "execute", "--source", src, "--log-format", "xml", "{}")
	assert.ErrorContains(t, err, "log format")

	_, err = run(t, "execute", "--source", filepath.Join(t.TempDir(), "missing.json"), "{}")
	assert.Error(t, err)

	_, err = run(t, "example", "--source", src, `[1, 2]`)
	assert.ErrorIs(t, err, docquery.ErrBadParameter)
}

package records

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const singleRecord = `{
	"id": 1,
	"competitorNames": ["Beta"],
	"analysis": {
		"products": {"brand": ["Acme Cloud"]},
		"keywords": [{"keyword": "pricing"}],
		"sentiment": {"brand": {"label": "NEGATIVE"}},
		"quotes": [{"text": "too expensive", "entity": "Beta", "sentiment": "NEGATIVE"}]
	}
}`

func TestLoadFile(t *testing.T) {
	t.Parallel()

	t.Run("SingleObject", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "one.json", singleRecord)

		recs, err := LoadFile(filepath.Join(dir, "one.json"))

		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, int64(1), recs[0].ID)
		assert.Equal(t, []string{"Beta"}, recs[0].CompetitorNames)
		assert.Equal(t, []string{"Acme Cloud"}, recs[0].Analysis.Products.Brand)
		require.NotNil(t, recs[0].Analysis.Sentiment.Brand)
		assert.Equal(t, "NEGATIVE", recs[0].Analysis.Sentiment.Brand.Label)
	})

	t.Run("Array", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "batch.json", `[`+singleRecord+`, {"id": 2}]`)

		recs, err := LoadFile(filepath.Join(dir, "batch.json"))

		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, int64(2), recs[1].ID)
		assert.Nil(t, recs[1].Analysis.Sentiment.Brand)
	})

	t.Run("Malformed", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "bad.json", `{not json`)

		_, err := LoadFile(filepath.Join(dir, "bad.json"))

		assert.Error(t, err)
	})

	t.Run("Missing", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFile(filepath.Join(t.TempDir(), "gone.json"))

		assert.Error(t, err)
	})
}

func TestLoadDir(t *testing.T) {
	t.Parallel()

	t.Run("LoadsRecursively", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "a.json", singleRecord)
		writeFile(t, dir, "sub/b.json", `[{"id": 2}, {"id": 3}]`)
		writeFile(t, dir, "notes.txt", "not a record")

		recs, err := LoadDir(dir)

		require.NoError(t, err)
		assert.Len(t, recs, 3)
		// Lexical file order: a.json before sub/b.json.
		assert.Equal(t, int64(1), recs[0].ID)
		assert.Equal(t, int64(2), recs[1].ID)
	})

	t.Run("SkipsMalformedFiles", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, "bad.json", `{broken`)
		writeFile(t, dir, "good.json", singleRecord)

		recs, err := LoadDir(dir)

		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("HonorsIgnoreFile", func(t *testing.T) {
		t.Parallel()
		dir := t.TempDir()
		writeFile(t, dir, IgnoreFile, "drafts/\nskipme.json\n")
		writeFile(t, dir, "keep.json", singleRecord)
		writeFile(t, dir, "skipme.json", singleRecord)
		writeFile(t, dir, "drafts/ignored.json", singleRecord)

		recs, err := LoadDir(dir)

		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("EmptyDir", func(t *testing.T) {
		t.Parallel()

		recs, err := LoadDir(t.TempDir())

		require.NoError(t, err)
		assert.Empty(t, recs)
	})
}

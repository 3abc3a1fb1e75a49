package dataset

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storiesCSV = `id,title,text,final_difficulty
1,Cat,"The cat sat on the mat.",easy
2,Moon,"The moon rose slowly over the quiet hills, casting long shadows.",medium
3,Blank,"   ",easy
4,Atoms,"Subatomic particles exhibit wave-particle duality under observation.",hard
5,Dog,"A dog ran.",
`

func TestRead(t *testing.T) {
	ds, err := Read(strings.NewReader(storiesCSV), DefaultColumns())
	require.NoError(t, err)

	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, 1, ds.Skipped)
	assert.True(t, ds.HasLabelColumn())
	assert.Equal(t, "The cat sat on the mat.", ds.Rows[0].Text)
	assert.Equal(t, []string{"easy", "medium", "hard", ""}, ds.Labels())
	assert.Equal(t, []string{"easy", "hard", "medium"}, ds.Classes())
	assert.Equal(t, []int{3}, ds.Unlabeled())
}

func TestRead_MissingTextColumn(t *testing.T) {
	_, err := Read(strings.NewReader("body,final_difficulty\nx,easy\n"), DefaultColumns())

	var missing *ErrMissingColumn
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "text", missing.Column)
	assert.Equal(t, []string{"body", "final_difficulty"}, missing.Available)
}

func TestRead_MissingLabelColumnIsUnlabeled(t *testing.T) {
	ds, err := Read(strings.NewReader("text\nhello there\n"), DefaultColumns())
	require.NoError(t, err)
	assert.False(t, ds.HasLabelColumn())

	_, err = ds.Labeled()
	assert.ErrorIs(t, err, ErrEmpty)

	var missing *ErrMissingColumn
	require.ErrorAs(t, ds.RequireLabelColumn(), &missing)
	assert.Equal(t, "final_difficulty", missing.Column)
	assert.Equal(t, []string{"text"}, missing.Available)
}

func TestRead_RejectsRecordsWiderThanHeader(t *testing.T) {
	_, err := Read(strings.NewReader("text,final_difficulty\na cat,easy\na dog,easy,extra\n"), DefaultColumns())
	require.ErrorIs(t, err, ErrTooManyFields)
	assert.ErrorContains(t, err, "line 3")

	ds, err := Read(strings.NewReader("id,text,final_difficulty\n1,a cat\n"), DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, []int{0}, ds.Unlabeled())
}

func TestRead_EmptyInput(t *testing.T) {
	_, err := Read(strings.NewReader(""), DefaultColumns())
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRead_StripsBOMAndCustomColumns(t *testing.T) {
	data := "\ufeffpassage,level\nOnce upon a time.,2\n"
	ds, err := Read(strings.NewReader(data), Columns{Text: "passage", Label: "level"})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "2", ds.Rows[0].Label)
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), DefaultColumns())
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLabeledAndHead(t *testing.T) {
	ds, err := Read(strings.NewReader(storiesCSV), DefaultColumns())
	require.NoError(t, err)

	labeled, err := ds.Labeled()
	require.NoError(t, err)
	assert.Equal(t, 3, labeled.Len())

	assert.Len(t, labeled.Head(2), 2)
	assert.Len(t, labeled.Head(10), 3)
	assert.Empty(t, labeled.Head(-1))
}

func TestWriteCSV_RoundTripKeepsExtraColumns(t *testing.T) {
	ds, err := Read(strings.NewReader(storiesCSV), DefaultColumns())
	require.NoError(t, err)

	ds.Rows[3].Label = "easy"
	ds.Rows[3].Source = "llm"

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))

	out, err := Read(bytes.NewReader(buf.Bytes()), DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "title", "text", "final_difficulty", LabelSourceColumn}, out.Header)
	assert.Equal(t, "easy", out.Rows[3].Label)
	assert.Equal(t, "Dog", out.Rows[3].Fields[1])
	assert.Equal(t, "llm", out.Rows[3].Fields[4])
}

func TestWriteCSV_AddsLabelColumn(t *testing.T) {
	ds, err := Read(strings.NewReader("text\nhello there\n"), DefaultColumns())
	require.NoError(t, err)
	ds.Rows[0].Label = "easy"

	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))
	assert.Equal(t, "text,final_difficulty\nhello there,easy\n", buf.String())
}

func TestSave_CreatesDirectories(t *testing.T) {
	ds, err := Read(strings.NewReader(storiesCSV), DefaultColumns())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, ds.Save(path))

	again, err := Load(path, DefaultColumns())
	require.NoError(t, err)
	assert.Equal(t, ds.Texts(), again.Texts())
}

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dvloznov/statement-converter/internal/config"
	"github.com/dvloznov/statement-converter/internal/export"
	"github.com/dvloznov/statement-converter/internal/gcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	data    map[string][]byte
	uploads map[string]string
}

func (f *fakeStore) Fetch(ctx context.Context, uri string) ([]byte, error) {
	d, ok := f.data[uri]
	if !ok {
		return nil, errors.New("object not found")
	}
	return d, nil
}

func (f *fakeStore) Upload(ctx context.Context, bucket, object, contentType string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if f.uploads == nil {
		f.uploads = map[string]string{}
	}
	f.uploads[bucket+"/"+object] = string(b)
	return nil
}

func storeOf(s gcs.ObjectStore) storeFunc {
	return func(ctx context.Context) (gcs.ObjectStore, error) { return s, nil }
}

func noStore(ctx context.Context) (gcs.ObjectStore, error) {
	return nil, errors.New("storage not available")
}

func TestReadInput_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junho.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	name, data, err := readInput(context.Background(), path, noStore)
	require.NoError(t, err)
	assert.Equal(t, "junho.pdf", name)
	assert.Equal(t, []byte("%PDF"), data)
}

func TestReadInput_MissingFile(t *testing.T) {
	_, _, err := readInput(context.Background(), filepath.Join(t.TempDir(), "none.pdf"), noStore)
	assert.Error(t, err)
}

func TestReadInput_GCS(t *testing.T) {
	store := &fakeStore{data: map[string][]byte{"gs://extratos/2024/julho.pdf": []byte("%PDF julho")}}

	name, data, err := readInput(context.Background(), "gs://extratos/2024/julho.pdf", storeOf(store))
	require.NoError(t, err)
	assert.Equal(t, "julho.pdf", name)
	assert.Equal(t, []byte("%PDF julho"), data)
}

func TestResolveSink(t *testing.T) {
	var stdout bytes.Buffer

	sink, describe, err := resolveSink("-", &stdout, noStore)
	require.NoError(t, err)
	assert.IsType(t, export.WriterSink{}, sink)
	assert.Equal(t, "a.xlsx", describe("a.xlsx"))

	dir := t.TempDir()
	sink, describe, err = resolveSink(dir, &stdout, noStore)
	require.NoError(t, err)
	assert.Equal(t, export.DirSink{Dir: dir}, sink)
	assert.Equal(t, filepath.Join(dir, "a.xlsx"), describe("a.xlsx"))

	store := &fakeStore{}
	sink, describe, err = resolveSink("gs://relatorios/saida", &stdout, storeOf(store))
	require.NoError(t, err)
	require.NoError(t, sink.Save(context.Background(), "a.xlsx", export.ContentType, strings.NewReader("x")))
	assert.Equal(t, "x", store.uploads["relatorios/saida/a.xlsx"])
	assert.Equal(t, "gs://relatorios/saida/a.xlsx", describe("a.xlsx"))

	_, _, err = resolveSink("gs://relatorios", &stdout, noStore)
	assert.Error(t, err)
}

func TestConvert_RequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"convert", "--env-file", filepath.Join(t.TempDir(), "none.env"), "extrato.pdf"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	assert.ErrorIs(t, err, config.ErrMissingAPIKey)
}

func TestExtract_RejectsNonPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nota.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o600))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extract", "--env-file", filepath.Join(t.TempDir(), "none.env"), path})
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	assert.Error(t, cmd.Execute())
	assert.Empty(t, out.String())
}

func TestConvert_ModelComesFromConfigOnly(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "key")

	cmd := newRootCmd()
	cmd.SetArgs([]string{"convert", "--model", "gemini-pro", "extrato.pdf"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag: --model")
}

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/require"
)

func writeGzFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dump.jsonl.gz")
	f, err := os.Create(path)
	require.NoError(t, err)

	gz := pgzip.NewWriter(f)
	_, err = gz.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	return path
}

func TestStreamGzLinesNumbersBlankLines(t *testing.T) {
	path := writeGzFile(t, "first\n\nthird\n\n\nsixth\n")

	type seen struct {
		lineNo int
		text   string
	}
	var got []seen
	err := streamGzLines(context.Background(), path, func(lineNo int, line []byte) error {
		got = append(got, seen{lineNo, string(line)})
		return nil
	})
	require.NoError(t, err)

	want := []seen{
		{1, "first"},
		{3, "third"},
		{6, "sixth"},
	}
	require.Equal(t, want, got)
}

func TestParseProduct(t *testing.T) {
	line := []byte(`{"sku":"ART-01","name":"Lamba","description":"Woven wrap","price":"45.00","promo_price":"39.00","stock":20}`)

	p, err := parseProduct(line)
	require.NoError(t, err)
	require.Equal(t, "ART-01", p.SKU)
	require.Equal(t, "Lamba", p.Name)
	require.Equal(t, "45.00", p.Price.StringFixed(2))
	require.NotNil(t, p.PromoPrice)
	require.Equal(t, "39.00", p.PromoPrice.StringFixed(2))
	require.Equal(t, 20, p.Stock)
}

func TestParseProductNullPromo(t *testing.T) {
	line := []byte(`{"sku":"ART-02","name":"Basket","description":"","price":"30.00","promo_price":null,"stock":5}`)

	p, err := parseProduct(line)
	require.NoError(t, err)
	require.Nil(t, p.PromoPrice)
}

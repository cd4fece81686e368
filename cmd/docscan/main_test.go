package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePhoto(t *testing.T, dir, name string, page bool) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 200, 150))
	for y := 0; y < 150; y++ {
		for x := 0; x < 200; x++ {
			c := color.RGBA{30, 30, 35, 255}
			if page && x >= 30 && x <= 170 && y >= 20 && y <= 130 {
				c = color.RGBA{240, 240, 235, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestRun_ScanFiles(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "pages")
	page := writePhoto(t, in, "page.png", true)
	blank := writePhoto(t, in, "blank.png", false)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--output-dir", out, "--logformat", "json", "--overlay", page, blank,
	}, &stderr)
	require.Equal(t, 0, code, stderr.String())

	assert.FileExists(t, filepath.Join(out, "page-001.jpg"))
	assert.NoFileExists(t, filepath.Join(out, "page-002.jpg"))
	assert.FileExists(t, filepath.Join(out, "page-outline.png"))
	assert.FileExists(t, filepath.Join(out, "blank-outline.png"))
	assert.Contains(t, stderr.String(), "pages saved")
	assert.Contains(t, stderr.String(), "skipping photo")
}

func TestRun_NoPages(t *testing.T) {
	in := t.TempDir()
	blank := writePhoto(t, in, "blank.png", false)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--output-dir", filepath.Join(t.TempDir(), "pages"), blank, filepath.Join(in, "missing.png"),
	}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "no pages scanned from 2 photos")
}

func TestRun_Preview(t *testing.T) {
	dir := t.TempDir()
	writePhoto(t, dir, "0001.png", true)
	writePhoto(t, dir, "0002.png", false)

	var stderr bytes.Buffer
	code := run(context.Background(), []string{
		"--preview", dir, "--preview-fps", "200", "--logformat", "json",
	}, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stderr.String(), "preview started")
	assert.Contains(t, stderr.String(), "preview finished")
}

func TestRun_Usage(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"no photos", nil, 2},
		{"help", []string{"--help"}, 0},
		{"version", []string{"--version"}, 0},
		{"unknown flag", []string{"--bogus"}, 2},
		{"invalid setting", []string{"--canny-low", "300", "x.png"}, 2},
		{"missing preview dir", []string{"--preview", "/nonexistent/frames"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			assert.Equal(t, tt.code, run(context.Background(), tt.args, &stderr), stderr.String())
		})
	}
}

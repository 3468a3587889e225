package entrypoint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, rel string) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("<html></html>"), 0o644))
}

func TestResolve_Priority(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
		ok    bool
	}{
		{name: "story wins over genially", files: []string{"genially.html", "story.html"}, want: "story.html", ok: true},
		{name: "story wins over rise", files: []string{"scormcontent/index.html", "story.html"}, want: "story.html", ok: true},
		{name: "genially wins over rise", files: []string{"scormcontent/index.html", "genially.html"}, want: "genially.html", ok: true},
		{name: "rise only", files: []string{"scormcontent/index.html"}, want: "scormcontent/index.html", ok: true},
		{name: "nothing recognised", files: []string{"index.html", "imsmanifest.xml"}, ok: false},
		{name: "nested story does not count", files: []string{"content/story.html"}, ok: false},
		{name: "empty", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, dir, f)
			}
			got, ok := Resolve(dir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_SkipsDirectoryNamedLikeCandidate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "story.html"), 0o755))
	touch(t, dir, "genially.html")

	got, ok := Resolve(dir)
	require.True(t, ok)
	assert.Equal(t, "genially.html", got)
}

func TestResolve_MissingDirectory(t *testing.T) {
	_, ok := Resolve(filepath.Join(t.TempDir(), "absent"))
	assert.False(t, ok)
}

func TestResolve_ReflectsLiveChanges(t *testing.T) {
	dir := t.TempDir()
	_, ok := Resolve(dir)
	require.False(t, ok)

	touch(t, dir, "scormcontent/index.html")
	got, ok := Resolve(dir)
	require.True(t, ok)
	assert.Equal(t, "scormcontent/index.html", got)
}

func TestURL(t *testing.T) {
	assert.Equal(t, "/modules/f1/story.html", URL("", "f1", "story.html"))
	assert.Equal(t, "https://lms.example.com/modules/f1/scormcontent/index.html",
		URL("https://lms.example.com/", "f1", "scormcontent/index.html"))
}

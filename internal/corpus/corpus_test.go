package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func rels(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	return out
}

func TestFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string
		want  []string
	}{
		{
			name: "sorted and recursive",
			files: map[string]string{
				"b.txt":       "",
				"a.txt":       "",
				"news/c.txt":  "",
				"news/a1.txt": "",
			},
			want: []string{"a.txt", "b.txt", "news/a1.txt", "news/c.txt"},
		},
		{
			name: "dot entries skipped",
			files: map[string]string{
				"a.txt":          "",
				".hidden.txt":    "",
				".cache/x.txt":   "",
				"sub/.state.txt": "",
			},
			want: []string{"a.txt"},
		},
		{
			name: "gitignore honored",
			files: map[string]string{
				".gitignore": "*.bak\nscratch\n",
				"a.txt":      "",
				"a.txt.bak":  "",
				"scratch/x":  "",
				"keep/y.txt": "",
			},
			want: []string{"a.txt", "keep/y.txt"},
		},
		{
			name: "coverignore merged with gitignore",
			files: map[string]string{
				".gitignore":   "*.bak\n",
				".coverignore": "# generated\nout-*.txt\n",
				"a.txt":        "",
				"b.bak":        "",
				"out-1.txt":    "",
			},
			want: []string{"a.txt"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			root := t.TempDir()
			writeTree(t, root, tt.files)

			got, err := Files(root)
			if err != nil {
				t.Fatalf("Files: %v", err)
			}
			if diff := cmp.Diff(tt.want, rels(t, root, got)); diff != "" {
				t.Errorf("Files mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilesMissingRoot(t *testing.T) {
	t.Parallel()
	if _, err := Files(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected an error for a missing root")
	}
}

func TestExpand(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"single.txt": "",
		"dir/b.txt":  "",
		"dir/a.txt":  "",
	})

	got, err := Expand([]string{filepath.Join(root, "single.txt"), filepath.Join(root, "dir")})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := []string{"single.txt", "dir/a.txt", "dir/b.txt"}
	if diff := cmp.Diff(want, rels(t, root, got)); diff != "" {
		t.Errorf("Expand mismatch (-want +got):\n%s", diff)
	}

	if _, err := Expand([]string{filepath.Join(root, "nope.txt")}); err == nil {
		t.Error("expected an error for a missing path")
	}
}

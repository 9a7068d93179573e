package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveOutDir(t *testing.T) {
	base := t.TempDir()
	want := filepath.Join(base, "nested", "out")

	got, err := resolveOutDir("  " + want + "/ ")
	if err != nil {
		t.Fatalf("resolveOutDir: %v", err)
	}
	if got != want {
		t.Fatalf("resolveOutDir = %q, want %q", got, want)
	}
	if fi, err := os.Stat(got); err != nil || !fi.IsDir() {
		t.Fatalf("output directory not created: %v", err)
	}
}

func TestInputName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "scene.blend", want: "scene.blend"},
		{in: "/tmp/a/b/scene.blend", want: "scene.blend"},
		{in: "dir/../other.blend", want: "other.blend"},
		{in: "/", wantErr: true},
		{in: ".", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := inputName(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("inputName(%q) = %q, want error", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("inputName(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("inputName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRequireInput(t *testing.T) {
	t.Parallel()

	if _, err := requireInput(nil); err == nil {
		t.Fatal("expected error for no args")
	}
	if _, err := requireInput([]string{"  "}); err == nil {
		t.Fatal("expected error for blank arg")
	}
	got, err := requireInput([]string{"a.blend", "extra"})
	if err != nil || got != "a.blend" {
		t.Fatalf("requireInput = %q, %v", got, err)
	}
}

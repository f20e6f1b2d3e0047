package sshclient

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func relPaths(plan *TransferPlan) []string {
	var out []string
	for _, e := range plan.Entries {
		out = append(out, e.RelPath)
	}
	return out
}

func newPlannerFs(t *testing.T) *Planner {
	t.Helper()
	fs := newMemFs(t, map[string]string{
		"/src/a.txt":            "alpha",
		"/src/b.log":            "bravo",
		"/src/c.txt":            "charlie",
		"/src/.env":             "SECRET=1",
		"/src/docs/index.html":  "<html>",
		"/src/docs/data.json":   "{}",
		"/src/docs/style.css":   "body{}",
		"/src/.git/config":      "[core]",
		"/src/build/out.bin":    "bin",
		"/src/build/sub/app.js": "js",
	})
	return NewPlanner(fs, nil)
}

func TestPlanner_Plan(t *testing.T) {
	tests := []struct {
		name string
		opts PlanOptions
		want []string
	}{
		{
			name: "non-recursive takes immediate files only",
			opts: PlanOptions{},
			want: []string{".env", "a.txt", "b.log", "c.txt"},
		},
		{
			name: "pattern and exclude",
			opts: PlanOptions{NamePattern: "*.txt", Excludes: []string{"*.log"}},
			want: []string{"a.txt", "c.txt"},
		},
		{
			name: "recursive walks subtree",
			opts: PlanOptions{Recursive: true},
			want: []string{
				".env",
				".git/config",
				"a.txt",
				"b.log",
				"build/out.bin",
				"build/sub/app.js",
				"c.txt",
				"docs/data.json",
				"docs/index.html",
				"docs/style.css",
			},
		},
		{
			name: "includes are OR'd",
			opts: PlanOptions{Recursive: true, Includes: []string{"*.json", "*.html"}},
			want: []string{"docs/data.json", "docs/index.html"},
		},
		{
			name: "skip hidden files and directories",
			opts: PlanOptions{Recursive: true, SkipHidden: true, Excludes: []string{"build/**"}},
			want: []string{"a.txt", "b.log", "c.txt", "docs/data.json", "docs/index.html", "docs/style.css"},
		},
		{
			name: "regex pattern",
			opts: PlanOptions{Recursive: true, NamePattern: `/^[a-c]\.(txt|log)$/`},
			want: []string{"a.txt", "b.log", "c.txt"},
		},
		{
			name: "nothing matches",
			opts: PlanOptions{Recursive: true, NamePattern: "*.go"},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPlannerFs(t)
			plan, err := p.Plan(context.Background(), "/src", tt.opts)
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if plan.Root != "/src" {
				t.Errorf("Root = %q, want /src", plan.Root)
			}
			if got := relPaths(plan); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Plan() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlanner_EntryDetails(t *testing.T) {
	p := newPlannerFs(t)
	plan, err := p.Plan(context.Background(), "/src", PlanOptions{NamePattern: "a.txt"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", plan.Len())
	}

	e := plan.Entries[0]
	if e.Path != "/src/a.txt" || e.RelPath != "a.txt" || e.Size != 5 {
		t.Errorf("entry = %+v", e)
	}
	if plan.TotalBytes() != 5 {
		t.Errorf("TotalBytes() = %d, want 5", plan.TotalBytes())
	}
}

func TestPlanner_SourceNotFound(t *testing.T) {
	p := newPlannerFs(t)

	_, err := p.Plan(context.Background(), "/missing", PlanOptions{})
	var notFound *SourceNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *SourceNotFoundError, got %v", err)
	}
	if notFound.Path != "/missing" {
		t.Errorf("Path = %q", notFound.Path)
	}
	if !IsStructural(err) {
		t.Error("source errors should be structural")
	}
	if ErrorCode(err) != CodeSourceNotFound {
		t.Errorf("ErrorCode() = %d, want %d", ErrorCode(err), CodeSourceNotFound)
	}
}

func TestPlanner_EmptyDirectory(t *testing.T) {
	fs := newMemFs(t, nil)
	if err := fs.MkdirAll("/empty", 0755); err != nil {
		t.Fatal(err)
	}

	plan, err := NewPlanner(fs, nil).Plan(context.Background(), "/empty", PlanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Len() != 0 {
		t.Errorf("expected empty plan, got %v", relPaths(plan))
	}
}

func TestPlanner_SingleFileRoot(t *testing.T) {
	p := newPlannerFs(t)

	plan, err := p.Plan(context.Background(), "/src/docs/index.html", PlanOptions{})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Root != "/src/docs" {
		t.Errorf("Root = %q, want /src/docs", plan.Root)
	}
	if got := relPaths(plan); !reflect.DeepEqual(got, []string{"index.html"}) {
		t.Errorf("Plan() = %v", got)
	}

	plan, err = p.Plan(context.Background(), "/src/docs/index.html", PlanOptions{NamePattern: "*.txt"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Len() != 0 {
		t.Errorf("filtered single file should give empty plan, got %v", relPaths(plan))
	}
}

func TestPlanner_InvalidPattern(t *testing.T) {
	p := newPlannerFs(t)

	_, err := p.Plan(context.Background(), "/src", PlanOptions{NamePattern: "/(/"})
	var patternErr *PatternError
	if !errors.As(err, &patternErr) {
		t.Fatalf("expected *PatternError, got %v", err)
	}
}

func TestPlanner_Cancelled(t *testing.T) {
	p := newPlannerFs(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Plan(ctx, "/src", PlanOptions{Recursive: true}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestPlanner_RealFilesystem(t *testing.T) {
	dir := createTestFileStructure(t, map[string][]byte{
		"one.txt":       []byte("1"),
		"nested/two.md": []byte("22"),
	})

	plan, err := NewPlanner(nil, nil).Plan(context.Background(), dir, PlanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	var got []string
	for _, rel := range relPaths(plan) {
		got = append(got, filepath.ToSlash(rel))
	}
	if !reflect.DeepEqual(got, []string{"nested/two.md", "one.txt"}) {
		t.Errorf("Plan() = %v", got)
	}
	if plan.TotalBytes() != 3 {
		t.Errorf("TotalBytes() = %d, want 3", plan.TotalBytes())
	}
}

func TestPlanner_SymlinkedRoot(t *testing.T) {
	dir := createTestFileStructure(t, map[string][]byte{
		"a.txt":     []byte("alpha"),
		"sub/b.txt": []byte("bravo"),
	})
	link := filepath.Join(t.TempDir(), "site")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	plan, err := NewPlanner(nil, nil).Plan(context.Background(), link, PlanOptions{Recursive: true})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	var got []string
	for _, rel := range relPaths(plan) {
		got = append(got, filepath.ToSlash(rel))
	}
	if !reflect.DeepEqual(got, []string{"a.txt", "sub/b.txt"}) {
		t.Fatalf("Plan() = %v, want both files below the link", got)
	}
	if plan.Root != link {
		t.Errorf("Root = %q, want %q", plan.Root, link)
	}
	if want := filepath.Join(link, "sub", "b.txt"); plan.Entries[1].Path != want {
		t.Errorf("Path = %q, want %q", plan.Entries[1].Path, want)
	}
}

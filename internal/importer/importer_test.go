package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/giyikalim/smart-notes/internal/testutil"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestDir(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	root := writeTree(t, map[string]string{
		"a.md":            "---\ntitle: Planlama\ntags: [iş]\n---\nProje takvimi gözden geçirildi. #toplantı\n",
		"sub/b.md":        "Alışveriş listesi: süt ve ekmek.",
		"sub/copy.md":     "Alışveriş listesi: süt ve ekmek.",
		"empty.md":        "---\ntitle: Boş\n---\n",
		"readme.txt":      "not markdown",
		".hidden/skip.md": "hidden note",
	})

	rep, err := Dir(context.Background(), svc, "u1", root, testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.Imported) != 2 {
		t.Fatalf("imported = %+v", rep.Imported)
	}
	if rep.Imported[0].Path != "a.md" || rep.Imported[0].Title != "Planlama" {
		t.Errorf("first import = %+v", rep.Imported[0])
	}
	if rep.Imported[1].Path != "sub/b.md" {
		t.Errorf("second import = %+v", rep.Imported[1])
	}

	skipped := map[string]string{}
	for _, s := range rep.Skipped {
		skipped[s.Path] = s.Reason
	}
	if skipped["empty.md"] != "empty" || skipped["sub/copy.md"] != "duplicate of sub/b.md" || len(skipped) != 2 {
		t.Errorf("skipped = %v", skipped)
	}

	n, err := svc.Get(context.Background(), "u1", rep.Imported[0].NoteID)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Keywords) < 2 || n.Keywords[0] != "iş" || n.Keywords[1] != "toplantı" {
		t.Errorf("keywords = %v, want tags first", n.Keywords)
	}
}

func TestDirCancelled(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	root := writeTree(t, map[string]string{"a.md": "Bir not."})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Dir(ctx, svc, "u1", root, testutil.Logger()); err == nil {
		t.Fatal("expected context error")
	}
}

func TestDirMissingRoot(t *testing.T) {
	svc := testutil.TestService(t, testutil.NewClock())
	if _, err := Dir(context.Background(), svc, "u1", filepath.Join(t.TempDir(), "nope"), testutil.Logger()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

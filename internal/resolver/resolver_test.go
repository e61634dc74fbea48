package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func mustSymlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Fatalf("symlink: %v", err)
	}
}

func TestResolvePlainFile(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := New(root, true, false)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve("/a.txt", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.CrossedSymlink {
		t.Fatalf("unexpected symlink crossing")
	}
	want, _ := filepath.EvalSymlinks(filepath.Join(root, "a.txt"))
	got, _ := filepath.EvalSymlinks(res.Path)
	if got != want {
		t.Fatalf("path = %q, want %q", res.Path, want)
	}
}

func TestResolveSandboxBlocksEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustSymlink(t, outside, filepath.Join(root, "escape"))

	r, err := New(root, true, true)
	if err != nil {
		t.Fatal(err)
	}

	_, err = r.Resolve("/escape/secret.txt", true)
	if err != ErrOutOfSandbox {
		t.Fatalf("err = %v, want ErrOutOfSandbox", err)
	}
}

func TestResolveNoSandboxAllowsEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	mustSymlink(t, outside, filepath.Join(root, "escape"))

	r, err := New(root, true, false)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve("/escape/secret.txt", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.CrossedSymlink {
		t.Fatalf("expected CrossedSymlink")
	}
}

func TestResolveDeleteVariantDoesNotFollowFinalLink(t *testing.T) {
	root := t.TempDir()
	target := filepath.Join(root, "target.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "link.txt")
	mustSymlink(t, target, link)

	r, err := New(root, true, false)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve("/link.txt", false)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Path != link {
		t.Fatalf("path = %q, want %q (the link itself)", res.Path, link)
	}
}

func TestResolveBadEncodingStillWalks(t *testing.T) {
	root := t.TempDir()
	r, err := New(root, true, false)
	if err != nil {
		t.Fatal(err)
	}

	res, err := r.Resolve("/bad%zzsegment", true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !res.BadEncoding {
		t.Fatalf("expected BadEncoding")
	}
}

func TestIsDescendantOf(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "a", "b.txt")
	if err := os.MkdirAll(filepath.Dir(inside), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(inside, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !IsDescendantOf(inside, root) {
		t.Fatalf("expected %q to be a descendant of %q", inside, root)
	}
	if IsDescendantOf(t.TempDir(), root) {
		t.Fatalf("unrelated dir should not be a descendant")
	}
}

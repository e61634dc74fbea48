package archive

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("world"), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestWriteTarRoundTrip(t *testing.T) {
	root := buildTree(t)
	var buf bytes.Buffer
	if err := WriteTar(&buf, root); err != nil {
		t.Fatal(err)
	}

	tr := tar.NewReader(&buf)
	found := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		if hdr.Typeflag == tar.TypeReg {
			data := make([]byte, hdr.Size)
			tr.Read(data)
			found[hdr.Name] = string(data)
		}
	}
	if found["a.txt"] != "hello" {
		t.Fatalf("a.txt content = %q", found["a.txt"])
	}
	if found["sub/b.txt"] != "world" {
		t.Fatalf("sub/b.txt content = %q", found["sub/b.txt"])
	}
}

func TestWriteZipRoundTrip(t *testing.T) {
	root := buildTree(t)
	var buf bytes.Buffer
	if err := WriteZip(&buf, root, true); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	found := map[string]string{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data := make([]byte, f.UncompressedSize64)
		rc.Read(data)
		rc.Close()
		found[f.Name] = string(data)
	}
	if found["a.txt"] != "hello" {
		t.Fatalf("a.txt content = %q", found["a.txt"])
	}
	if found["sub/b.txt"] != "world" {
		t.Fatalf("sub/b.txt content = %q", found["sub/b.txt"])
	}
}

func TestWriteTarSingleFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "solo.txt")
	if err := os.WriteFile(file, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteTar(&buf, file); err != nil {
		t.Fatal(err)
	}
	tr := tar.NewReader(&buf)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Name != "solo.txt" {
		t.Fatalf("name = %q, want solo.txt", hdr.Name)
	}
}

func TestParseAcceptArchiveType(t *testing.T) {
	if typ, ok := ParseAcceptArchiveType("text/html, application/x-tar;q=0.9"); !ok || typ != Tar {
		t.Fatalf("expected Tar match")
	}
	if typ, ok := ParseAcceptArchiveType("application/zip"); !ok || typ != Zip {
		t.Fatalf("expected Zip match")
	}
	if _, ok := ParseAcceptArchiveType("text/html"); ok {
		t.Fatalf("expected no match")
	}
}

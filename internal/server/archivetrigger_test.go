package server

import (
	"testing"

	"github.com/httpfs/httpfs/internal/archive"
)

func TestParseArchiveTriggerBody(t *testing.T) {
	good := "vendor=http\narchive=yes-i-really-want-one\ntype=zip\nunknown=ignored\n"
	typ, ok := parseArchiveTriggerBody([]byte(good))
	if !ok || typ != archive.Zip {
		t.Fatalf("got (%v, %v), want (zip, true)", typ, ok)
	}

	// Order shouldn't matter.
	reordered := "type=tar\narchive=yes-i-really-want-one\nvendor=http\n"
	typ, ok = parseArchiveTriggerBody([]byte(reordered))
	if !ok || typ != archive.Tar {
		t.Fatalf("got (%v, %v), want (tar, true)", typ, ok)
	}

	missingVendor := "archive=yes-i-really-want-one\ntype=tar\n"
	if _, ok := parseArchiveTriggerBody([]byte(missingVendor)); ok {
		t.Error("expected missing vendor sentinel to fail the match")
	}

	missingReally := "vendor=http\ntype=tar\n"
	if _, ok := parseArchiveTriggerBody([]byte(missingReally)); ok {
		t.Error("expected missing archive sentinel to fail the match")
	}
}

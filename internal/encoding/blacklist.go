package encoding

import (
	"path/filepath"
	"strings"
)

// blacklistedExtensions are extensions of formats that are already
// compressed (archives, media, office formats); encoding them again
// rarely helps and wastes CPU, so spec.md §4.2 has the negotiator skip
// them outright even when they're otherwise size-eligible.
var blacklistedExtensions = map[string]bool{
	".zip": true, ".gz": true, ".tgz": true, ".bz2": true, ".xz": true,
	".7z": true, ".rar": true, ".zst": true, ".br": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".mp3": true, ".mp4": true, ".mkv": true, ".avi": true, ".mov": true,
	".webm": true, ".ogg": true, ".flac": true,
	".docx": true, ".xlsx": true, ".pptx": true, ".odt": true, ".pdf": true,
}

// Blacklisted reports whether name's extension should skip encoding.
func Blacklisted(name string) bool {
	return blacklistedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Eligible reports whether a file of this name and size should even be
// considered for on-disk encoding, per spec.md §4.2's size gate.
func Eligible(name string, size int64) bool {
	if Blacklisted(name) {
		return false
	}
	return size > MinEncodingSize && size < MaxEncodingSize
}

package config

import "testing"

func TestDefaultConfigNumPages(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.NumPages(), 64; got != want {
		t.Fatalf("DefaultConfig().NumPages() = %d, want %d", got, want)
	}
}

func TestNumPagesTruncatesRemainder(t *testing.T) {
	cfg := Config{MaximumThreadMemory: 100, PageSize: 30}
	if got, want := cfg.NumPages(), 3; got != want {
		t.Fatalf("NumPages() = %d, want %d", got, want)
	}
}

func TestNumPagesZeroPageSizeIsZero(t *testing.T) {
	cfg := Config{MaximumThreadMemory: 100, PageSize: 0}
	if got := cfg.NumPages(); got != 0 {
		t.Fatalf("NumPages() with zero page size = %d, want 0", got)
	}
}

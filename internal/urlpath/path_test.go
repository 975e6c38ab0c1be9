package urlpath

import (
	"errors"
	"testing"
)

func TestIsCanonical(t *testing.T) {
	tests := []struct {
		name string
		path string
		want bool
	}{
		{"root", "/", true},
		{"simple", "/pub", true},
		{"nested", "/pub/beer", true},
		{"trailing slash", "/pub/", true},
		{"nested trailing slash", "/a/b/", true},
		{"empty", "", false},
		{"relative", "pub", false},
		{"double slash", "//pub", false},
		{"inner double slash", "/a//b", false},
		{"dot segment", "/a/./b", false},
		{"dotdot segment", "/a/../b", false},
		{"trailing dot", "/a/.", false},
		{"trailing dotdot", "/a/..", false},
		{"bare dotdot", "/..", false},
		{"null byte", "/a\x00b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCanonical(tt.path); got != tt.want {
				t.Errorf("IsCanonical(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"valid", "/pub/beer", nil},
		{"valid root", "/", nil},
		{"not canonical", "/a/../b", ErrNotCanonical},
		{"fragment", "/pub#top", ErrHasFragment},
		{"query", "/pub?beer=1", ErrHasQuery},
		{"params", "/pub;v=1", ErrHasParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.path)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate(%q) = %v, want %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CheckOrder(t *testing.T) {
	// A path failing several checks reports the canonical check first.
	err := Validate("a//b?x#y")
	if !errors.Is(err, ErrNotCanonical) {
		t.Errorf("Validate() = %v, want %v", err, ErrNotCanonical)
	}

	// A canonical path with both a query and a fragment reports the
	// fragment first, matching the creation check order.
	err = Validate("/pub#frag?query")
	if !errors.Is(err, ErrHasFragment) {
		t.Errorf("Validate() = %v, want %v", err, ErrHasFragment)
	}
}

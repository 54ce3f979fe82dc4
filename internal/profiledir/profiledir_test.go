package profiledir

import (
	"path/filepath"
	"testing"
)

func TestValidateProfileID(t *testing.T) {
	valid := []string{"default", "user@example.com", "a-b_c.d", "P1"}
	for _, id := range valid {
		if err := ValidateProfileID(id); err != nil {
			t.Errorf("ValidateProfileID(%q) = %v, want nil", id, err)
		}
	}

	invalid := []string{"", "../up", "a/b", "with space", "nul\x00", ".", "..", "..."}
	for _, id := range invalid {
		if err := ValidateProfileID(id); err == nil {
			t.Errorf("ValidateProfileID(%q) = nil, want error", id)
		}
	}
}

func TestDirVersionRoundTrip(t *testing.T) {
	base := t.TempDir()

	// Missing stamp reads as zero.
	version, err := ReadDirVersion(base, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if version != 0 {
		t.Errorf("version = %d, want 0 for missing stamp", version)
	}

	if err := EnsureDir(base, "p1"); err != nil {
		t.Fatal(err)
	}
	if err := WriteDirVersion(base, "p1", 3); err != nil {
		t.Fatal(err)
	}
	version, err = ReadDirVersion(base, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if version != 3 {
		t.Errorf("version = %d, want 3", version)
	}
}

func TestListProfiles(t *testing.T) {
	base := t.TempDir()

	ids, err := ListProfiles(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("ids = %v, want none for a fresh base dir", ids)
	}

	for _, id := range []string{"p1", "p2"} {
		if err := EnsureDir(base, id); err != nil {
			t.Fatal(err)
		}
	}
	ids, err = ListProfiles(base)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 {
		t.Errorf("ids = %v, want p1 and p2", ids)
	}
}

func TestPathsAreScopedToProfile(t *testing.T) {
	base := "/data"
	got := StorePath(base, "p1")
	want := filepath.Join("/data", "profiles", "p1", "cache.db")
	if got != want {
		t.Errorf("StorePath = %q, want %q", got, want)
	}
}

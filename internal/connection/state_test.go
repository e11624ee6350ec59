package connection

import (
	"path/filepath"
	"testing"
)

func TestLoadStateFile_MissingFileYieldsEmptyState(t *testing.T) {
	state, err := LoadStateFile(filepath.Join(t.TempDir(), "connections.yaml"))
	if err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if len(state.Profiles) != 0 {
		t.Errorf("Expected empty state, got %d profiles", len(state.Profiles))
	}
}

func TestSaveStateFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "connections.yaml")

	in := State{Profiles: []Profile{
		{Kind: KindManaged, SsoRegion: "eu-west-1", StartURL: "https://x/start", Scopes: []string{"a", "b"}},
		{Kind: KindProfile, SsoRegion: "us-east-1", StartURL: "https://y/start", Scopes: []string{"c"}, SessionName: "dev"},
	}}

	if err := SaveStateFile(path, in); err != nil {
		t.Fatalf("SaveStateFile failed: %v", err)
	}

	out, err := LoadStateFile(path)
	if err != nil {
		t.Fatalf("LoadStateFile failed: %v", err)
	}
	if len(out.Profiles) != 2 {
		t.Fatalf("Expected 2 profiles, got %d", len(out.Profiles))
	}
	for i := range in.Profiles {
		if !out.Profiles[i].Equal(in.Profiles[i]) {
			t.Errorf("Profile %d changed across persistence: %+v vs %+v", i, out.Profiles[i], in.Profiles[i])
		}
	}
}

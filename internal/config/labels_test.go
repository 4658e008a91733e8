package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFeedLabelsMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.yaml")
	content := "made_shot_3: \"{player} from downtown\"\nsteal: \"{player} picks the pocket\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	labels, err := LoadFeedLabels(path)
	if err != nil {
		t.Fatalf("LoadFeedLabels: %v", err)
	}
	if labels.MadeShot3 != "{player} from downtown" {
		t.Errorf("MadeShot3 = %q", labels.MadeShot3)
	}
	if labels.Steal != "{player} picks the pocket" {
		t.Errorf("Steal = %q", labels.Steal)
	}
	// Keys absent from the file keep their defaults.
	if labels.Timeout != DefaultFeedLabels().Timeout {
		t.Errorf("Timeout = %q, want default", labels.Timeout)
	}
}

func TestLoadFeedLabelsMissingFile(t *testing.T) {
	if _, err := LoadFeedLabels(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing labels file")
	}
}

package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"chatvault/internal/cache"
	"chatvault/internal/config"
	"chatvault/internal/lock"
	"chatvault/internal/logging"
	"chatvault/internal/profiledir"
)

func main() {
	outFlag := flag.String("out", "", "output directory (required)")
	profilesFlag := flag.String("profiles", "", "comma-separated profile ids (default: all)")
	baseDirFlag := flag.String("data-dir", "", "data directory (default: ~/.chatvault)")
	flag.Parse()

	if *outFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -out is required")
		os.Exit(1)
	}

	if err := run(*outFlag, *profilesFlag, *baseDirFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(outDir, profilesArg, baseDirArg string) error {
	baseDir := baseDirArg
	if baseDir == "" {
		baseDir = profiledir.BaseDir()
	}
	cfg, err := config.LoadOrDefault(profiledir.ConfigPath(baseDir))
	if err != nil {
		return err
	}
	if baseDirArg == "" && cfg.BaseDir != "" {
		baseDir = cfg.BaseDir
	}

	logger, err := logging.New(profiledir.LogPath(baseDir))
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	lk, err := lock.Acquire(baseDir)
	if err != nil {
		return err
	}
	defer func() { _ = lk.Release() }()

	var profiles []string
	if profilesArg != "" {
		profiles = strings.Split(profilesArg, ",")
	} else {
		if profiles, err = profiledir.ListProfiles(baseDir); err != nil {
			return err
		}
	}
	if len(profiles) == 0 {
		return fmt.Errorf("no profiles found under %s", baseDir)
	}

	c := cache.New(cache.Config{BaseDir: baseDir, NotifyBuffer: cfg.NotifyBuffer}, logger)
	defer c.Close()

	for _, id := range profiles {
		version, err := profiledir.ReadDirVersion(baseDir, id)
		if err != nil {
			return fmt.Errorf("read dir version for %q: %w", id, err)
		}
		// Read-only: the export must never mutate the live store files.
		if _, err := c.AddProfile(id, false, version, false, true); err != nil {
			return fmt.Errorf("register profile %q: %w", id, err)
		}
	}

	if err := c.Export(outDir); err != nil {
		return err
	}
	fmt.Printf("exported %d profile(s) to %s\n", len(profiles), outDir)
	return nil
}

package main

import (
	"flag"
	"strings"

	"chatvault/internal/tui"
	"go.uber.org/fx"
)

func main() {
	profilesFlag := flag.String("profiles", "", "comma-separated profile ids (default: all)")
	baseDirFlag := flag.String("data-dir", "", "data directory (default: ~/.chatvault)")
	flag.Parse()

	var profiles []string
	if *profilesFlag != "" {
		profiles = strings.Split(*profilesFlag, ",")
	}

	app := fx.New(
		tui.Module(tui.Params{Profiles: profiles, BaseDir: *baseDirFlag}),
		// fx's own event log would write over the terminal UI.
		fx.NopLogger,
	)

	app.Run()
}

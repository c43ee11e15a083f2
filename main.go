package main

import (
	"os"

	pocketcore "github.com/kdevbox/pocketcore/pocket"
	"github.com/kdevbox/pocketcore/pocket/render"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()

	app.Name = "pocketcore"
	app.Description = "A cycle-driven Game Boy emulator core"
	app.Action = runEmulator

	app.Run(os.Args)
}

func runEmulator(c *cli.Context) error {
	path := ""

	if c.NArg() > 0 {
		path = c.Args().First()
	}

	var emu *pocketcore.DMG
	if path != "" {
		var err error
		emu, err = pocketcore.NewWithFile(path)
		if err != nil {
			return err
		}
	} else {
		emu = pocketcore.New()
	}

	renderer, err := render.NewTerminalRenderer(emu)
	if err != nil {
		return err
	}

	return renderer.Run()
}

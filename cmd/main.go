package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "certshop",
		Usage: "session marketplace with certificate issuance and delivery",
		Commands: []*cli.Command{
			serveCommand(),
			catalogCommand(),
			demoCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("certshop failed")
	}
}

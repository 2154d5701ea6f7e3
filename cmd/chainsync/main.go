// Package main provides chainsync, a command-line tool to inspect and repair
// the block store used by the chain synchronizer: the main chain and the temp
// block area left behind by an interrupted chain switch.
//
// Usage:
//
//	chainsync --store leveldb:///var/lib/chainsync tip
//	chainsync --store leveldb:///var/lib/chainsync temp
//	chainsync --store leveldb:///var/lib/chainsync recover
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "chainsync",
		Usage: "Inspect and repair the block store of the chain synchronizer",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "store",
				Usage: "block store url, defaults to the blockchain_store setting",
			},
			&cli.StringFlag{
				Name:  "loglevel",
				Usage: "log level of the store and synchronizer",
				Value: "WARN",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "tip",
				Usage:  "Print the last block of the main chain",
				Action: tip,
			},
			{
				Name:   "header",
				Usage:  "Print the main chain header at a height",
				Action: header,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "height",
						Usage:    "height of the header",
						Required: true,
					},
				},
			},
			{
				Name:   "temp",
				Usage:  "List the headers of the blocks in the temp block area",
				Action: listTemp,
			},
			{
				Name:   "heights",
				Usage:  "Print the heights of the first common block request made from the tip",
				Action: heights,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:  "finalized",
						Usage: "finalized height of the chain",
					},
				},
			},
			{
				Name:   "recover",
				Usage:  "Restore or discard the temp block area the way the synchronizer does on startup",
				Action: recoverTemp,
			},
			{
				Name:   "clear-temp",
				Usage:  "Discard the temp block area",
				Action: clearTemp,
			},
		},
	}
}

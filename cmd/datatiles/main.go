package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
	"github.com/urfave/cli/v2"

	"github.com/bward/datatiles"
	"github.com/bward/datatiles/mbtiles"
	"github.com/bward/datatiles/server"
	"github.com/bward/datatiles/tile"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version",
		Usage: "print the version",
	}
}

func newLogger(c *cli.Context) *log.Logger {
	logger := log.New(io.Discard, "", 0)
	if c.Bool("verbose") {
		logger.SetOutput(os.Stderr)
	}
	return logger
}

func main() {
	app := cli.NewApp()

	app.Name = "datatiles"
	app.Usage = "Encode, inspect and serve raster data tilesets"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:        "encode",
			Usage:       "Encode a JSON tile set into an mbtiles file",
			ArgsUsage:   "INPUT OUTPUT",
			Description: "Builds the codec spec from every layer in INPUT, encodes the tiles in parallel and writes a self-describing mbtiles file to OUTPUT.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "name",
					Usage: "tileset name stored in the metadata table",
				},
				&cli.IntFlag{
					Name:    "workers",
					Aliases: []string{"w"},
					Value:   runtime.NumCPU(),
					Usage:   "number of encode workers",
				},
				&cli.BoolFlag{
					Name:  "compress",
					Usage: "gzip tile blobs on disk",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 2 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}
				input, output := c.Args().Get(0), c.Args().Get(1)

				f, err := os.Open(input)
				if err != nil {
					return cli.Exit(err, 1)
				}
				set, err := datatiles.LoadTileSet(f)
				f.Close()
				if err != nil {
					return cli.Exit(err, 1)
				}

				d := datatiles.New(newLogger(c))
				spec, err := d.BuildSpec(set)
				if err != nil {
					return cli.Exit(err, 1)
				}

				w, err := mbtiles.Create(output, c.Bool("compress"))
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer w.Close()

				name := c.String("name")
				if name == "" {
					name = strings.TrimSuffix(filepath.Base(output), ".mbtiles")
				}
				if err := w.WriteSpec(name, spec, set.Zoom(), set.Zoom()); err != nil {
					return cli.Exit(err, 1)
				}

				if err := d.EncodeAll(c.Context, spec, set.Jobs(), w, c.Int("workers")); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
		{
			Name:        "metadata",
			Usage:       "Print the codec descriptor of a tileset",
			ArgsUsage:   "FILE",
			Description: "Prints the encoding metadata JSON stored in an mbtiles file.",
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				ts, err := mbtiles.Open(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer ts.Close()

				meta, err := ts.Metadata()
				if err != nil {
					return cli.Exit(err, 1)
				}

				encoded, ok := meta[mbtiles.EncodingKey]
				if !ok {
					return cli.Exit("tileset has no encoding descriptor", 1)
				}

				fmt.Println(encoded)
				return nil
			},
		},
		{
			Name:        "inspect",
			Usage:       "Decode the layer values of one pixel",
			ArgsUsage:   "FILE Z X Y PX PY",
			Description: "Reads one tile from an mbtiles file and prints the decoded per-layer values at pixel (PX, PY).",
			Action: func(c *cli.Context) error {
				if c.NArg() < 6 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				args := make([]int, 5)
				for i := range args {
					v, err := strconv.Atoi(c.Args().Get(i + 1))
					if err != nil || v < 0 {
						return cli.Exit(fmt.Sprintf("invalid argument %q", c.Args().Get(i+1)), 1)
					}
					args[i] = v
				}
				z, x, y, px, py := args[0], args[1], args[2], args[3], args[4]

				ts, err := mbtiles.Open(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer ts.Close()

				spec, err := ts.Spec()
				if err != nil {
					return cli.Exit(err, 1)
				}

				data, err := ts.Tile(maptile.New(uint32(x), uint32(y), maptile.Zoom(z)))
				if err != nil {
					return cli.Exit(err, 1)
				}
				if data == nil {
					return cli.Exit(fmt.Sprintf("no tile at %d/%d/%d", z, x, y), 1)
				}

				g, err := tile.Decode(bytes.NewReader(data))
				if err != nil {
					return cli.Exit(err, 1)
				}
				if px >= g.Width() || py >= g.Height() {
					return cli.Exit(fmt.Sprintf("pixel (%d, %d) outside %dx%d tile", px, py, g.Width(), g.Height()), 1)
				}

				values, err := spec.Decode(g.At(px, py))
				if err != nil {
					return cli.Exit(err, 1)
				}
				if values == nil {
					fmt.Println("no data")
					return nil
				}
				for i, id := range spec.LayerIDs() {
					if values[i].Valid {
						fmt.Printf("%s: %d\n", id, values[i].Int32)
					} else {
						fmt.Printf("%s: no data\n", id)
					}
				}
				return nil
			},
		},
		{
			Name:        "serve",
			Usage:       "Serve a tileset over HTTP",
			ArgsUsage:   "FILE",
			Description: "Serves tiles, the codec descriptor and a health check from an mbtiles file.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "addr",
					EnvVars: []string{"DATATILES_ADDR"},
					Value:   ":8000",
					Usage:   "listen address",
				},
			},
			Action: func(c *cli.Context) error {
				if c.NArg() < 1 {
					cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
				}

				ts, err := mbtiles.Open(c.Args().First())
				if err != nil {
					return cli.Exit(err, 1)
				}
				defer ts.Close()

				s := server.New(ts, newLogger(c))
				if err := http.ListenAndServe(c.String("addr"), s.Router()); err != nil {
					return cli.Exit(err, 1)
				}
				return nil
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// Command ncd-lookup resolves a single key against an NCD store, read
// either from a local file or from an HTTP server that honors Range
// requests. It prints the value to stdout and exits 0 if the key is
// present, or exits 1 (silently) if it is not.
package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kong"

	"github.com/ens-ds23/ncd/internal/buildinfo"
	"github.com/ens-ds23/ncd/pkg/ncd"
	"github.com/ens-ds23/ncd/pkg/ncd/accessor"
)

type cli struct {
	Key  string `arg:"" help:"Key to look up."`
	Path string `arg:"" help:"Store location: a local file path, or an http(s):// URL."`

	Source  string        `short:"s" enum:"file,http,guess" default:"guess" help:"Where Path points: \"file\", \"http\", or \"guess\" (http iff Path contains \"//\")."`
	Timeout time.Duration `help:"Connect timeout for the HTTP source." default:"10s"`

	Version kong.VersionFlag `help:"Print version and exit."`
}

func (c *cli) resolveSource() string {
	if c.Source != "guess" {
		return c.Source
	}
	if strings.Contains(c.Path, "//") {
		return "http"
	}
	return "file"
}

func (c *cli) open() (ncd.Accessor, func() error, error) {
	switch c.resolveSource() {
	case "http":
		return accessor.NewHTTP(c.Path, c.Timeout), func() error { return nil }, nil
	case "file":
		f, err := accessor.OpenFile(c.Path)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported source %q", c.Source)
	}
}

func (c *cli) Run() error {
	acc, closeFn, err := c.open()
	if err != nil {
		return err
	}
	defer closeFn()

	r, err := ncd.New(acc)
	if err != nil {
		return err
	}
	value, err := r.Get([]byte(c.Key))
	if err != nil {
		return err
	}
	os.Stdout.Write(value)
	return nil
}

func main() {
	var cli cli
	kong.Parse(&cli,
		kong.Name("ncd-lookup"),
		kong.Description("Look up a single key in an NCD store."),
		kong.UsageOnError(),
		kong.Vars{"version": buildinfo.Summary()},
	)

	err := cli.Run()
	switch {
	case err == nil:
		os.Exit(0)
	case errors.Is(err, ncd.ErrNotFound):
		os.Exit(1)
	default:
		fmt.Fprintf(os.Stderr, "ncd-lookup: %v\n", err)
		os.Exit(1)
	}
}

// Command ncd-build packs a flat text file into an NCD store: a read-
// optimized, immutable key-value file readable with a bounded number of
// byte-range reads, suitable for serving straight off a filesystem or an
// HTTP range-capable static host.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ens-ds23/ncd/internal/buildinfo"
	"github.com/ens-ds23/ncd/internal/sniff"
	"github.com/ens-ds23/ncd/pkg/ncd"
	"github.com/ens-ds23/ncd/pkg/ncd/flatsource"
)

type cli struct {
	Input  string `arg:"" type:"existingfile" help:"Input data file."`
	Output string `arg:"" type:"path" help:"Output NCD store path."`

	Type      string `short:"t" enum:"flat,guess" default:"guess" help:"Input type: \"flat\" or \"guess\" (sniff the input for plain UTF-8 text)."`
	Field     int    `short:"f" default:"1" help:"1-based field index to use as the value."`
	Delimiter string `short:"d" help:"Field delimiter. Defaults to arbitrary whitespace."`
	Blank     bool   `short:"B" name:"blank" help:"Keep blank lines instead of skipping them."`
	Comment   string `short:"C" help:"Comment character. A line starting with it (after leading whitespace) is dropped."`
	Inline    bool   `short:"I" name:"inline" help:"Also strip inline comments. Requires --comment."`
	KeepTail  bool   `short:"T" name:"keep-tail" help:"Keep trailing whitespace instead of trimming it."`

	Careful bool `short:"c" help:"Use a tighter, more space-efficient build tuning (smaller pages, higher load factor)."`

	PageSize          uint32  `short:"p" name:"page-size" help:"Starting page size in bytes."`
	LoadFactor        float64 `name:"load-factor" help:"Target load factor."`
	HeapWiggle        float64 `name:"heap-wiggle" help:"Heap wiggle room factor reserved over the estimated per-page inline size."`
	MinEntries        uint64  `name:"min-entries" help:"Minimum slots per page, unless the whole store holds fewer records."`
	ExternalThreshold float64 `short:"e" name:"external-threshold" help:"Fraction of page size above which a value is stored externally."`
	RebuildFactor     float64 `short:"r" name:"rebuild-factor" help:"Growth factor applied on each overflow retry: to the page size after a heap overflow, to the page count after a full slot table."`
	ForceHeader       uint8   `name:"force-header" help:"Force the in-page offset width to 2 or 4 bytes instead of choosing automatically."`

	Version kong.VersionFlag `help:"Print version and exit."`
}

func (c *cli) buildConfig() ncd.Config {
	cfg := ncd.DefaultConfig()
	if c.Careful {
		cfg = ncd.CarefulConfig()
	}
	if c.PageSize != 0 {
		cfg.TargetPageSize = c.PageSize
	}
	if c.LoadFactor != 0 {
		cfg.TargetLoadFactor = c.LoadFactor
	}
	if c.HeapWiggle != 0 {
		cfg.HeapWiggleRoom = c.HeapWiggle
	}
	if c.MinEntries != 0 {
		cfg.MinEntriesPerPage = c.MinEntries
	}
	if c.ExternalThreshold != 0 {
		cfg.ExternalThreshold = c.ExternalThreshold
	}
	if c.RebuildFactor != 0 {
		cfg.RebuildPageFactor = c.RebuildFactor
	}
	if c.ForceHeader != 0 {
		w := c.ForceHeader
		cfg.ForceHeaderSize = &w
	}
	return cfg
}

func (c *cli) flatConfig() (flatsource.Config, error) {
	cfg := flatsource.DefaultConfig()
	cfg.Field = c.Field
	if c.Delimiter != "" {
		d := c.Delimiter
		cfg.Separator = &d
	}
	cfg.SkipBlank = !c.Blank
	cfg.CommentChar = c.Comment
	cfg.InlineComments = c.Inline
	cfg.TrimTail = !c.KeepTail
	if cfg.InlineComments && cfg.CommentChar == "" {
		return cfg, fmt.Errorf("--inline requires --comment")
	}
	return cfg, nil
}

func (c *cli) resolveType() (string, error) {
	if c.Type != "guess" {
		return c.Type, nil
	}
	f, err := os.Open(c.Input)
	if err != nil {
		return "", err
	}
	defer f.Close()
	ok, err := sniff.LooksLikeUTF8FromReader(f)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("could not guess input type for %s; pass --type flat explicitly", c.Input)
	}
	return "flat", nil
}

func (c *cli) Run() error {
	inputType, err := c.resolveType()
	if err != nil {
		return err
	}
	if inputType != "flat" {
		return fmt.Errorf("unsupported input type %q", inputType)
	}

	flatCfg, err := c.flatConfig()
	if err != nil {
		return err
	}
	source, err := flatsource.New(c.Input, flatCfg)
	if err != nil {
		return err
	}
	defer source.Close()

	builder := ncd.NewBuilder(c.buildConfig(), source, c.Output)
	for {
		fmt.Printf("attempting: %s\n", builder.DescribeAttempt())
		done, err := builder.Attempt()
		fmt.Printf("  %s\n", builder.Result())
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

func main() {
	var cli cli
	ctx := kong.Parse(&cli,
		kong.Name("ncd-build"),
		kong.Description("Build a read-optimized, immutable NCD key-value store from a flat text file."),
		kong.UsageOnError(),
		kong.Vars{"version": buildinfo.Summary()},
	)
	ctx.FatalIfErrorf(ctx.Run())
}

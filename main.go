package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"unified/pkg/config"
	"unified/pkg/core"
	"unified/pkg/logging"
	"unified/pkg/progress"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	// Console logging until build applies its own settings.
	if err := logging.Setup(logging.Options{Output: stderr}); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitConfig
	}
	if len(args) < 1 {
		printUsage(stderr)
		return exitFailed
	}

	operation := args[0]
	switch operation {
	case "build":
		return handleBuild(args[1:], stdout, stderr)
	case "inspect":
		if len(args) != 2 {
			fmt.Fprintln(stderr, "Usage: unified inspect NAME.inst")
			return exitFailed
		}
		return handleInspect(args[1], stdout, stderr)
	case "verify":
		if len(args) != 3 {
			fmt.Fprintln(stderr, "Usage: unified verify NAME.inst ROOT")
			return exitFailed
		}
		return handleVerify(args[1], args[2], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return exitOK
	default:
		fmt.Fprintln(stderr, "Invalid operation:", operation)
		printUsage(stderr)
		return exitFailed
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `unified - build .inst installer archives

Usage:
  unified build -r DIR -o NAME [-u DIR] [-c] [--exclude GLOB]... [--config FILE]
  unified inspect NAME.inst
  unified verify NAME.inst ROOT
  unified help

Build options:
  -r, --root DIR          directory to package
  -o, --output-name NAME  archive name, written as NAME.inst
  -u, --update DIR        previous installation; files present there are listed for deletion
  -c, --compress          Huffman-encode file contents
  --exclude GLOB          skip root-relative paths matching GLOB (repeatable)
  --config FILE           read settings from a TOML or YAML file; flags take precedence
  --log-level LEVEL       trace, debug, info, warn or error
  --log-json              log structured JSON instead of console text`)
}

// stringList collects every occurrence of a repeatable flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parseBuildFlags reads build flags into a config overlay and returns the
// config file path, if any.
func parseBuildFlags(args []string, stderr io.Writer) (*config.Config, string, error) {
	var (
		cli        config.Config
		exclude    stringList
		configPath string
	)
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(stderr) }
	for _, name := range []string{"r", "root"} {
		fs.StringVar(&cli.Root, name, "", "directory to package")
	}
	for _, name := range []string{"o", "output-name"} {
		fs.StringVar(&cli.Output, name, "", "archive name without extension")
	}
	for _, name := range []string{"u", "update"} {
		fs.StringVar(&cli.Update, name, "", "previous installation directory")
	}
	for _, name := range []string{"c", "compress"} {
		fs.BoolVar(&cli.Compress, name, false, "Huffman-encode file contents")
	}
	fs.Var(&exclude, "exclude", "glob of root-relative paths to skip")
	fs.StringVar(&configPath, "config", "", "TOML or YAML config file")
	fs.StringVar(&cli.Log.Level, "log-level", "", "log level")
	fs.BoolVar(&cli.Log.JSON, "log-json", false, "log JSON")

	if err := fs.Parse(args); err != nil {
		return nil, "", fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	if fs.NArg() > 0 {
		return nil, "", fmt.Errorf("%w: unexpected argument %q", core.ErrConfig, fs.Arg(0))
	}
	cli.Exclude = exclude
	return &cli, configPath, nil
}

// loadBuildConfig layers the command line over the config file, or over the
// defaults when there is none.
func loadBuildConfig(args []string, stderr io.Writer) (*config.Config, error) {
	cli, configPath, err := parseBuildFlags(args, stderr)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return nil, err
		}
	}
	cfg.Merge(cli)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logOpts := cfg.Logging()
	logOpts.Output = stderr
	if err := logging.Setup(logOpts); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrConfig, err)
	}
	return cfg, nil
}

// handleBuild handles the build operation
func handleBuild(args []string, stdout, stderr io.Writer) int {
	cfg, err := loadBuildConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitConfig
	}

	res, err := core.Build(cfg.Options())
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		if errors.Is(err, core.ErrConfig) {
			return exitConfig
		}
		return exitFailed
	}

	fmt.Fprintf(stdout, "Wrote %s (%s, %d entries, %d deletions)\n",
		res.Path, progress.FormatSize(res.TotalSize), res.Entries, res.Deletions)
	for _, p := range res.Problems {
		fmt.Fprintln(stderr, "Warning:", p)
	}
	return exitOK
}

// handleInspect prints the header and every entry of an archive.
func handleInspect(path string, stdout, stderr io.Writer) int {
	a, err := core.Open(path)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFailed
	}
	h := a.Header

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Archive:\t%s\n", path)
	fmt.Fprintf(tw, "Revision:\t%d\n", h.Revision)
	fmt.Fprintf(tw, "Compressed:\t%v\n", a.Compressed())
	fmt.Fprintf(tw, "Deletions:\t%d\t[%d, %d)\n", len(a.Deletions), h.DeleterOffset, h.DeleterEnd)
	fmt.Fprintf(tw, "Dictionary:\t%d\t[%d, %d)\n", len(a.Dictionary), h.DictionaryOffset, h.DictionaryEnd)
	fmt.Fprintf(tw, "Content:\t%s\t[%d, %d)\n", progress.FormatSize(h.ContentEnd-h.ContentOffset), h.ContentOffset, h.ContentEnd)
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFailed
	}

	if len(a.Deletions) > 0 {
		fmt.Fprintln(stdout)
		for _, d := range a.Deletions {
			fmt.Fprintln(stdout, "delete", d.Path)
		}
	}

	fmt.Fprintln(stdout)
	tw = tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tOFFSET\tSTORED\tXXHASH\tPATH")
	for i, e := range a.Dictionary {
		digest := "-"
		if e.Type == core.TypeFile {
			sum, err := a.Digest(i)
			if err != nil {
				fmt.Fprintln(stderr, "Error:", err)
				return exitFailed
			}
			digest = fmt.Sprintf("%016x", sum)
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", e.Type, e.DataOffset, e.DataSize, digest, e.Path)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFailed
	}
	return exitOK
}

// handleVerify compares an archive against its source directory.
func handleVerify(path, root string, stdout, stderr io.Writer) int {
	report, err := core.Verify(path, root)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitFailed
	}
	for _, m := range report.Mismatches {
		fmt.Fprintf(stdout, "MISMATCH %s: %s\n", m.Path, m.Reason)
	}
	if !report.OK() {
		fmt.Fprintf(stdout, "%d of %d entries differ\n", len(report.Mismatches), report.Checked)
		return exitFailed
	}
	fmt.Fprintf(stdout, "OK, %d entries checked\n", report.Checked)
	return exitOK
}

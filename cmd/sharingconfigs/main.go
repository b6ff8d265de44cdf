// Package main provides a CLI for sharing configuration files through a
// remote folder service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/sharingconfigs/sharingconfigs/internal/config"
	"github.com/sharingconfigs/sharingconfigs/internal/logging"
	"github.com/sharingconfigs/sharingconfigs/pkg/client"
	"github.com/sharingconfigs/sharingconfigs/pkg/models"
	"github.com/sharingconfigs/sharingconfigs/pkg/protocol"
	"github.com/sharingconfigs/sharingconfigs/pkg/tree"
)

func main() {
	envFile := flag.String("env", ".env", "Dotenv file to load before reading the environment")
	verbose := flag.Bool("v", false, "Log every request")

	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	cmd, cmdArgs := args[0], args[1:]
	if cmd == "help" {
		printUsage()
		return
	}

	if err := config.LoadDotEnv(*envFile); err != nil {
		fail(err)
	}
	cfg := config.Load()
	if *verbose {
		cfg.LogLevel = "debug"
	}
	if err := logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}); err != nil {
		fail(err)
	}
	defer logging.Sync()

	if err := cfg.ValidateClient(); err != nil {
		fail(err)
	}
	c, err := client.New(cfg.Client(logging.L()))
	if err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	switch cmd {
	case "folders":
		err = cmdFolders(ctx, c, cmdArgs)
	case "choices":
		err = cmdChoices(ctx, c, cmdArgs)
	case "files", "ls":
		err = cmdFiles(ctx, c, cmdArgs)
	case "import":
		err = cmdImport(ctx, c, cmdArgs)
	case "export":
		err = cmdExport(ctx, c, cmdArgs)
	case "download":
		err = cmdDownload(ctx, c, cmdArgs)
	default:
		color.New(color.FgRed).Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logging.Sync()
		fail(err)
	}
}

func printUsage() {
	fmt.Println(`Sharing Configs CLI

Usage: sharingconfigs [flags] <command> [command flags] [args]

Flags:
  -env <file>        Dotenv file to load (default: .env)
  -v                 Log every request

Commands:
  folders [-permission p] [-json]             Show the folder tree
  choices [-permission p]                     List folder choices in display order
  files, ls <folder>                          List files of a folder
  import [-o path] <folder> <filename>        Fetch a file (-o - writes to stdout)
  export [-name n] [-author a] [-overwrite] <folder> <file>
                                              Upload a local file
  download [-o path] <url>                    Fetch a download link
  help                                        Show this help message

Environment:
  SHARING_CONFIGS_API_ENDPOINT, SHARING_CONFIGS_LABEL, SHARING_CONFIGS_API_KEY,
  SHARING_CONFIGS_AUTH_SCHEME (default: Token), SHARING_CONFIGS_TIMEOUT (default: 30s)

Examples:
  sharingconfigs folders -permission write
  sharingconfigs files reports
  sharingconfigs import -o settings.json reports settings.json
  sharingconfigs export -author alice reports ./settings.json`)
}

func fail(err error) {
	color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
	if apiErr, ok := client.AsAPIError(err); ok && apiErr.StatusCode == 401 {
		fmt.Fprintln(os.Stderr, "Check SHARING_CONFIGS_API_KEY and SHARING_CONFIGS_AUTH_SCHEME.")
	}
	os.Exit(1)
}

func permissionFlag(fs *flag.FlagSet, fallback string) *string {
	return fs.String("permission", fallback, "Permission filter: read, write, all or none")
}

func listFolders(ctx context.Context, c *client.Client, raw string) ([]models.FolderNode, error) {
	permission, ok := protocol.ParsePermission(raw)
	if !ok {
		return nil, fmt.Errorf("unknown permission %q", raw)
	}
	resp, err := c.ListFolders(ctx, permission)
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func cmdFolders(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("folders", flag.ExitOnError)
	permission := permissionFlag(fs, "")
	asJSON := fs.Bool("json", false, "Print the raw folder forest as JSON")
	fs.Parse(args)

	folders, err := listFolders(ctx, c, *permission)
	if err != nil {
		return err
	}
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(folders)
	}
	if len(folders) == 0 {
		fmt.Println("No folders")
		return nil
	}
	renderTree(os.Stdout, folders)
	fmt.Printf("\n%d folders\n", tree.CountNodes(folders))
	return nil
}

func renderTree(w io.Writer, folders []models.FolderNode) {
	tree.Walk(folders, func(node models.FolderNode, depth int) bool {
		fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), node.Name)
		return true
	})
}

func cmdChoices(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("choices", flag.ExitOnError)
	permission := permissionFlag(fs, string(protocol.PermissionRead))
	fs.Parse(args)

	folders, err := listFolders(ctx, c, *permission)
	if err != nil {
		return err
	}
	renderChoices(os.Stdout, tree.Choices(folders))
	return nil
}

func renderChoices(w io.Writer, choices []tree.Choice) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VALUE\tLABEL")
	for _, ch := range choices {
		value := ch.Value
		if value == "" {
			value = "-"
		}
		fmt.Fprintf(tw, "%s\t%s%s\n", value, strings.Repeat("  ", ch.Depth), ch.Label)
	}
	tw.Flush()
}

func cmdFiles(ctx context.Context, c *client.Client, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: files <folder>")
	}
	resp, err := c.ListFiles(ctx, args[0])
	if err != nil {
		return err
	}
	if len(resp.Results) == 0 {
		fmt.Println("No files")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FILENAME\tDOWNLOAD URL")
	fmt.Fprintln(w, "--------\t------------")
	for _, f := range resp.Results {
		fmt.Fprintf(w, "%s\t%s\n", f.Filename, f.DownloadURL)
	}
	return w.Flush()
}

func cmdImport(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	out := fs.String("o", "", "Output path (default: the filename in the current directory)")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: import [-o path] <folder> <filename>")
	}
	folder, filename := fs.Arg(0), fs.Arg(1)

	data, err := c.ImportFile(ctx, folder, filename)
	if err != nil {
		return err
	}
	path := *out
	if path == "" {
		path = filepath.Base(filename)
	}
	return writeOutput(path, data)
}

func cmdExport(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	name := fs.String("name", "", "Remote filename (default: base name of the file)")
	author := fs.String("author", os.Getenv("USER"), "Author recorded with the export")
	overwrite := fs.Bool("overwrite", false, "Replace an existing remote file")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: export [-name n] [-author a] [-overwrite] <folder> <file>")
	}
	folder, file := fs.Arg(0), fs.Arg(1)

	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	filename := *name
	if filename == "" {
		filename = filepath.Base(file)
	}

	resp, err := c.ExportFile(ctx, folder, models.NewExportPayload(filename, data, *author, *overwrite))
	if err != nil {
		return err
	}
	logging.Debug("export finished", zap.String("filename", resp.Filename), zap.String("commit", resp.Commit))

	color.Green("Exported %s to %s", resp.Filename, folder)
	fmt.Printf("Download: %s\n", resp.DownloadURL)
	if resp.Commit != "" {
		fmt.Printf("Commit:   %s\n", resp.Commit)
	}
	return nil
}

func cmdDownload(ctx context.Context, c *client.Client, args []string) error {
	fs := flag.NewFlagSet("download", flag.ExitOnError)
	out := fs.String("o", "-", "Output path (default: stdout)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: download [-o path] <url>")
	}
	data, err := c.DownloadFile(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	return writeOutput(*out, data)
}

// writeOutput writes data to path, or to stdout when path is "-".
func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	color.Green("Saved %s (%d bytes)", path, len(data))
	return nil
}

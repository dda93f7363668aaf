package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/landing/internal/scanner"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the discovered pages",
	Long: `List every page found under site.pages_dir with its script entry, its
template and the HTML file it is emitted as.

Examples:
  landing list              # table
  landing list -f json      # JSON
  landing list --format yaml`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var listFormat string

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table, json, yaml)")
	AddFlagValidation(listCmd.Flags(), "format", func(format string) error {
		return validateFormat(format, []string{"table", "json", "yaml"})
	})
}

// pageRow is one line of list output.
type pageRow struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title" yaml:"title"`
	Entry    string `json:"entry,omitempty" yaml:"entry,omitempty"`
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
	Output   string `json:"output,omitempty" yaml:"output,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}

	pages, err := scanner.NewPageScanner(cfg.Paths.Source, scanner.Options{
		PagesDir: cfg.Site.PagesDir,
		Logger:   logger,
	}).Resolve(cmd.Context())
	if err != nil {
		return err
	}

	rows := pageRows(cfg.Paths.Source, pages)
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "No pages found.")
		return nil
	}

	switch strings.ToLower(listFormat) {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	case "yaml":
		encoder := yaml.NewEncoder(out)
		defer encoder.Close()
		return encoder.Encode(rows)
	default:
		return outputTable(out, rows)
	}
}

func pageRows(source string, pages *scanner.Pages) []pageRow {
	templates := make(map[string]string, len(pages.Templates))
	for _, t := range pages.Templates {
		templates[t.Name] = t.Path
	}

	caser := cases.Title(language.English)
	names := pages.Names()
	rows := make([]pageRow, 0, len(names))
	for _, name := range names {
		row := pageRow{
			Name:     name,
			Title:    caser.String(strings.NewReplacer("/", " ", "-", " ", "_", " ").Replace(name)),
			Entry:    relTo(source, pages.Entries[name]),
			Template: relTo(source, templates[name]),
		}
		if row.Template != "" {
			row.Output = name + ".html"
		}
		rows = append(rows, row)
	}
	return rows
}

func relTo(root, path string) string {
	if path == "" {
		return ""
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func outputTable(out io.Writer, rows []pageRow) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTITLE\tENTRY\tTEMPLATE\tOUTPUT")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Title, dash(r.Entry), dash(r.Template), dash(r.Output))
	}
	return w.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	syntax "github.com/cptaffe/acme-syntax"
	"github.com/spf13/cobra"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate STYLE.yaml...",
		Short: "Check style definition files and report every problem",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			problems := 0
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				raw, err := syntax.ParseRaw(data)
				if err != nil {
					fmt.Fprintf(out, "%s: %v\n", path, err)
					problems++
					continue
				}
				for _, se := range syntax.Validate(raw) {
					fmt.Fprintf(out, "%s: %v\n", path, se)
					problems++
				}
			}
			if problems > 0 {
				return fmt.Errorf("%d problem(s)", problems)
			}
			return nil
		},
	}
}

func newHighlightCmd(a *app) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "highlight FILE",
		Short: "Print the highlight ranges of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, def, err := a.load(args[0], style)
			if err != nil {
				return err
			}
			res, err := a.engine.Highlight(cmd.Context(), text, def, syntax.FullDocument())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, r := range res.Ranges {
				fmt.Fprintf(tw, "%d\t%d\t%s\t%q\n", r.Start, r.End, r.Category, text.Slice(r.Range))
			}
			if res.Abandoned > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d match attempt(s) abandoned\n", res.Abandoned)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "style name (default: resolved from the file)")
	return cmd
}

func newOutlineCmd(a *app) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "outline FILE",
		Short: "Print the outline of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, def, err := a.load(args[0], style)
			if err != nil {
				return err
			}
			items, err := a.extract.Extract(cmd.Context(), text, def)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, it := range items {
				if it.IsSeparator {
					fmt.Fprintln(out, "--------")
					continue
				}
				fmt.Fprintf(out, "%s:%d\t%s\n", args[0], text.LineOf(it.Range.Start)+1, it.Title)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&style, "style", "s", "", "style name (default: resolved from the file)")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve FILE...",
		Short: "Print the style each file resolves to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, path := range args {
				name, ok := a.reg.ResolveDocument(path, readFirstLine(path))
				if !ok {
					name = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\n", path, name)
			}
			return tw.Flush()
		},
	}
}

func newStylesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "styles",
		Short: "List the registered styles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 1, ' ', 0)
			for _, name := range a.reg.Names() {
				def, _ := a.reg.Style(name)
				origin := "bundled"
				if a.reg.IsUserStyle(name) {
					origin = "user"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d rules\t%d errors\t%s\n",
					name, origin, def.RuleCount(), len(a.reg.Errors(name)),
					strings.Join(def.Files.Extensions, " "))
			}
			return tw.Flush()
		},
	}
}

// load reads path and picks its style: the named one, or the one path
// resolves to.
func (a *app) load(path, style string) (syntax.Text, *syntax.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return syntax.Text{}, nil, err
	}
	text := syntax.NewText(string(data))
	if style == "" {
		first := text.Slice(syntax.Range{Start: 0, End: text.LineEnd(0)})
		var ok bool
		style, ok = a.reg.ResolveDocument(filepath.Clean(path), first)
		if !ok {
			return text, nil, fmt.Errorf("%s: no style matches", path)
		}
	}
	def, ok := a.reg.Style(style)
	if !ok {
		return text, nil, fmt.Errorf("no style named %q", style)
	}
	return text, def, nil
}

func readFirstLine(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	var buf [256]byte
	n, _ := f.Read(buf[:])
	line, _, _ := strings.Cut(string(buf[:n]), "\n")
	return line
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/gwasupload/internal/core"
	"github.com/JonMunkholm/gwasupload/internal/gcs"
)

// optionFlags selects the column mapping for validate. At most one of
// --options, the column flags and --guess may be used; with none of them
// the standard layout is required.
type optionFlags struct {
	raw       string
	guess     bool
	chrom     int
	pos       int
	ref       int
	alt       int
	pvalue    int
	negLog    bool
	delimiter string
}

func (of *optionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&of.raw, "options", "", "Parser options as JSON")
	flags.BoolVar(&of.guess, "guess", false, "Use the column mapping suggested from the header")
	flags.IntVar(&of.chrom, "chrom", 0, "Chromosome column (1-based)")
	flags.IntVar(&of.pos, "pos", 0, "Position column (1-based)")
	flags.IntVar(&of.ref, "ref", 0, "Reference allele column (1-based)")
	flags.IntVar(&of.alt, "alt", 0, "Alternate allele column (1-based)")
	flags.IntVar(&of.pvalue, "pvalue", 0, "P-value column (1-based)")
	flags.BoolVar(&of.negLog, "neg-log-pvalue", false, "P-value column holds -log10(p)")
	flags.StringVar(&of.delimiter, "delimiter", "", "Field delimiter: tab, comma, space or a literal string")
}

func (of *optionFlags) columnsSet() bool {
	return of.chrom != 0 || of.pos != 0 || of.ref != 0 || of.alt != 0 || of.pvalue != 0
}

// resolve returns the options to confirm. defaults is true when the
// standard layout applies. preview is only consulted for --guess.
func (of *optionFlags) resolve(preview func() (core.Preview, error)) (opts core.ParserOptions, defaults bool, err error) {
	chosen := 0
	for _, set := range []bool{of.raw != "", of.columnsSet(), of.guess} {
		if set {
			chosen++
		}
	}
	if chosen > 1 {
		return opts, false, errors.New("use only one of --options, column flags and --guess")
	}

	switch {
	case of.raw != "":
		if err := json.Unmarshal([]byte(of.raw), &opts); err != nil {
			return opts, false, fmt.Errorf("--options: %w", err)
		}
	case of.columnsSet():
		opts = core.ParserOptions{
			ChromCol:       of.chrom,
			PosCol:         of.pos,
			RefCol:         of.ref,
			AltCol:         of.alt,
			PValueCol:      of.pvalue,
			IsNegLogPValue: of.negLog,
		}
	case of.guess:
		p, err := preview()
		if err != nil {
			return opts, false, err
		}
		if p.Suggested == nil {
			return opts, false, errors.New("no column mapping could be guessed from the header")
		}
		opts = *p.Suggested
	default:
		return core.StandardOptions(), true, nil
	}

	if of.delimiter != "" {
		opts.Delimiter = parseDelimiter(of.delimiter)
	}
	return opts, false, nil
}

func parseDelimiter(s string) string {
	switch strings.ToLower(s) {
	case "tab", `\t`:
		return "\t"
	case "comma":
		return ","
	case "space":
		return " "
	default:
		return s
	}
}

// openSource opens a local path or gs:// URL. The returned close func
// releases the file or storage client.
func openSource(ctx context.Context, target string) (src core.ByteSource, name string, closeFn func() error, err error) {
	if gcs.IsURL(target) {
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, "", nil, fmt.Errorf("storage client: %w", err)
		}
		obj, err := gcs.Open(ctx, client, target)
		if err != nil {
			client.Close()
			return nil, "", nil, err
		}
		return obj, path.Base(obj.Name()), client.Close, nil
	}

	f, err := core.OpenFile(target)
	if err != nil {
		return nil, "", nil, err
	}
	return f, filepath.Base(target), f.Close, nil
}

func previewCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview FILE",
		Short: "Show the preview lines, header and suggested columns of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, name, closeFn, err := openSource(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			reader := core.NewReader(name, src, ro.cfg.ReaderOptions())
			p, err := core.BuildPreview(ctx, reader)
			if err != nil {
				return err
			}
			if ro.jsonOut {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			return printPreview(cmd.OutOrStdout(), p)
		},
	}
}

func validateCommand(ro *rootOptions) *cobra.Command {
	of := &optionFlags{}
	cmd := &cobra.Command{
		Use:   "validate FILE",
		Short: "Check that a file would be accepted by the upload form",
		Long: `Runs the same checks as the upload form: size ceiling, header, parsing
and sort order of the first rows. Without column flags the file must use
the standard #chrom, pos, ref, alt, pvalue layout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			src, name, closeFn, err := openSource(ctx, args[0])
			if err != nil {
				return err
			}
			defer closeFn()

			v, err := check(ctx, ro, of, name, src)
			if err != nil {
				return err
			}
			if ro.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), v); err != nil {
					return err
				}
			} else {
				printValidity(cmd.OutOrStdout(), v)
			}
			if !v.Valid() {
				return errRejected
			}
			return nil
		},
	}
	of.register(cmd)
	return cmd
}

// check drives a controller through select and confirm for one file.
func check(ctx context.Context, ro *rootOptions, of *optionFlags, name string, src core.ByteSource) (core.Validity, error) {
	cfg := ro.cfg.ControllerConfig()
	cfg.Logger = ro.logger
	cfg.BaseContext = ctx
	ctrl := core.NewController(cfg)
	defer ctrl.Close()

	v := ctrl.SelectFile(name, src)
	if v.State == core.StateRejected {
		return v, nil
	}

	opts, defaults, err := of.resolve(func() (core.Preview, error) { return ctrl.Preview(ctx) })
	if err != nil {
		return v, err
	}

	var result <-chan core.Validity
	if defaults {
		result, err = ctrl.UseDefaultOptions()
	} else {
		result, err = ctrl.ConfirmOptions(opts)
	}
	if err != nil {
		return v, err
	}

	select {
	case v, ok := <-result:
		if !ok {
			return ctrl.State(), errors.New("validation was cancelled")
		}
		return v, nil
	case <-ctx.Done():
		return ctrl.State(), ctx.Err()
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPreview(w io.Writer, p core.Preview) error {
	for i, line := range p.Lines {
		marker := " "
		if i == p.DataStart {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %4d  %s\n", marker, i+1, line)
	}
	fmt.Fprintln(w)
	if p.DataStart < 0 {
		fmt.Fprintln(w, "data start: none found")
	} else {
		fmt.Fprintf(w, "data start: line %d\n", p.DataStart+1)
	}
	fmt.Fprintf(w, "delimiter:  %q\n", p.Delimiter)
	if len(p.HeaderFields) > 0 {
		fmt.Fprintf(w, "header:     %s\n", strings.Join(p.HeaderFields, ", "))
	}
	if p.Suggested != nil {
		raw, err := p.Suggested.Serialize()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "suggested:  %s\n", raw)
	}
	return nil
}

func printValidity(w io.Writer, v core.Validity) {
	switch v.State {
	case core.StateAccepted:
		fmt.Fprintf(w, "accepted: %s\n", v.FileName)
		if v.Summary != nil {
			fmt.Fprintf(w, "  %d data rows checked, chromosomes %s\n",
				v.Summary.DataRows, strings.Join(v.Summary.Chromosomes, ", "))
		}
		fmt.Fprintf(w, "  options: %s\n", v.Options)
	case core.StateRejected:
		fmt.Fprintf(w, "rejected: %s: %s (%s)\n", v.FileName, v.Message, v.Code)
	default:
		fmt.Fprintf(w, "%s: %s\n", v.State, v.FileName)
	}
}

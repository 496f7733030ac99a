// ytinfo inspects simulation outputs: it probes each path against the
// registered frontends, loads the metadata, and prints a summary.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sacielo/yt"
	_ "github.com/sacielo/yt/frontends/ramses"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var showFields bool
	cmd := &cobra.Command{
		Use:          "ytinfo <info-file>...",
		Short:        "Summarize simulation dataset metadata",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries := make([]string, len(args))
			var g errgroup.Group
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					ds, err := yt.Load(path)
					if err != nil {
						return err
					}
					summaries[i] = summarize(ds, showFields)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, s := range summaries {
				fmt.Fprint(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showFields, "fields", false, "list every stored and derived field")
	return cmd
}

func summarize(ds *yt.Dataset, showFields bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", ds.ID())

	t := ds.CurrentTime()
	fmt.Fprintf(&b, "  current_time: %g code_time", t.Value())
	if sec, err := t.InUnits("s"); err == nil {
		fmt.Fprintf(&b, " (%g s)", sec.Value())
	}
	fmt.Fprintln(&b)

	if w, err := ds.DomainWidth(); err == nil {
		fmt.Fprintf(&b, "  domain_width: %g code_length\n", w.Value())
	}

	stored := ds.FieldList()
	derived := ds.DerivedFieldList()
	fmt.Fprintf(&b, "  fields: %d stored, %d derived\n", len(stored), len(derived))
	if showFields {
		for _, k := range stored {
			fmt.Fprintf(&b, "    %s\n", k)
		}
		for _, k := range derived {
			fmt.Fprintf(&b, "    %s\n", k)
		}
	}

	counts := ds.ParticleTypeCounts()
	if len(counts) > 0 {
		types := make([]string, 0, len(counts))
		for typ := range counts {
			types = append(types, typ)
		}
		sort.Strings(types)
		fmt.Fprintf(&b, "  particles:")
		for _, typ := range types {
			fmt.Fprintf(&b, " %s=%d", typ, counts[typ])
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

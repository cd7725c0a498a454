package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ayusman/mjolnir/internal/store"
)

var (
	throwsLimit int
	throwsJSON  bool
)

var throwsCmd = &cobra.Command{
	Use:   "throws",
	Short: "Inspect the throw log",
}

var throwsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent throws, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			throws, err := st.Throws().List(throwsLimit)
			if err != nil {
				return err
			}
			if throwsJSON {
				return writeJSON(cmd, throws)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RELEASED\tSIDE\tKIND\tSPEED\tSPIN\tID")
			for _, t := range throws {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f m/s\t%.2f rad/s\t%s\n",
					t.ReleasedAt.Local().Format("2006-01-02 15:04:05"), t.Side, t.Kind, t.Speed, t.AngularSpeed, t.ID)
			}
			return tw.Flush()
		})
	},
}

var throwsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the throw log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(st *store.Store) error {
			stats, err := st.Throws().Stats()
			if err != nil {
				return err
			}
			if throwsJSON {
				return writeJSON(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Throws:     %d\n", stats.Count)
			fmt.Fprintf(out, "Max speed:  %.2f m/s\n", stats.MaxSpeed)
			fmt.Fprintf(out, "Avg speed:  %.2f m/s\n", stats.AvgSpeed)
			fmt.Fprintf(out, "Max spin:   %.2f rad/s\n", stats.MaxAngularSpeed)
			printCounts(cmd, "By side:", stats.BySide)
			printCounts(cmd, "By kind:", stats.ByKind)
			return nil
		})
	},
}

func init() {
	RootCmd.AddCommand(throwsCmd)
	throwsCmd.AddCommand(throwsListCmd)
	throwsCmd.AddCommand(throwsStatsCmd)
	throwsCmd.PersistentFlags().BoolVar(&throwsJSON, "json", false, "Print JSON")
	throwsListCmd.Flags().IntVarP(&throwsLimit, "limit", "n", 20, "Maximum number of throws (0 for all)")
}

func withStore(fn func(st *store.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCounts(cmd *cobra.Command, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title)
	for _, k := range keys {
		fmt.Fprintf(out, "  %-8s %d\n", k, counts[k])
	}
}

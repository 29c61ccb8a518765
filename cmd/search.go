package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/fileelf/fileelf/pkg/client"
	"github.com/fileelf/fileelf/pkg/config"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var (
	searchAddr  string
	searchFuzzy bool
	searchHot   bool
	searchRegex bool
	searchCopy  bool
	searchList  bool
)

var searchCmd = &cobra.Command{
	Use:     "search <entry>",
	Aliases: []string{"s"},
	Short:   "Query a running daemon and open the picked result",
	Long: `Query the locator daemon for an entry name, pick a result in an
interactive finder, and reveal it in the file manager. Use --copy to put
the picked path on the clipboard instead, or --list to print all results.`,
	Example: `  # Exact name lookup
  fileelf search report.pdf

  # Fuzzy lookup across hot directories
  fileelf search --hot --fuzzy reprot

  # Regex over tracked paths, print only
  fileelf search --regex '\.sql$' --list`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(searchAddr)

		var hits []client.Hit
		var err error
		switch {
		case searchRegex && !searchHot:
			hits, err = c.RegexSearch(args[0])
		case searchHot:
			hits, err = c.HotSearch(args[0], searchFuzzy, searchRegex)
		default:
			hits, err = c.Search(args[0], searchFuzzy)
		}
		if err != nil {
			return err
		}
		if len(hits) == 0 {
			return fmt.Errorf("no results for %q", args[0])
		}

		if searchList {
			for _, h := range hits {
				fmt.Println(h.Path)
			}
			return nil
		}

		idx, err := fuzzyfinder.Find(hits, func(i int) string {
			return hits[i].Path
		})
		if err != nil {
			return fmt.Errorf("no result selected")
		}
		picked := hits[idx].Path

		if searchCopy {
			if err := clipboard.WriteAll(picked); err != nil {
				return fmt.Errorf("copy to clipboard: %w", err)
			}
			fmt.Printf("Copied: %s\n", picked)
			return nil
		}

		fmt.Printf("Opening: %s\n", picked)
		return open.Start(filepath.Dir(picked))
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchAddr, "addr",
		fmt.Sprintf("http://127.0.0.1:%d", config.DefaultPort), "daemon address")
	searchCmd.Flags().BoolVar(&searchFuzzy, "fuzzy", false, "accept near matches")
	searchCmd.Flags().BoolVar(&searchHot, "hot", false, "scan hot directories on disk")
	searchCmd.Flags().BoolVar(&searchRegex, "regex", false, "treat the entry as a regular expression")
	searchCmd.Flags().BoolVar(&searchCopy, "copy", false, "copy the picked path instead of opening it")
	searchCmd.Flags().BoolVar(&searchList, "list", false, "print all results without the picker")
	rootCmd.AddCommand(searchCmd)
}

package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/streamvibe/streamvibe/internal/store"
	"github.com/streamvibe/streamvibe/internal/view"
)

var galleryCmdFlags struct {
	Page  int
	Limit int
}

var galleryCmd = &cobra.Command{
	Use:   "gallery",
	Short: "Browse the media gallery",
	Example: `streamvibe gallery
  streamvibe gallery --page 2 --limit 20`,
	Args: cobra.NoArgs,
	RunE: gallery,
}

var searchCmdFlags struct {
	Interactive bool
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search media by title, caption, location or tag",
	Long: `Search media by title, caption, location or tag. An empty query lists the first page of the gallery.

In interactive mode every line read from stdin is treated as the new content of
the search box. Searches are sent once typing pauses for the configured debounce delay.`,
	Example: `streamvibe search sunset
  streamvibe search --interactive`,
	Args: cobra.MaximumNArgs(1),
	RunE: search,
}

func init() {
	galleryCmd.Flags().IntVarP(&galleryCmdFlags.Page, "page", "p", 1, "Page to show")
	galleryCmd.Flags().IntVarP(&galleryCmdFlags.Limit, "limit", "l", 0, "Items per page (default from config)")

	searchCmd.Flags().BoolVarP(&searchCmdFlags.Interactive, "interactive", "i", false, "Read queries from stdin as you type")

	rootCmd.AddCommand(galleryCmd, searchCmd)
}

func gallery(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.restore(cmd.Context()); err != nil {
		return err
	}

	if err := a.media.ListMedia(cmd.Context(), galleryCmdFlags.Page, galleryCmdFlags.Limit); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), view.Gallery(a.media.Snapshot()))
	return nil
}

func search(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.restore(cmd.Context()); err != nil {
		return err
	}

	if searchCmdFlags.Interactive {
		return searchInteractive(cmd, a)
	}

	var query string
	if len(args) > 0 {
		query = args[0]
	}
	if err := a.media.SearchMedia(cmd.Context(), query); err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), view.Gallery(a.media.Snapshot()))
	return nil
}

// searchInteractive renders the gallery every time a debounced search settles.
func searchInteractive(cmd *cobra.Command, a *app) error {
	out := cmd.OutOrStdout()
	cancel := a.media.Subscribe(func(st store.MediaState) {
		if st.Loading {
			return
		}
		fmt.Fprint(out, view.Gallery(st))
	})
	defer cancel()

	fmt.Fprintln(out, view.Subtle(fmt.Sprintf("Type to search, results appear %s after you stop. Ctrl-D to quit.", a.cfg.SearchDebounce)))

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if err := a.media.SearchDebounced(cmd.Context(), strings.TrimRight(scanner.Text(), "\r")); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read search input: %w", err)
	}

	a.media.WaitForSearch()
	return a.media.Snapshot().Error
}

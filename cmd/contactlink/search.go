package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/kennyhq/contactlink/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search-contacts [query]",
	Short: "Fuzzy search contacts by name or company",
	Long: `Rank contacts by how well their display name or company matches the query.
Nicknames, typos and sound-alike spellings are tolerated.

Without a query an interactive prompt is started; press Ctrl+D to leave.
When stdin is not a terminal, each input line is searched in turn.

Examples:
  contactlink search-contacts "Mike Johnson"
  contactlink search-contacts acme
  contactlink search-contacts`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openContactStore(ctx)
		defer store.Close()

		searcher := search.New(store, cfg.Search)
		if len(args) > 0 {
			query := strings.Join(args, " ")
			matches, err := searcher.Search(ctx, query)
			if err != nil {
				fatalf("%v", err)
			}
			printContactMatches(os.Stdout, query, matches)
			return
		}

		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			if err := searchLines(ctx, searcher, os.Stdin, os.Stdout); err != nil {
				fatalf("%v", err)
			}
			return
		}
		if err := searchPrompt(ctx, searcher); err != nil {
			fatalf("%v", err)
		}
	},
}

// searchPrompt reads queries until EOF and prints the matches of each
func searchPrompt(ctx context.Context, searcher *search.Searcher) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            cyan("search> "),
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s Type a name or company, Ctrl+D to exit\n", gray("→"))
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "exit" || query == "quit" {
			return nil
		}
		matches, err := searcher.Search(ctx, query)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		printContactMatches(rl.Stdout(), query, matches)
	}
}

// searchLines searches every non-empty line of r
func searchLines(ctx context.Context, searcher *search.Searcher, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		matches, err := searcher.Search(ctx, query)
		if err != nil {
			return err
		}
		printContactMatches(w, query, matches)
	}
	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

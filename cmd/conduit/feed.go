package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TobiSchelling/conduit/internal/feed"
	"github.com/TobiSchelling/conduit/internal/render"
	"github.com/spf13/cobra"
)

var (
	feedPersonal  bool
	feedTag       string
	feedAuthor    string
	feedFavorited string
	feedPage      int
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "List articles, globally or from people you follow",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		q := feed.Query{
			Tag:         feedTag,
			Author:      feedAuthor,
			FavoritedBy: feedFavorited,
			Page:        feedPage,
		}
		if feedPersonal {
			q.Scope = feed.Personal
		}

		e := feed.New(a.client, a.sess)
		defer e.Close()
		// Load resets to page one when the filter differs from the last
		// query, so the requested page is applied in a second step.
		if _, err := e.Load(cmd.Context(), q.WithPage(1)); err != nil {
			return feedError(e, err)
		}
		page := e.Page()
		if feedPage > 1 {
			if page, err = e.SetPage(cmd.Context(), feedPage); err != nil {
				return feedError(e, err)
			}
		}

		printPage(cmd.OutOrStdout(), e.Query(), page)
		return nil
	},
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List popular tags",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		tags, err := feed.New(a.client, a.sess).Tags(cmd.Context())
		if err != nil {
			return describe(err)
		}
		if len(tags) == 0 {
			fmt.Println("No tags are here... yet.")
			return nil
		}
		fmt.Println(strings.Join(tags, "  "))
		return nil
	},
}

// feedError explains a failed load. A load cut short by the session ending
// reports the state the engine was left in.
func feedError(e *feed.Engine, err error) error {
	if errors.Is(err, feed.ErrStale) && e.Err() != nil {
		err = e.Err()
	}
	if errors.Is(err, feed.ErrPersonalFeedRequiresSession) {
		return fmt.Errorf("your feed needs a login; run 'conduit login' first")
	}
	return describe(err)
}

// printPage writes a listing followed by the pager line.
func printPage(w io.Writer, q feed.Query, page feed.Page) {
	if len(page.Items) == 0 {
		fmt.Fprintln(w, "No articles are here... yet.")
		return
	}
	now := time.Now()
	for i, art := range page.Items {
		if i > 0 {
			fmt.Fprintln(w)
		}
		render.ArticleSummary(w, art, now)
	}
	fmt.Fprintln(w)
	render.Pager(w, q.Page, page.TotalPages())
}

func init() {
	feedCmd.Flags().BoolVar(&feedPersonal, "personal", false, "Show articles from people you follow")
	feedCmd.Flags().StringVar(&feedTag, "tag", "", "Only articles with this tag")
	feedCmd.Flags().StringVar(&feedAuthor, "author", "", "Only articles by this user")
	feedCmd.Flags().StringVar(&feedFavorited, "favorited", "", "Only articles favorited by this user")
	feedCmd.Flags().IntVar(&feedPage, "page", 1, "Page number")
}

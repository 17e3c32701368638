package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/TobiSchelling/conduit/internal/comments"
	"github.com/TobiSchelling/conduit/internal/editor"
	"github.com/TobiSchelling/conduit/internal/mutation"
	"github.com/TobiSchelling/conduit/internal/render"
	"github.com/TobiSchelling/conduit/internal/view"
	"github.com/spf13/cobra"
)

var articleCmd = &cobra.Command{
	Use:   "article",
	Short: "Read, favorite or delete an article",
}

var (
	showHTML     bool
	showComments bool
	assumeYes    bool
)

var articleShowCmd = &cobra.Command{
	Use:   "show <slug>",
	Short: "Print an article",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		detail := view.NewArticleDetail(a.client)
		art, err := detail.Load(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}

		out := cmd.OutOrStdout()
		render.ArticleDetail(out, art, showHTML)
		if detail.IsOwn(a.sess.Viewer()) {
			fmt.Fprintf(out, "\nYou wrote this. Edit with 'conduit editor edit %s'.\n", art.Slug)
		}
		if !showComments {
			return nil
		}

		thread := comments.New(a.client, a.sess)
		list, err := thread.Load(cmd.Context(), art.Slug)
		if err != nil {
			return describe(err)
		}
		fmt.Fprintf(out, "\n%d comments\n\n", len(list))
		for _, c := range list {
			render.Comment(out, c, comments.CanDelete(c, a.sess.Viewer()))
		}
		return nil
	},
}

var articleFavoriteCmd = &cobra.Command{
	Use:   "favorite <slug>",
	Short: "Favorite an article, or unfavorite it if already favorited",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		detail := view.NewArticleDetail(a.client)
		if _, err := detail.Load(cmd.Context(), args[0]); err != nil {
			return describe(err)
		}
		updated, err := mutation.New(a.client, a.sess).ToggleFavorite(cmd.Context(), detail, args[0])
		if err != nil {
			return describe(err)
		}
		state := "Unfavorited"
		if updated.Favorited {
			state = "Favorited"
		}
		fmt.Printf("%s %q (%s)\n", state, updated.Title, render.Count(updated.FavoritesCount))
		return nil
	},
}

var articleDeleteCmd = &cobra.Command{
	Use:   "delete <slug>",
	Short: "Delete one of your articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		err = mutation.New(a.client, a.sess).DeleteArticle(cmd.Context(), args[0], stdinConfirmer{assumeYes: assumeYes})
		if errors.Is(err, mutation.ErrNotConfirmed) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err != nil {
			return describe(err)
		}
		fmt.Printf("Deleted %s\n", args[0])
		return nil
	},
}

var editorCmd = &cobra.Command{
	Use:   "editor",
	Short: "Write new articles or edit your own",
}

var (
	draftTitle       string
	draftDescription string
	draftBody        string
	draftBodyFile    string
	draftTags        string
	draftRemoveTags  []string
)

var editorNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Publish a new article",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		var d editor.Draft
		if err := applyDraftFlags(cmd, &d); err != nil {
			return err
		}
		art, err := editor.New(a.client, a.sess).Create(cmd.Context(), d)
		if err != nil {
			return describe(err)
		}
		fmt.Printf("Published %q as %s\n", art.Title, art.Slug)
		return nil
	},
}

var editorEditCmd = &cobra.Command{
	Use:   "edit <slug>",
	Short: "Change one of your articles",
	Long:  "Loads the article, applies the flags you pass and sends only what changed.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		ed := editor.New(a.client, a.sess)
		d, err := ed.Load(cmd.Context(), args[0])
		if errors.Is(err, editor.ErrNotAuthor) {
			return fmt.Errorf("%s belongs to someone else", args[0])
		}
		if err != nil {
			return describe(err)
		}
		if err := applyDraftFlags(cmd, &d); err != nil {
			return err
		}
		for _, t := range draftRemoveTags {
			d.RemoveTag(t)
		}

		art, err := ed.Publish(cmd.Context(), d)
		if errors.Is(err, editor.ErrNoChanges) {
			fmt.Println("Nothing changed.")
			return nil
		}
		if err != nil {
			return describe(err)
		}
		fmt.Printf("Updated %s\n", art.Slug)
		return nil
	},
}

// applyDraftFlags copies the flags the user actually passed into d.
func applyDraftFlags(cmd *cobra.Command, d *editor.Draft) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		d.Title = draftTitle
	}
	if flags.Changed("description") {
		d.Description = draftDescription
	}
	if flags.Changed("body") {
		d.Body = draftBody
	}
	if draftBodyFile != "" {
		data, err := os.ReadFile(draftBodyFile)
		if err != nil {
			return fmt.Errorf("reading body: %w", err)
		}
		d.Body = strings.TrimRight(string(data), "\n")
	}
	if draftTags != "" {
		d.AddTags(draftTags)
	}
	return nil
}

func init() {
	articleShowCmd.Flags().BoolVar(&showHTML, "html", false, "Render the body as HTML")
	articleShowCmd.Flags().BoolVar(&showComments, "comments", false, "Include the comment thread")
	articleDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	articleCmd.AddCommand(articleShowCmd)
	articleCmd.AddCommand(articleFavoriteCmd)
	articleCmd.AddCommand(articleDeleteCmd)

	for _, c := range []*cobra.Command{editorNewCmd, editorEditCmd} {
		c.Flags().StringVar(&draftTitle, "title", "", "Article title")
		c.Flags().StringVar(&draftDescription, "description", "", "What's this article about?")
		c.Flags().StringVar(&draftBody, "body", "", "Article body in markdown")
		c.Flags().StringVar(&draftBodyFile, "body-file", "", "Read the body from a file")
		c.Flags().StringVar(&draftTags, "tags", "", "Tags to add, comma or space separated")
	}
	editorEditCmd.Flags().StringSliceVar(&draftRemoveTags, "remove-tag", nil, "Tags to remove")

	editorCmd.AddCommand(editorNewCmd)
	editorCmd.AddCommand(editorEditCmd)
}

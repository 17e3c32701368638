package main

import (
	"fmt"

	"github.com/TobiSchelling/conduit/internal/feed"
	"github.com/TobiSchelling/conduit/internal/mutation"
	"github.com/TobiSchelling/conduit/internal/render"
	"github.com/TobiSchelling/conduit/internal/view"
	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and follow people",
}

var (
	profileFavorites bool
	profilePage      int
)

var profileShowCmd = &cobra.Command{
	Use:   "show <username>",
	Short: "Show a profile with its articles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		pv := view.NewProfileView(a.client, feed.New(a.client, a.sess))
		defer pv.Close()

		p, err := pv.Load(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		if profileFavorites {
			if _, err := pv.SelectTab(cmd.Context(), view.FavoritesTab); err != nil {
				return describe(err)
			}
		}
		if profilePage > 1 {
			if _, err := pv.SetPage(cmd.Context(), profilePage); err != nil {
				return describe(err)
			}
		}

		out := cmd.OutOrStdout()
		render.Profile(out, p)
		if pv.IsOwn(a.sess.Viewer()) {
			fmt.Fprintln(out, "  (you; change it with 'conduit settings')")
		}
		fmt.Fprintf(out, "\n%s\n\n", pv.Tab())
		e := pv.Feed()
		printPage(out, e.Query(), e.Page())
		return nil
	},
}

var profileFollowCmd = &cobra.Command{
	Use:   "follow <username>",
	Short: "Follow someone, or unfollow if you already do",
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

		pv := view.NewProfileView(a.client, feed.New(a.client, a.sess))
		defer pv.Close()
		if _, err := pv.Load(cmd.Context(), args[0]); err != nil {
			return describe(err)
		}
		if pv.IsOwn(a.sess.Viewer()) {
			return fmt.Errorf("you cannot follow yourself")
		}

		p, err := mutation.New(a.client, a.sess).ToggleFollow(cmd.Context(), pv, args[0])
		if err != nil {
			return describe(err)
		}
		if p.Following {
			fmt.Printf("Following %s\n", p.Username)
		} else {
			fmt.Printf("Unfollowed %s\n", p.Username)
		}
		return nil
	},
}

func init() {
	profileShowCmd.Flags().BoolVar(&profileFavorites, "favorites", false, "Show favorited articles instead of authored ones")
	profileShowCmd.Flags().IntVar(&profilePage, "page", 1, "Page number")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileFollowCmd)
}

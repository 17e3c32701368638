package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TobiSchelling/conduit/internal/comments"
	"github.com/TobiSchelling/conduit/internal/render"
	"github.com/spf13/cobra"
)

var commentsCmd = &cobra.Command{
	Use:   "comments",
	Short: "Read and write comments on an article",
}

var commentsListCmd = &cobra.Command{
	Use:   "list <slug>",
	Short: "List comments, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := comments.New(a.client, a.sess).Load(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		if len(list) == 0 {
			fmt.Println("No comments yet.")
			return nil
		}
		viewer := a.sess.Viewer()
		for _, c := range list {
			render.Comment(cmd.OutOrStdout(), c, comments.CanDelete(c, viewer))
		}
		return nil
	},
}

var commentsAddCmd = &cobra.Command{
	Use:   "add <slug> <body...>",
	Short: "Post a comment",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		thread := comments.New(a.client, a.sess)
		c, err := thread.Create(cmd.Context(), args[0], strings.Join(args[1:], " "))
		if err != nil {
			return describe(err)
		}
		fmt.Printf("Posted comment %s\n", c.ID)
		return nil
	},
}

var commentsDeleteCmd = &cobra.Command{
	Use:   "delete <slug> <id>",
	Short: "Delete one of your comments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		thread := comments.New(a.client, a.sess)
		if _, err := thread.Load(cmd.Context(), args[0]); err != nil {
			return describe(err)
		}
		err = thread.Delete(cmd.Context(), args[0], args[1], stdinConfirmer{assumeYes: assumeYes})
		if errors.Is(err, comments.ErrNotConfirmed) {
			fmt.Println("Cancelled.")
			return nil
		}
		if err != nil {
			return describe(err)
		}
		fmt.Printf("Deleted comment %s\n", args[1])
		return nil
	},
}

func init() {
	commentsDeleteCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Do not ask for confirmation")

	commentsCmd.AddCommand(commentsListCmd)
	commentsCmd.AddCommand(commentsAddCmd)
	commentsCmd.AddCommand(commentsDeleteCmd)
}

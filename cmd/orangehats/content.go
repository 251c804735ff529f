package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var contentCmd = &cobra.Command{
	Use:   "content",
	Short: "Research mirror commands",
}

var contentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List mirrored posts, newest first",
	RunE:  runContentList,
}

var contentRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Regenerate every mirror file from the database",
	RunE:  runContentRebuild,
}

func init() {
	contentCmd.AddCommand(contentListCmd, contentRebuildCmd)
}

func runContentList(cmd *cobra.Command, args []string) error {
	a, err := openApp(context.Background())
	if err != nil {
		return err
	}
	defer a.Close()

	posts, err := a.Research().Posts()
	if err != nil {
		return err
	}
	if len(posts) == 0 {
		fmt.Println("No posts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PUBLISHED\tSLUG\tTITLE")
	for _, p := range posts {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.PublishedAt, p.Slug, p.Title)
	}
	return w.Flush()
}

func runContentRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	n, err := a.Research().RebuildMirrors(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Mirror files rebuilt: %d\n", n)
	return nil
}

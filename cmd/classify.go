package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/rulecover/internal/engine"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <rules> [input...]",
	Short: "Show the categories assigned to each word",
	Long: `Classifies every unit of every input line and prints one word per line as
surface, a tab, and its sorted categories. Lines are separated by a blank
line. Useful for finding out why a line has no coverage.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().String("lemma-source", "", "lemma matched by categories: surface or reading")
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	doc, err := loadDocument(args[0])
	if err != nil {
		return err
	}
	eng := buildEngine(doc, cfg)

	job := &runJob{inputs: args[1:], stdin: cmd.InOrStdin()}
	if len(job.inputs) == 0 {
		if !stdinIsPiped() {
			return ErrNoInput
		}
		job.inputs = []string{"-"}
	}
	sources, err := job.expandInputs()
	if err != nil {
		return err
	}

	ctx, cancel := setupSignalContext(printerFor(cmd))
	defer cancel()

	lines := make(chan engine.Line)
	feedErr := make(chan error, 1)
	go func() {
		defer close(lines)
		feedErr <- job.feed(ctx, sources, lines)
	}()

	w := bufio.NewWriter(cmd.OutOrStdout())
	for line := range lines {
		for _, word := range eng.Classify(line.Text) {
			fmt.Fprintf(w, "%s\t%s\n", word.Surface, strings.Join(word.Categories.Sorted(), " "))
		}
		fmt.Fprintln(w)
	}
	if err := <-feedErr; err != nil {
		return err
	}
	return w.Flush()
}

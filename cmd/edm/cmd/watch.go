package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceEDM/pkg/contour"
	"github.com/OpenTraceLab/OpenTraceEDM/pkg/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch <file>",
	Short: "Reparse a program every time it changes",
	Long: `Watch a program and print a summary after every change, until
interrupted. Useful next to an editor or a CAM post-processor.

Examples:
  edm watch part.iso
  edm watch --debounce 500ms part.iso`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watch.DefaultDebounce, "delay before reparsing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	w, err := watch.New(args[0], watch.Options{
		Parser:   cfg.ParserOptions(),
		Contour:  cfg.ContourOptions(),
		Debounce: watchDebounce,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()

	printTitle("Watching %s (Ctrl+C to stop)", w.File())
	for u := range w.Updates() {
		printUpdate(u)
	}
	if err := <-errc; err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func printUpdate(u watch.Update) {
	stamp := time.Now().Format("15:04:05")
	if u.Err != nil {
		fmt.Printf("[%s] %s\n", stamp, errorStyle.Render(u.Err.Error()))
		return
	}
	st := u.Result.Stats
	fmt.Printf("[%s] %d moves, %d contours (%d closed), cut %.4f, rapid %.4f\n",
		stamp, st.Moves, len(u.Contours), len(contour.Closed(u.Contours)), st.CutLength, st.RapidLength)
	printWarnings(u.Warnings, 5)
}

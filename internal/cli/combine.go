package cli

import (
	"fmt"
	"strings"

	"github.com/MattB543/textpress-matt-test/internal/orchestrator"
	"github.com/MattB543/textpress-matt-test/internal/service"

	"github.com/spf13/cobra"
)

func newCombineCmd(opts *options) *cobra.Command {
	var (
		title   string
		labels  []string
		retries int
	)

	cmd := &cobra.Command{
		Use:   "combine <input> <input>...",
		Short: "Convert several inputs and publish them as one document",
		Long: "Convert several inputs in parallel and, once all of them succeed, publish a\n" +
			"combined document with the parts in argument order. Inputs are files,\n" +
			"http(s) URLs or - for stdin.",
		Args: cobra.RangeArgs(2, service.MaxSessionSlots),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(labels) > 0 && len(labels) != len(args) {
				return fmt.Errorf("got %d --label values for %d inputs", len(labels), len(args))
			}
			inputs, err := parseInputs(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			slots := make([]slotInput, len(inputs))
			for i, in := range inputs {
				slots[i] = slotInput{Input: in}
				if len(labels) > 0 {
					slots[i].Title = strings.TrimSpace(labels[i])
				}
			}

			log := opts.newLogger()
			api, err := opts.newClient(log)
			if err != nil {
				return err
			}
			o, err := orchestrator.New(api, orchestrator.Options{
				Mode:                  orchestrator.ModeCombine,
				Slots:                 len(slots),
				CombinedTitle:         title,
				ConvertTimeout:        opts.timeout,
				CombineTimeout:        opts.timeout,
				MaxConcurrentConverts: opts.maxConcurrentConverts,
				Logger:                log,
			})
			if err != nil {
				return err
			}
			defer func() {
				o.Close()
				o.Wait()
			}()

			w := &watcher{o: o, inputs: slots, retries: retries, out: cmd.ErrOrStderr()}
			snap, err := w.run(contextOrBackground(cmd))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, snap.Result.PublicURL)
			for i, u := range snap.Result.ComponentURLs {
				fmt.Fprintf(out, "  %d. %s %s\n", i+1, snap.Slots[i].Label, u)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Title of the combined document")
	cmd.Flags().StringArrayVar(&labels, "label", nil, "Section title per input, in argument order")
	cmd.Flags().IntVar(&retries, "retries", 0, "Times to retry each failed conversion and a failed combine")
	return cmd
}

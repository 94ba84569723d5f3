package cli

import (
	"context"
	"fmt"

	"github.com/MattB543/textpress-matt-test/internal/orchestrator"

	"github.com/spf13/cobra"
)

func newConvertCmd(opts *options) *cobra.Command {
	var (
		title   string
		retries int
	)

	cmd := &cobra.Command{
		Use:   "convert <file|url|->",
		Short: "Publish a single file, web page or stdin text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}

			log := opts.newLogger()
			api, err := opts.newClient(log)
			if err != nil {
				return err
			}
			o, err := orchestrator.New(api, orchestrator.Options{
				Mode:           orchestrator.ModeSingle,
				Slots:          1,
				ConvertTimeout: opts.timeout,
				Logger:         log,
			})
			if err != nil {
				return err
			}
			defer func() {
				o.Close()
				o.Wait()
			}()

			w := &watcher{o: o, inputs: []slotInput{{Input: input, Title: title}}, retries: retries, out: cmd.ErrOrStderr()}
			snap, err := w.run(contextOrBackground(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snap.Slots[0].PublicURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Label shown in progress output")
	cmd.Flags().IntVar(&retries, "retries", 0, "Times to retry a failed conversion")
	return cmd
}

// contextOrBackground guards commands executed without ExecuteContext.
func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

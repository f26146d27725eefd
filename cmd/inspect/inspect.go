package inspect

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/container"
	"github.com/neurokit/neurokit-go/internal/observability"
)

// Command creates the inspect command for summarizing an epoch container.
func Command(settings *conf.Settings, metrics *observability.Metrics) *cobra.Command {
	var showEvents bool

	cmd := &cobra.Command{
		Use:   "inspect [input" + container.Ext + "]",
		Short: "Summarize an epoch container file",
		Long:  `Read an epoch container, following any continuation chunks, and print a summary of its contents.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ser := container.New(metrics.Container)
			store, err := ser.Read(args[0])
			if err != nil {
				return err
			}
			store.SetMetrics(metrics.Epochs)

			fmt.Fprint(cmd.OutOrStdout(), store.Describe())

			if showEvents {
				names := make(map[int32]string)
				for name, code := range store.EventIDs() {
					names[code] = name
				}
				for i, ev := range store.Events() {
					fmt.Fprintf(cmd.OutOrStdout(), "%4d  sample %d  %q (code %d)\n",
						i, ev.Sample, names[ev.Code], ev.Code)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&showEvents, "events", false, "List the events of each kept epoch")

	return cmd
}

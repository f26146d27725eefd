package split

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neurokit/neurokit-go/internal/conf"
	"github.com/neurokit/neurokit-go/internal/container"
	"github.com/neurokit/neurokit-go/internal/observability"
)

// Command creates the split command for rewriting a container under a
// per-file byte budget.
func Command(settings *conf.Settings, metrics *observability.Metrics) *cobra.Command {
	var opts container.WriteOptions

	cmd := &cobra.Command{
		Use:   "split [input" + container.Ext + "] [output" + container.Ext + "]",
		Short: "Rewrite an epoch container under a size budget",
		Long: `Read an epoch container, following any continuation chunks, and write it
back out split across numbered files so that no file exceeds the byte budget.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ser := container.New(metrics.Container)
			store, err := ser.Read(args[0])
			if err != nil {
				return err
			}
			store.SetMetrics(metrics.Epochs)

			written, err := ser.Write(store, args[1], opts)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&opts.MaxFileSize, "max-size", settings.Container.MaxFileSize, "Per-file byte budget, 0 disables splitting")
	cmd.Flags().StringVar(&opts.SplitNaming, "naming", settings.Container.SplitNaming, "Chunk naming scheme: legacy or structured")
	cmd.Flags().IntVar(&opts.MaxSplits, "max-splits", settings.Container.MaxSplits, "Refuse writes planning more chunk files than this")
	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", settings.Container.Overwrite, "Allow replacing existing destination files")

	return cmd
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"code.hybscloud.com/halo/internal/chain"
	"code.hybscloud.com/halo/internal/config"
	"code.hybscloud.com/halo/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "halo",
		Short: "Halo exchange over bounded message buffers",
		Long: `halo exchanges data attached to local index sets between ranks ` +
			`through bounded message buffers. The run command drives a 1-D ` +
			`decomposition on an in-process fabric and checks every exchange.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to YAML config file (env HALO_CONFIG)")
	root.PersistentFlags().String("log-level", "info", "log level: trace, debug, info, warn, error")
	root.PersistentFlags().String("log-format", "console", "log format: console or json")
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run forward and backward exchanges on a chain of ranks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			log, sync := logging.New(cfg.Log, cmd.ErrOrStderr())
			defer func() { _ = sync() }()

			rep, err := chain.Run(chain.Options{
				Ranks:      cfg.Ranks,
				Entries:    cfg.Entries,
				BufferSize: cfg.BufferSize,
				Variable:   cfg.Variable,
				EmptyRank:  cfg.EmptyRank,
				Rounds:     cfg.Rounds,
			}, log)
			if err != nil {
				log.Error(err, "exchange failed")
				return err
			}
			log.Info("all exchanges verified", "exchanges", rep.Exchanges, "sharedEntries", rep.Entries)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d exchanges over %d ranks, %d shared entries\n",
				rep.Exchanges, cfg.Ranks, rep.Entries)
			return err
		},
	}
	def := config.Default()
	cmd.Flags().Int("ranks", def.Ranks, "number of in-process ranks")
	cmd.Flags().Int("entries", def.Entries, "length of the decomposed index range")
	cmd.Flags().Int("buffer-size", def.BufferSize, "message buffer capacity in elements")
	cmd.Flags().Bool("variable", def.Variable, "use the variable-size discipline")
	cmd.Flags().Bool("empty-rank", def.EmptyRank, "leave the last rank out of the decomposition")
	cmd.Flags().Int("rounds", def.Rounds, "number of forward/backward pairs")
	return cmd
}

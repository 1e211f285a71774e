package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := buildLogger(cfg)
			defer logger.Sync()

			eng := openEngine(cfg, logger)
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout())
			defer cancel()

			if err := eng.Set(ctx, args[0], []byte(args[1])); err != nil {
				eng.Close(ctx)
				return err
			}
			if err := eng.Close(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := buildLogger(cfg)
			defer logger.Sync()

			eng := openEngine(cfg, logger)
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout())
			defer cancel()
			defer eng.Close(ctx)

			value, found, err := eng.Get(ctx, args[0])
			if err != nil {
				return err
			}

			if found {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", string(value))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "(nil)")
			}

			return nil
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del <key> [key...]",
		Short: "Delete one or more keys",
		Long: `Delete one or more keys in a single batch.

Deletes are applied unconditionally: the printed count is the number of
keys submitted, not the number of keys that existed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := buildLogger(cfg)
			defer logger.Sync()

			eng := openEngine(cfg, logger)
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout())
			defer cancel()

			for _, key := range args {
				eng.DeleteAsync(key)
			}
			if err := eng.Flush(ctx); err != nil {
				eng.Close(ctx)
				return err
			}
			if err := eng.Close(ctx); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "(integer) %d\n", len(args))
			return nil
		},
	}
}

func destroyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Close the store and erase all of its data",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			logger := buildLogger(cfg)
			defer logger.Sync()

			eng := openEngine(cfg, logger)
			ctx, cancel := context.WithTimeout(context.Background(), opTimeout())
			defer cancel()

			if err := eng.Destroy(ctx); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), "OK")
			return nil
		},
	}
}

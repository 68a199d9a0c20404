package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dukerupert/choreledger/internal/backup"
)

func (a *app) backupConfig() backup.Config {
	b := a.cfg.Backup
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  b.Endpoint,
			Bucket:    b.Bucket,
			Region:    b.Region,
			AccessKey: b.AccessKey,
			SecretKey: b.SecretKey,
		},
		Prefix:        b.Prefix,
		Passphrase:    b.Passphrase,
		RetentionDays: b.RetentionDays,
	}
}

func newBackupCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Upload one encrypted database snapshot and prune old ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			mgr := backup.NewManager(a.backupConfig(), db, nil, a.logger)
			b, err := mgr.Run(cmd.Context())
			if err != nil {
				return err
			}
			removed, err := mgr.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d uploaded to %s (%d bytes); %d expired backups removed\n",
				b.ID, b.S3Key, b.SizeBytes, removed)
			return nil
		},
	}
	cmd.AddCommand(newRestoreCommand(opts))
	return cmd
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	var (
		id  int64
		out string
	)
	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Download and decrypt a backup into a new database file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id <= 0 || out == "" {
				return errors.New("--id and --out are required")
			}
			a, err := opts.load()
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			mgr := backup.NewManager(a.backupConfig(), db, nil, a.logger)
			if err := mgr.Restore(cmd.Context(), id, a.cfg.Backup.Passphrase, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "backup %d restored to %s\n", id, out)
			return nil
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "backup id")
	cmd.Flags().StringVar(&out, "out", "", "path of the database file to create")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/mtg-collection/internal/storage"
)

// BackupPasswordEnv supplies the password of encrypted backups.
const BackupPasswordEnv = "MTG_COLLECTION_BACKUP_PASSWORD"

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	withManager := func(fn func(*storage.MigrationManager) error) error {
		if err := os.MkdirAll(filepath.Dir(a.cfg.Database.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create database directory: %w", err)
		}
		mgr, err := storage.NewMigrationManager(a.cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := mgr.Close(); err != nil {
				a.logger.Warn("Failed to close migration manager", "error", err)
			}
		}()
		return fn(mgr)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withManager(func(mgr *storage.MigrationManager) error {
					if err := mgr.Up(); err != nil {
						return err
					}
					fmt.Fprintln(a.out, "Migrations applied.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back all migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := a.confirmer().Confirm(cmd.Context(), "Rolling back drops every table. Continue?")
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				return withManager(func(mgr *storage.MigrationManager) error {
					if err := mgr.Down(); err != nil {
						return err
					}
					fmt.Fprintln(a.out, "Migrations rolled back.")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show the schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withManager(func(mgr *storage.MigrationManager) error {
					status, err := mgr.Status()
					if err != nil {
						return err
					}
					fmt.Fprintf(a.out, "version %d", status.Version)
					if status.Dirty {
						fmt.Fprint(a.out, " (dirty)")
					}
					if status.Pending {
						fmt.Fprint(a.out, ", migrations pending")
					}
					fmt.Fprintln(a.out)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the schema version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				version, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version %q", args[0])
				}
				return withManager(func(mgr *storage.MigrationManager) error {
					return mgr.Force(version)
				})
			},
		},
	)
	return cmd
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore database backups",
	}

	manager := func() *storage.BackupManager {
		return storage.NewBackupManager(a.cfg.Database.Path, a.cfg.BackupDir())
	}

	var (
		name    string
		encrypt bool
	)
	create := &cobra.Command{
		Use:   "create",
		Short: "Back up the collection database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := storage.BackupOptions{Name: name, Keep: a.cfg.Backup.Keep}
			if encrypt {
				enc, err := a.backupEncryption()
				if err != nil {
					return err
				}
				opts.Encryption = enc
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			info, err := manager().Create(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Backup written to %s\n", info.Path)
			return nil
		},
	}
	create.Flags().StringVar(&name, "name", "", "backup name (default backup_<timestamp>)")
	create.Flags().BoolVar(&encrypt, "encrypt", false, "encrypt the backup (password from "+BackupPasswordEnv+" or prompt)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backups, err := manager().List()
			if err != nil {
				return err
			}
			if len(backups) == 0 {
				fmt.Fprintln(a.out, "No backups.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.Name, b.ModTime.Format("2006-01-02 15:04:05"), b.Size, b.Checksum[:min(12, len(b.Checksum))])
			}
			return tw.Flush()
		},
	}

	restore := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Replace the database with a backup",
		Long:  "Replace the database with a backup, given as a path or a name from \"backup list\". The current database is kept as <db>.old.<timestamp>.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bm := manager()
			path := args[0]
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				path = filepath.Join(bm.Dir(), args[0])
			}

			ok, err := a.confirmer().Confirm(cmd.Context(), fmt.Sprintf("Replace %s with %s?", a.cfg.Database.Path, filepath.Base(path)))
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}

			var enc *storage.EncryptionConfig
			if encrypted, err := storage.IsEncrypted(path); err == nil && encrypted {
				if enc, err = a.backupEncryption(); err != nil {
					return err
				}
			}

			a.close()
			if err := bm.Restore(path, enc); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Restored %s\n", filepath.Base(path))
			return nil
		},
	}

	cmd.AddCommand(create, list, restore)
	return cmd
}

func (a *app) backupEncryption() (*storage.EncryptionConfig, error) {
	password := os.Getenv(BackupPasswordEnv)
	if password == "" {
		fmt.Fprint(a.out, "Backup password: ")
		line, err := readLine(a.in)
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		password = line
	}
	if password == "" {
		return nil, fmt.Errorf("an empty password is not allowed")
	}
	return storage.DefaultEncryptionConfig(password), nil
}

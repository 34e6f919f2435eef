package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/soyeahso/attachkit/internal/blob"
	"github.com/soyeahso/attachkit/internal/domain"
	"github.com/soyeahso/attachkit/internal/store"
	"github.com/spf13/cobra"
)

// withStore loads config, opens the database and runs fn.
func withStore(fn func(ctx context.Context, db *store.DB) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(context.Background(), db)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newOutboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect payloads handed to the chat",
	}

	var (
		limit  int
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List recently sent payloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.DB) error {
				entries, err := store.NewOutboxStore(db).List(ctx, limit)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(entries)
				}
				if len(entries) == 0 {
					fmt.Println("No payloads sent yet.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tCHOICE\tKIND\tCONTENT\tSENT")
				for _, e := range entries {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						e.ID[:8], e.Choice, e.Payload.Kind(), describePayload(e.Payload),
						e.CreatedAt.Local().Format(time.DateTime))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of entries")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list)
	return cmd
}

func describePayload(p domain.Payload) string {
	if p.Location != nil {
		return "geo:" + p.Location.String()
	}
	return p.Image
}

func newUploadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "Inspect the upload ledger",
	}

	var (
		limit  int
		name   string
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent uploads",
		Long: "List recent uploads, newest first. With --name, list every upload stored\n" +
			"under that object name, oldest first; more than one row means it was overwritten.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, db *store.DB) error {
				ledger := store.NewUploadLedger(db)
				var (
					records []store.UploadRecord
					err     error
				)
				if name != "" {
					records, err = ledger.ByName(ctx, name)
				} else {
					records, err = ledger.List(ctx, limit)
				}
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(records)
				}
				if len(records) == 0 {
					fmt.Println("No uploads recorded.")
					return nil
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tBACKEND\tSIZE\tTYPE\tURL\tUPLOADED")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
						r.Name, r.Backend, r.Size, r.ContentType, r.URL,
						r.CreatedAt.Local().Format(time.DateTime))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 20, "maximum number of records")
	list.Flags().StringVar(&name, "name", "", "show the history of one object name")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list, newUploadsPruneCmd())
	return cmd
}

func newUploadsPruneCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete disk-stored objects older than a given age",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			objects, err := blob.Open(context.Background(), cfg.Storage, log)
			if err != nil {
				return err
			}
			disk, ok := objects.(*blob.DiskStore)
			if !ok {
				return fmt.Errorf("prune only supports the disk backend, storage.backend is %q", objects.Backend())
			}
			n, err := disk.Cleanup(olderThan)
			if err != nil {
				return fmt.Errorf("pruning %s: %w", cfg.Storage.Disk.Dir, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d object(s) older than %s\n", n, olderThan)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum object age")
	return cmd
}

func newPermissionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permissions",
		Short: "Show or reset remembered permission answers",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the policy and remembered answer for every scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			policies := map[domain.Scope]string{
				domain.ScopeMediaLibrary: cfg.Permissions.MediaLibrary,
				domain.ScopeCamera:       cfg.Permissions.Camera,
				domain.ScopeLocation:     cfg.Permissions.Location,
			}
			return withStore(func(ctx context.Context, db *store.DB) error {
				grants := store.NewGrantStore(db)
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "SCOPE\tPOLICY\tREMEMBERED")
				for _, scope := range domain.AllScopes {
					status, err := grants.Get(ctx, scope)
					if err != nil {
						return err
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", scope, policies[scope], status)
				}
				return w.Flush()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:       "reset [scope...]",
		Short:     "Forget remembered answers (all scopes when none given)",
		ValidArgs: []string{string(domain.ScopeMediaLibrary), string(domain.ScopeCamera), string(domain.ScopeLocation)},
		Args:      cobra.OnlyValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scopes := make([]domain.Scope, 0, len(args))
			for _, a := range args {
				scopes = append(scopes, domain.Scope(a))
			}
			return withStore(func(ctx context.Context, db *store.DB) error {
				n, err := store.NewGrantStore(db).Reset(ctx, scopes...)
				if err != nil {
					return err
				}
				fmt.Printf("Reset %d remembered permission(s)\n", n)
				return nil
			})
		},
	})
	return cmd
}

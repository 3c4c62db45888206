package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/osse101/FieldSync_Go/internal/logger"
	"github.com/osse101/FieldSync_Go/internal/scheduler"
	"github.com/osse101/FieldSync_Go/internal/syncclient"
	"github.com/osse101/FieldSync_Go/internal/worker"
)

var (
	loginUsername string
	loginPassword string
	loginOffline  bool
	watchInterval time.Duration
)

const defaultWatchInterval = 5 * time.Minute

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server, or against the local store with --offline",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved token and record a logout",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.Remove(filepath.Join(cfg.Dir, tokenFileName)); err != nil && !os.IsNotExist(err) {
			return err
		}
		if cfg.Username != "" {
			if err := store.Logout(commandContext(cmd), cfg.Username); err != nil {
				return err
			}
		}
		fmt.Println("Logged out")
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync [collection ...]",
	Short: "Push pending records to the server",
	RunE:  runSync,
}

var pullCmd = &cobra.Command{
	Use:   "pull-stores",
	Short: "Copy the server's store list into the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		n, err := client.PullStores(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Printf("Pulled %d stores\n", n)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show how many records of each collection await sync",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := commandContext(cmd)
		counts := map[string]int{}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		if !jsonOutput {
			fmt.Fprintln(w, "COLLECTION\tTABLE\tPENDING")
		}
		for _, r := range syncclient.DefaultRoutes() {
			n, err := store.CountPending(ctx, r.Collection)
			if err != nil {
				return err
			}
			counts[r.Collection] = n
			if !jsonOutput {
				fmt.Fprintf(w, "%s\t%s\t%d\n", r.Collection, r.Table, n)
			}
		}
		if jsonOutput {
			return printJSON(counts)
		}
		return w.Flush()
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Sync in the background until interrupted",
	RunE:  runWatch,
}

func init() {
	loginCmd.Flags().StringVar(&loginUsername, "username", "", "username (default: configured username)")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (required)")
	loginCmd.Flags().BoolVar(&loginOffline, "offline", false, "check the credentials against the local store only")
	_ = loginCmd.MarkFlagRequired("password")

	watchCmd.Flags().DurationVar(&watchInterval, "interval", defaultWatchInterval, "time between sync runs")

	rootCmd.AddCommand(logoutCmd)
}

func newClient() (*syncclient.Client, error) {
	deviceID, err := loadDeviceID(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read device id: %w", err)
	}
	syncCfg := cfg.Sync
	syncCfg.DeviceID = deviceID

	client, err := syncclient.New(syncCfg, store)
	if err != nil {
		return nil, err
	}
	token, err := loadToken(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("read saved token: %w", err)
	}
	client.SetToken(token)
	return client, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	username := loginUsername
	if username == "" {
		username = cfg.Username
	}
	if username == "" {
		return errors.New("no username: pass --username or set username in config.yaml")
	}

	if loginOffline {
		user, err := store.Authenticate(ctx, username, loginPassword)
		if err != nil {
			return err
		}
		fmt.Printf("Logged in locally as %s (%s)\n", user.Username, user.Role())
		return nil
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.Login(ctx, username, loginPassword)
	if err != nil {
		return err
	}
	if err := saveToken(cfg.Dir, res.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	fmt.Printf("Logged in as %s (%s), token valid until %s\n", username, res.Role, res.ExpiresAt.Format(time.RFC1123))
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	client, err := newClient()
	if err != nil {
		return err
	}

	var (
		results []syncclient.Result
		syncErr error
	)
	if len(args) == 0 {
		summary, err := client.SyncAll(ctx)
		results, syncErr = summary.Results, err
	} else {
		var errs []error
		for _, name := range args {
			route, ok := findRoute(client, name)
			if !ok {
				return fmt.Errorf("collection %q is not synced", name)
			}
			res, err := client.SyncCollection(ctx, route)
			results = append(results, res)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
		syncErr = errors.Join(errs...)
	}

	if jsonOutput {
		if err := printJSON(results); err != nil {
			return err
		}
		return syncErr
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tSENT\tINSERTED\tUPDATED\tREPLAYED")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", r.Collection, r.Sent, r.Inserted, r.Updated, r.Replayed)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return syncErr
}

func findRoute(client *syncclient.Client, collection string) (syncclient.Route, bool) {
	for _, r := range client.Routes() {
		if r.Collection == collection {
			return r, true
		}
	}
	return syncclient.Route{}, false
}

// runWatch pulls stores and pushes pending records on an interval until the
// command's context is cancelled
func runWatch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	client, err := newClient()
	if err != nil {
		return err
	}

	pool := worker.NewPool(1, 2).WithJobTimeout(watchInterval)
	pool.Start()
	sched := scheduler.New(pool)
	sched.ScheduleNow("pull-stores", watchInterval, worker.JobFunc(func(ctx context.Context) error {
		_, err := client.PullStores(ctx)
		return err
	}))
	sched.ScheduleNow("sync", watchInterval, syncclient.NewJob(client))

	logger.Info("Watching", "interval", watchInterval, "server", cfg.ServerURL)
	<-ctx.Done()

	sched.Stop()
	pool.Stop()
	return nil
}

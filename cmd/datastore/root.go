package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
	"github.com/tailored-agentic-units/datastore/rpc"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigFile string
	StorageDir string
	InstanceID string
	Feature    string
	Server     string
	Observers  []string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "datastore",
		Short:         "Inspect and edit versioned key-value datastore files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "path to datastore config YAML file")
	cmd.PersistentFlags().StringVar(&opts.StorageDir, "storage-dir", "", "storage root (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.InstanceID, "instance-id", "", "instance namespace (overrides config)")
	cmd.PersistentFlags().StringVarP(&opts.Feature, "feature", "f", "core", "feature owning the keys")
	cmd.PersistentFlags().StringVar(&opts.Server, "server", "", "base URL of a running 'datastore serve'; operate remotely")
	cmd.PersistentFlags().StringSliceVar(&opts.Observers, "observer", nil, "additional registered observers to receive diagnostics")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose diagnostics on stderr")

	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newSetCommand(opts))
	cmd.AddCommand(newDeleteCommand(opts))
	cmd.AddCommand(newClearCommand(opts))
	cmd.AddCommand(newInspectCommand(opts))
	cmd.AddCommand(newServeCommand(opts))

	return cmd
}

// config resolves the datastore config: defaults, then the config file,
// then flags.
func (o *rootOptions) config() (datastore.Config, error) {
	cfg := datastore.DefaultConfig()
	if o.ConfigFile != "" {
		loaded, err := datastore.LoadConfig(o.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	cfg.Merge(&datastore.Config{StorageDir: o.StorageDir, InstanceID: o.InstanceID})

	if cfg.StorageDir == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return cfg, fmt.Errorf("no storage dir configured: %w", err)
		}
		cfg.StorageDir = filepath.Join(dir, "tau-datastore")
	}

	return cfg, cfg.Validate()
}

// observer builds the diagnostics sink: maintainer events on w, filtered by
// verbosity, plus any observers named with --observer.
func (o *rootOptions) observer(w io.Writer) (observability.Observer, error) {
	minLevel := observability.LevelWarning
	if o.Verbose {
		minLevel = observability.LevelVerbose
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observers := []observability.Observer{
		&observability.FilterObserver{
			Next:     observability.NewSlogObserver(logger),
			MinLevel: minLevel,
			Targets:  []observability.Target{observability.TargetMaintainer},
		},
	}
	for _, name := range o.Observers {
		obs, err := observability.GetObserver(name)
		if err != nil {
			return nil, fmt.Errorf("%w (registered: %v)", err, observability.ObserverNames())
		}
		observers = append(observers, obs)
	}

	return observability.NewMultiObserver(observers...), nil
}

// store is the subset of operations shared by local and remote access.
type store interface {
	Get(ctx context.Context, key string, version *int) (datastore.Result[[]byte], error)
	Set(ctx context.Context, key string, data []byte, version int) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
}

func (o *rootOptions) open(cmd *cobra.Command) (store, error) {
	if o.Server != "" {
		return &remoteStore{client: rpc.NewClient(http.DefaultClient, o.Server), feature: o.Feature}, nil
	}

	cfg, err := o.config()
	if err != nil {
		return nil, err
	}
	obs, err := o.observer(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	h, err := datastore.New(o.Feature, cfg, datastore.WithObserver(obs))
	if err != nil {
		return nil, err
	}
	return &localStore{h: h}, nil
}

type localStore struct {
	h *datastore.FileHandler
}

func (s *localStore) Get(ctx context.Context, key string, version *int) (datastore.Result[[]byte], error) {
	var opts []datastore.ReadOption
	if version != nil {
		opts = append(opts, datastore.WithVersion(*version))
	}
	return datastore.GetSync(ctx, s.h, key, codec.Bytes{}, opts...)
}

func (s *localStore) Set(ctx context.Context, key string, data []byte, version int) error {
	return datastore.SetSync(ctx, s.h, key, data, version, codec.Bytes{})
}

func (s *localStore) Delete(ctx context.Context, key string) error {
	return datastore.DeleteSync(ctx, s.h, key)
}

func (s *localStore) Clear(ctx context.Context) error {
	return datastore.ClearSync(ctx, s.h)
}

func (s *localStore) Close(ctx context.Context) error {
	return s.h.Close(ctx)
}

type remoteStore struct {
	client  *rpc.Client
	feature string
}

func (s *remoteStore) Get(ctx context.Context, key string, version *int) (datastore.Result[[]byte], error) {
	return s.client.Get(ctx, s.feature, key, version)
}

func (s *remoteStore) Set(ctx context.Context, key string, data []byte, version int) error {
	return s.client.Set(ctx, s.feature, key, data, version)
}

func (s *remoteStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, s.feature, key)
}

func (s *remoteStore) Clear(ctx context.Context) error {
	return s.client.Clear(ctx, s.feature)
}

func (s *remoteStore) Close(context.Context) error { return nil }

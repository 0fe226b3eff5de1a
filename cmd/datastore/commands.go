package main

import (
	"fmt"
	"io"
	"os"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/tailored-agentic-units/datastore/datastore"
)

func newGetCommand(opts *rootOptions) *cobra.Command {
	var (
		version int
		raw     bool
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			var want *int
			if cmd.Flags().Changed("version") {
				want = &version
			}

			r, err := s.Get(cmd.Context(), args[0], want)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch r.Status {
			case datastore.StatusNoData:
				fmt.Fprintln(cmd.ErrOrStderr(), "no data")
				return nil
			case datastore.StatusFailure:
				return fmt.Errorf("read %q: %w", args[0], r.Err)
			}

			if !raw {
				fmt.Fprintf(out, "version:     %d\n", r.Content.Version)
				fmt.Fprintf(out, "last update: %s (%s)\n",
					r.Content.LastUpdate().UTC().Format(time.RFC3339),
					humanize.Time(r.Content.LastUpdate()))
			}
			writeValue(out, r.Content.Data, raw)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "require this schema version")
	cmd.Flags().BoolVar(&raw, "raw", false, "print only the stored bytes")
	return cmd
}

func newSetCommand(opts *rootOptions) *cobra.Command {
	var (
		version  int
		fromFile string
	)

	cmd := &cobra.Command{
		Use:   "set <key> [value]",
		Short: "Store a value under a key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			switch {
			case fromFile != "":
				b, err := os.ReadFile(fromFile)
				if err != nil {
					return err
				}
				data = b
			case len(args) == 2:
				data = []byte(args[1])
			default:
				return fmt.Errorf("a value or --from-file is required")
			}

			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if err := s.Set(cmd.Context(), args[0], data, version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s under %q\n", humanize.Bytes(uint64(len(data))), args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 0, "schema version stamped on the value")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "read the value from a file")
	return cmd
}

func newDeleteCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete the value stored under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if err := s.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %q\n", args[0])
			return nil
		},
	}
}

func newClearCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every value of the feature",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close(cmd.Context())

			if err := s.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared feature %q\n", opts.Feature)
			return nil
		},
	}
}

// writeValue prints a payload: JSON is pretty-printed, other UTF-8 text is
// printed as is, and binary data is shown as hex.
func writeValue(w io.Writer, data []byte, raw bool) {
	if raw {
		w.Write(data)
		return
	}
	switch {
	case isJSON(data):
		w.Write(pretty.Pretty(data))
	case utf8.Valid(data):
		fmt.Fprintf(w, "%s\n", data)
	default:
		fmt.Fprintf(w, "% x\n", data)
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/tlv"
)

func newInspectCommand(opts *rootOptions) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "inspect [key]",
		Short: "Decode a datastore file block by block without validating it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				if len(args) == 0 {
					return fmt.Errorf("a key or --path is required")
				}
				cfg, err := opts.config()
				if err != nil {
					return err
				}
				r := datastore.Resolver{StorageDir: cfg.StorageDir, InstanceID: cfg.InstanceID, Feature: opts.Feature}
				if path, err = r.Resolve(args[0]); err != nil {
					return err
				}
			}

			report, err := datastore.Inspect(path)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "inspect this file instead of resolving a key")
	return cmd
}

func printReport(w io.Writer, r *datastore.FileReport) {
	fmt.Fprintf(w, "file:     %s\n", r.Path)
	fmt.Fprintf(w, "size:     %s (%d bytes)\n", humanize.Bytes(uint64(r.Size)), r.Size)
	fmt.Fprintf(w, "modified: %s\n", humanize.Time(r.ModTime))
	fmt.Fprintf(w, "blocks:   %d\n", len(r.Blocks))

	for i, b := range r.Blocks {
		fmt.Fprintf(w, "  [%d] %-16s %6d bytes  %s\n", i, b.Type, len(b.Payload), describeBlock(b))
	}
	if r.Truncated {
		fmt.Fprintln(w, "  incomplete trailing block")
	}
	fmt.Fprintf(w, "verdict:  %s\n", r.Outcome.Kind)
}

func describeBlock(b tlv.Block) string {
	switch b.Type {
	case tlv.VersionCode:
		v, err := b.Int32()
		if err != nil {
			return err.Error()
		}
		return fmt.Sprintf("version %d", v)
	case tlv.LastUpdateDate:
		ms, err := b.Int64()
		if err != nil {
			return err.Error()
		}
		t := time.UnixMilli(ms)
		return fmt.Sprintf("%s (%s)", t.UTC().Format(time.RFC3339), humanize.Time(t))
	case tlv.Data:
		return preview(b.Payload)
	default:
		return fmt.Sprintf("% x", truncate(b.Payload, 16))
	}
}

func preview(data []byte) string {
	const limit = 48
	if isJSON(data) || isPrintable(data) {
		s := string(data)
		if len(s) > limit {
			s = s[:limit] + "..."
		}
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("% x", truncate(data, 16))
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func isJSON(data []byte) bool {
	return len(data) > 0 && json.Valid(data)
}

func isPrintable(data []byte) bool {
	for _, c := range data {
		if (c < 0x20 && c != '\n' && c != '\t') || c == 0x7f {
			return false
		}
	}
	return true
}

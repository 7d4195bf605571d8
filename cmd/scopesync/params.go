package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/bcmodular/scopesync-core/internal/parameter"
	"github.com/bcmodular/scopesync-core/internal/registry"
)

func newParamsCmd() *cobra.Command {
	var (
		file    string
		session int
		mode    string
	)

	cmd := &cobra.Command{
		Use:   "params",
		Short: "Validate a parameter definition file and list its parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := parameter.LoadDefinitions(file)
			if err != nil {
				return errors.Wrapf(err, "loading %s", file)
			}
			return listParameters(cmd.OutOrStdout(), defs, registry.Mode(mode), session)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "parameter definition file (YAML)")
	cmd.Flags().IntVar(&session, "session", 0, "device session used to build addresses")
	cmd.Flags().StringVar(&mode, "mode", string(registry.ModePlugin), "host personality (plugin or fx)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// listParameters registers defs in a detached registry, which applies the
// same uniqueness checks as the service, and prints one row per dynamic
// parameter.
func listParameters(w io.Writer, defs []parameter.Definition, mode registry.Mode, session int) error {
	if mode != registry.ModePlugin && mode != registry.ModeFX {
		return errors.Errorf("unknown mode %q", mode)
	}

	reg, err := registry.New(registry.Options{Mode: mode, Session: session, SnapshotStep: time.Millisecond})
	if err != nil {
		return errors.Wrap(err, "creating registry")
	}
	defer reg.Close()

	if err := reg.LoadDefinitions(defs); err != nil {
		return errors.Wrap(err, "invalid definitions")
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HOST\tNAME\tADDRESS\tSCOPE CODE\tRESET")
	for _, p := range reg.DynamicParameters() {
		address := p.Device().Address()
		if address == "" {
			address = "-"
		}
		code := reg.ScopeCodeOf(p.Name())
		if code == "" {
			code = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", p.HostIdx(), p.Name(), address, code, p.UIText())
	}
	if err := tw.Flush(); err != nil {
		return errors.Wrap(err, "writing output")
	}

	fmt.Fprintf(w, "%d parameters, %d host slots\n", len(reg.DynamicParameters()), reg.HostSlots())
	return nil
}

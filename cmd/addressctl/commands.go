package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	domainerrors "addrstore/internal/domain/errors"
	"addrstore/internal/usecase"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	var page, size int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List addresses in ID order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				if !cmd.Flags().Changed("page") && !cmd.Flags().Changed("size") {
					addresses, err := svc.Addresses.ListAddresses(ctx)
					if err != nil {
						return err
					}

					return printJSON(cmd.OutOrStdout(), addresses)
				}

				result, err := svc.Addresses.ListAddressPage(ctx, usecase.PageQuery{Page: page, PageSize: size})
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "1-indexed page number")
	cmd.Flags().IntVar(&size, "size", 20, "page size")

	return cmd
}

func newGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, svc services) error {
				address, err := svc.Addresses.GetAddress(ctx, id)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), address)
			})
		},
	}
}

func newFindCmd(opts *rootOptions) *cobra.Command {
	var zipCode, street, alias string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find addresses by zip code, street or alias",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				var (
					addresses any
					err       error
				)
				switch {
				case cmd.Flags().Changed("zip"):
					addresses, err = svc.Addresses.FindByZipCode(ctx, zipCode)
				case cmd.Flags().Changed("street"):
					addresses, err = svc.Addresses.FindByStreet(ctx, street)
				default:
					addresses, err = svc.Addresses.FindByAlias(ctx, alias)
				}
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), addresses)
			})
		},
	}

	cmd.Flags().StringVar(&zipCode, "zip", "", "zip code")
	cmd.Flags().StringVar(&street, "street", "", "street name")
	cmd.Flags().StringVar(&alias, "alias", "", "alias")
	cmd.MarkFlagsMutuallyExclusive("zip", "street", "alias")
	cmd.MarkFlagsOneRequired("zip", "street", "alias")

	return cmd
}

func newCountCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of stored addresses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				count, err := svc.Addresses.CountAddresses(ctx)
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), count)

				return err
			})
		},
	}
}

// addressFlags holds the field flags shared by create and update.
type addressFlags struct {
	zipCode, kind, street, neighborhood, city, state, complement string
	aliases                                                      []string
	inactive                                                     bool
}

func (f *addressFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.zipCode, "zip", "", "zip code, e.g. 01001000")
	flags.StringVar(&f.kind, "type", "", "street type, e.g. Rua")
	flags.StringVar(&f.street, "street", "", "street name")
	flags.StringVar(&f.neighborhood, "neighborhood", "", "neighborhood")
	flags.StringVar(&f.city, "city", "", "city")
	flags.StringVar(&f.state, "state", "", "state")
	flags.StringVar(&f.complement, "complement", "", "complement")
	flags.StringSliceVar(&f.aliases, "alias", nil, "alternate name, repeatable")
	flags.BoolVar(&f.inactive, "inactive", false, "mark the address inactive")
}

func (f *addressFlags) createInput() *usecase.CreateAddressInput {
	active := !f.inactive

	return &usecase.CreateAddressInput{
		ZipCode:      f.zipCode,
		Type:         f.kind,
		Street:       f.street,
		Neighborhood: f.neighborhood,
		City:         f.city,
		State:        f.state,
		Complement:   f.complement,
		Aliases:      f.aliases,
		Active:       &active,
	}
}

// updateInput only carries the flags given on the command line.
func (f *addressFlags) updateInput(flags *pflag.FlagSet) *usecase.UpdateAddressInput {
	input := &usecase.UpdateAddressInput{}
	set := func(name string, value string) *string {
		if !flags.Changed(name) {
			return nil
		}

		return &value
	}

	input.ZipCode = set("zip", f.zipCode)
	input.Type = set("type", f.kind)
	input.Street = set("street", f.street)
	input.Neighborhood = set("neighborhood", f.neighborhood)
	input.City = set("city", f.city)
	input.State = set("state", f.state)
	input.Complement = set("complement", f.complement)
	if flags.Changed("alias") {
		aliases := f.aliases
		input.Aliases = &aliases
	}
	if flags.Changed("inactive") {
		active := !f.inactive
		input.Active = &active
	}

	return input
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	fields := &addressFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an address",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				address, err := svc.Addresses.CreateAddress(ctx, fields.createInput())
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), address)
			})
		},
	}
	fields.register(cmd.Flags())

	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	fields := &addressFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, svc services) error {
				address, err := svc.Addresses.UpdateAddress(ctx, id, fields.updateInput(cmd.Flags()))
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), address)
			})
		},
	}
	fields.register(cmd.Flags())

	return cmd
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, svc services) error {
				return svc.Addresses.DeleteAddress(ctx, id)
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON array of addresses",
		Long: `Import a JSON array of addresses in one atomic batch.

Rows that are not objects or lack zipCode, street or state are skipped and
listed in the report. A zip code collision rejects the whole batch.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			return opts.run(cmd, func(ctx context.Context, svc services) error {
				report, err := svc.Addresses.ImportAddresses(ctx, payload)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export every address as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				payload, err := svc.Addresses.ExportAddresses(ctx)
				if err != nil {
					return err
				}

				if len(args) == 0 || args[0] == "-" {
					_, err = fmt.Fprintln(cmd.OutOrStdout(), string(payload))

					return errors.Wrap(err, "failed to write output")
				}

				return errors.Wrapf(os.WriteFile(args[0], payload, 0o600), "failed to write %s", args[0])
			})
		},
	}
}

func newBackupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [key]",
		Short: "Write a snapshot of the collection to the snapshot bucket",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				key, err := svc.Snapshots.Backup(ctx, optionalArg(args))
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), key)

				return err
			})
		},
	}
}

func newRestoreCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [key]",
		Short: "Import a snapshot, the newest one by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				report, err := svc.Snapshots.Restore(ctx, optionalArg(args))
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}

func newSnapshotsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshots",
		Short: "List the snapshots in the bucket, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, svc services) error {
				snapshots, err := svc.Snapshots.List(ctx)
				if err != nil {
					return err
				}

				return printJSON(cmd.OutOrStdout(), snapshots)
			})
		},
	}
}

func parseID(raw string) (uint64, error) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, domainerrors.ErrMissingIdentifier.WithDetails(fmt.Sprintf("%q is not a valid id", raw))
	}

	return id, nil
}

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		payload, err := io.ReadAll(cmd.InOrStdin())

		return payload, errors.Wrap(err, "failed to read stdin")
	}

	payload, err := os.ReadFile(name)

	return payload, errors.Wrapf(err, "failed to read %s", name)
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}

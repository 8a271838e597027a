package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/tournevent/casestack/internal/sandbox"
	"github.com/tournevent/casestack/internal/telemetry"
	"github.com/tournevent/casestack/pkg/casestack"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentFetches bounds parallel requests issued by get.
const maxConcurrentFetches = 4

type fetchFunc func(ctx context.Context, client *casestack.Client, id string) (any, error)

var fetchers = map[string]fetchFunc{
	"carrier": func(ctx context.Context, client *casestack.Client, id string) (any, error) {
		return client.GetCarrier(ctx, id)
	},
	"customer": func(ctx context.Context, client *casestack.Client, id string) (any, error) {
		return client.GetCustomer(ctx, id)
	},
	"shipment": func(ctx context.Context, client *casestack.Client, id string) (any, error) {
		n, err := parseShipmentID(id)
		if err != nil {
			return nil, err
		}
		return client.GetShipment(ctx, n)
	},
	"address": func(ctx context.Context, client *casestack.Client, id string) (any, error) {
		return client.GetAddress(ctx, id)
	},
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "get <carrier|customer|shipment|address> <id>...",
		Short:     "Fetch one or more records by id",
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: []string{"carrier", "customer", "shipment", "address"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load(cmd.Context())
			if err != nil {
				return err
			}

			kind := strings.ToLower(args[0])
			fetch, ok := fetchers[kind]
			if !ok {
				return fmt.Errorf("unknown record type %q", args[0])
			}
			ids := args[1:]

			results := make([]any, len(ids))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(maxConcurrentFetches)
			for i, id := range ids {
				g.Go(func() error {
					v, err := fetch(ctx, a.client, id)
					if err != nil {
						return fmt.Errorf("%s %s: %w", kind, id, err)
					}
					results[i] = v
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if len(results) == 1 {
				return writeJSON(cmd.OutOrStdout(), results[0])
			}
			return writeJSON(cmd.OutOrStdout(), results)
		},
	}
}

func (c *cli) customFieldsCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "customfields <carrier|customer>",
		Short:     "List custom field definitions of a record type",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"carrier", "customer"},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load(cmd.Context())
			if err != nil {
				return err
			}

			var fields *casestack.CustomFields
			switch strings.ToLower(args[0]) {
			case "carrier":
				fields, err = casestack.GetCustomFields[casestack.Carrier](cmd.Context(), a.client)
			case "customer":
				fields, err = casestack.GetCustomFields[casestack.Customer](cmd.Context(), a.client)
			default:
				return fmt.Errorf("%q has no custom fields", args[0])
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), fields)
		},
	}
}

func (c *cli) shipmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shipment",
		Short: "Update shipments",
	}

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set the workflow status of a shipment",
		Example: `  casestack shipment status 1042 "In Transit"
  casestack shipment status 1042 delivered`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := casestack.ParseShipmentStatus(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			return c.updateShipment(cmd, args[0], func(s *casestack.Shipment) {
				s.SetStatus(st)
			})
		},
	}

	var unlock bool
	lock := &cobra.Command{
		Use:   "lock <id>",
		Short: "Make a shipment read-only, or writable again with --unlock",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.updateShipment(cmd, args[0], func(s *casestack.Shipment) {
				s.ReadOnly = !unlock
			})
		},
	}
	lock.Flags().BoolVar(&unlock, "unlock", false, "clear the read-only flag")

	cmd.AddCommand(status, lock)
	return cmd
}

// updateShipment fetches the shipment, applies fn and saves it back.
func (c *cli) updateShipment(cmd *cobra.Command, rawID string, fn func(*casestack.Shipment)) error {
	id, err := parseShipmentID(rawID)
	if err != nil {
		return err
	}
	a, err := c.load(cmd.Context())
	if err != nil {
		return err
	}

	shipment, err := a.client.GetShipment(cmd.Context(), id)
	if err != nil {
		return err
	}
	fn(shipment)
	if err := shipment.Save(cmd.Context()); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), shipment)
}

func statusesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "statuses",
		Short: "List shipment statuses in workflow order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range casestack.ShipmentStatuses() {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), s.String()); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (c *cli) sandboxCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sandbox",
		Short: "Serve an in-memory CaseStack API for local development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.load(cmd.Context())
			if err != nil {
				return err
			}

			var creds casestack.Credentials
			if a.cfg.SandboxRequireAuth {
				if !a.cfg.HasCredentials() {
					return fmt.Errorf("SANDBOX_REQUIRE_AUTH needs CASESTACK_API_KEY and CASESTACK_COMPANY_ID")
				}
				creds = casestack.Credentials{APIKey: a.cfg.APIKey, CompanyID: a.cfg.CompanyID}
			}

			a.logger.Info("Starting CaseStack sandbox",
				zap.Int("port", a.cfg.SandboxPort),
				zap.Bool("require_auth", !creds.IsZero()),
				zap.String("data_dir", a.cfg.SandboxDataDir),
				zap.String("version", version),
			)

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			srv, err := sandbox.New(sandbox.Config{
				Port:        a.cfg.SandboxPort,
				Credentials: creds,
				Gatherer:    reg,
				DataDir:     a.cfg.SandboxDataDir,
			}, a.logger, telemetry.NewMetrics(reg))
			if err != nil {
				return err
			}
			defer srv.Close()

			if err := srv.Run(cmd.Context()); err != nil {
				return fmt.Errorf("sandbox error: %w", err)
			}
			return nil
		},
	}
}

func parseShipmentID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: shipment id %q is not a number", casestack.ErrInvalidArgument, s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

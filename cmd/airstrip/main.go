package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"airstrip/internal/app"
	"airstrip/internal/config"
	"airstrip/internal/domain"
	"airstrip/internal/engine"
	"airstrip/internal/events"
	"airstrip/internal/logging"
	"airstrip/internal/server"
)

// Exit codes.
const (
	exitError = 1
	exitFatal = 2
)

var (
	cfg    *config.Config
	stdout io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:   "airstrip",
	Short: "Airstrip operations records",
	Long: `airstrip keeps the operational records of small airstrips: flights, pilots
and their assignments, maintenance, emergency protocols, fuel stock and revenue.
Every record gets an id from one shared sequence, and every change is appended
to an event log ('airstrip log tail').`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(viper.GetString("config"))
		if err != nil {
			return err
		}
		cfg = loaded
		logging.Init(cfg.Log, os.Stderr)
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(err)
		stop()
		if engine.IsFatal(err) {
			os.Exit(exitFatal)
		}
		os.Exit(exitError)
	}
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default ./airstrip.yml)")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(airstripCmd())
	rootCmd.AddCommand(flightCmd())
	rootCmd.AddCommand(pilotCmd())
	rootCmd.AddCommand(maintenanceCmd())
	rootCmd.AddCommand(emergencyCmd())
	rootCmd.AddCommand(fuelCmd())
	rootCmd.AddCommand(revenueCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(snapshotCmd())
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				handler, err := server.New(server.Config{
					Engine:   a.Engine,
					BasePath: basePath,
					Logger:   a.Logger,
					Metrics:  a.Metrics.Handler(),
				})
				if err != nil {
					return err
				}
				srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
				go func() {
					<-ctx.Done()
					sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					srv.Shutdown(sctx)
				}()
				a.Logger.Info("serving airstrip API", "addr", addr, "base_path", basePath, "backend", cfg.Storage.Backend)
				fmt.Fprintf(stdout, "Serving airstrip API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs, metrics at /metrics)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (overrides server.base_path)")
	return cmd
}

func configCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create configuration",
		Long:  "Configuration comes from airstrip.yml, then AIRSTRIP_* environment variables (a .env file is loaded first).",
	}
	c.AddCommand(configInitCmd())
	c.AddCommand(configShowCmd())
	return c
}

func configInitCmd() *cobra.Command {
	var dir string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default airstrip.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(dir)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "directory to write into")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = stdout.Write(out)
			return err
		},
	}
}

func airstripCmd() *cobra.Command {
	c := &cobra.Command{Use: "airstrip", Short: "Manage airstrips"}

	var p engine.CreateAirstripPayload
	create := &cobra.Command{
		Use:   "create",
		Short: "Create airstrip",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.CreateAirstrip(ctx, p)
				if err != nil {
					return err
				}
				return airstripTable.one(a)
			})
		},
	}
	create.Flags().StringVar(&p.Name, "name", "", "airstrip name")
	create.Flags().StringVar(&p.Location, "location", "", "location")
	create.Flags().StringVar(&p.Contact, "contact", "", "contact person or number")
	create.Flags().StringVar(&p.Email, "email", "", "contact email")
	create.Flags().Uint64Var(&p.RunwayLength, "runway-length", 0, "runway length in meters")
	create.Flags().Uint64Var(&p.Capacity, "capacity", 0, "planes on the ground at once")

	list := &cobra.Command{
		Use:   "list",
		Short: "List airstrips",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListAirstrips(ctx)
				if err != nil {
					return err
				}
				return airstripTable.list(items)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show airstrip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				a, err := e.GetAirstrip(ctx, id)
				if err != nil {
					return err
				}
				return airstripTable.one(a)
			})
		},
	}

	capacity := &cobra.Command{
		Use:   "capacity <id>",
		Short: "Show current capacity status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				st, err := e.CapacityStatus(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(st)
				}
				renderTable(table.Row{"Capacity", "Occupancy", "Arrivals", "Departures", "Available"},
					table.Row{st.TotalCapacity, st.CurrentOccupancy, st.ScheduledArrivals, st.ScheduledDepartures, st.AvailableSlots})
				return nil
			})
		},
	}

	var newCapacity uint64
	setCapacity := &cobra.Command{
		Use:   "set-capacity <id>",
		Short: "Change airstrip capacity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				msg, err := e.UpdateAirstripCapacity(ctx, id, newCapacity)
				if err != nil {
					return err
				}
				return printMessage(msg)
			})
		},
	}
	setCapacity.Flags().Uint64Var(&newCapacity, "capacity", 0, "new capacity")
	_ = setCapacity.MarkFlagRequired("capacity")

	c.AddCommand(create, list, show, capacity, setCapacity)
	return c
}

func flightCmd() *cobra.Command {
	c := &cobra.Command{Use: "flight", Short: "Manage flights"}

	var p engine.ScheduleFlightPayload
	var departure, arrival string
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule flight",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.DepartureTime, err = parseTime(departure); err != nil {
				return fmt.Errorf("--departure: %w", err)
			}
			if p.ArrivalTime, err = parseTime(arrival); err != nil {
				return fmt.Errorf("--arrival: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				f, err := e.ScheduleFlight(ctx, p)
				if err != nil {
					return err
				}
				return flightTable.one(f)
			})
		},
	}
	schedule.Flags().Uint64Var(&p.AirstripID, "airstrip", 0, "airstrip id")
	schedule.Flags().StringVar(&p.FlightNumber, "number", "", "flight number")
	schedule.Flags().StringVar(&p.Destination, "destination", "", "destination")
	schedule.Flags().StringVar(&departure, "departure", "0", "departure time (RFC3339 or unix nanoseconds)")
	schedule.Flags().StringVar(&arrival, "arrival", "0", "arrival time (RFC3339 or unix nanoseconds)")

	list := &cobra.Command{
		Use:   "list <airstrip-id>",
		Short: "List flights still scheduled at an airstrip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListScheduledFlights(ctx, id)
				if err != nil {
					return err
				}
				return flightTable.list(items)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show flight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				f, err := e.GetFlight(ctx, id)
				if err != nil {
					return err
				}
				return flightTable.one(f)
			})
		},
	}

	cancel := &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel flight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				msg, err := e.CancelFlight(ctx, id)
				if err != nil {
					return err
				}
				return printMessage(msg)
			})
		},
	}

	status := &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move flight to scheduled, delayed, arrived, completed or cancelled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				f, err := e.UpdateFlightStatus(ctx, id, domain.FlightStatus(args[1]))
				if err != nil {
					return err
				}
				return flightTable.one(f)
			})
		},
	}

	c.AddCommand(schedule, list, show, cancel, status)
	return c
}

func pilotCmd() *cobra.Command {
	c := &cobra.Command{Use: "pilot", Short: "Manage pilots and assignments"}

	var p engine.RegisterPilotPayload
	register := &cobra.Command{
		Use:   "register",
		Short: "Register pilot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				pl, err := e.RegisterPilot(ctx, p)
				if err != nil {
					return err
				}
				return pilotTable.one(pl)
			})
		},
	}
	register.Flags().StringVar(&p.Name, "name", "", "pilot name")
	register.Flags().StringVar(&p.LicenseNumber, "license", "", "license number")
	register.Flags().Uint64Var(&p.ExperienceYears, "experience", 0, "years of experience")
	register.Flags().StringVar(&p.Contact, "contact", "", "contact number")
	register.Flags().StringVar(&p.Email, "email", "", "email")

	list := &cobra.Command{
		Use:   "list",
		Short: "List pilots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.ListPilots(ctx)
				if err != nil {
					return err
				}
				return pilotTable.list(items)
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show pilot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				pl, err := e.GetPilot(ctx, id)
				if err != nil {
					return err
				}
				return pilotTable.one(pl)
			})
		},
	}

	schedule := &cobra.Command{
		Use:   "schedule <pilot-id>",
		Short: "List a pilot's assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.PilotSchedules(ctx, id)
				if err != nil {
					return err
				}
				return scheduleTable.list(items)
			})
		},
	}

	var sp engine.SchedulePilotPayload
	var start, end string
	assign := &cobra.Command{
		Use:   "assign",
		Short: "Assign a pilot to a flight for [start, end)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if sp.StartTime, err = parseTime(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if sp.EndTime, err = parseTime(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				s, err := e.SchedulePilot(ctx, sp)
				if err != nil {
					return err
				}
				return scheduleTable.one(s)
			})
		},
	}
	assign.Flags().Uint64Var(&sp.PilotID, "pilot", 0, "pilot id")
	assign.Flags().Uint64Var(&sp.FlightID, "flight", 0, "flight id")
	assign.Flags().StringVar(&start, "start", "", "start time (RFC3339 or unix nanoseconds)")
	assign.Flags().StringVar(&end, "end", "", "end time (RFC3339 or unix nanoseconds)")
	_ = assign.MarkFlagRequired("start")
	_ = assign.MarkFlagRequired("end")

	finish := func(use, short string, fn func(*engine.Engine, context.Context, uint64) (domain.PilotSchedule, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <schedule-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
					s, err := fn(e, ctx, id)
					if err != nil {
						return err
					}
					return scheduleTable.one(s)
				})
			},
		}
	}

	c.AddCommand(register, list, show, schedule, assign,
		finish("cancel-assignment", "Cancel an assignment and free the slot", (*engine.Engine).CancelPilotSchedule),
		finish("complete-assignment", "Mark an assignment completed", (*engine.Engine).CompletePilotSchedule),
	)
	return c
}

func maintenanceCmd() *cobra.Command {
	c := &cobra.Command{Use: "maintenance", Short: "Manage maintenance schedules"}

	var p engine.ScheduleMaintenancePayload
	var date string
	schedule := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if p.Date, err = parseTime(date); err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				m, err := e.ScheduleMaintenance(ctx, p)
				if err != nil {
					return err
				}
				return maintenanceTable.one(m)
			})
		},
	}
	schedule.Flags().Uint64Var(&p.AirstripID, "airstrip", 0, "airstrip id")
	schedule.Flags().StringVar(&date, "date", "0", "date (RFC3339 or unix nanoseconds)")
	schedule.Flags().StringVar(&p.Description, "description", "", "work to be done")

	list := &cobra.Command{
		Use:   "list <airstrip-id>",
		Short: "List maintenance schedules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.MaintenanceSchedules(ctx, id)
				if err != nil {
					return err
				}
				return maintenanceTable.list(items)
			})
		},
	}

	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark maintenance completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				m, err := e.CompleteMaintenance(ctx, id)
				if err != nil {
					return err
				}
				return maintenanceTable.one(m)
			})
		},
	}

	c.AddCommand(schedule, list, complete)
	return c
}

func emergencyCmd() *cobra.Command {
	c := &cobra.Command{Use: "emergency", Short: "Manage emergency protocols"}

	var p engine.CreateEmergencyProtocolPayload
	create := &cobra.Command{
		Use:   "create",
		Short: "Create emergency protocol",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				ep, err := e.CreateEmergencyProtocol(ctx, p)
				if err != nil {
					return err
				}
				return protocolTable.one(ep)
			})
		},
	}
	create.Flags().Uint64Var(&p.AirstripID, "airstrip", 0, "airstrip id")
	create.Flags().StringVar(&p.ProtocolType, "type", "", strings.Join(domain.ProtocolTypes, ", ")+" or another kind")
	create.Flags().StringVar(&p.Description, "description", "", "procedure")
	create.Flags().StringArrayVar(&p.ContactNumbers, "contact", nil, "contact number (repeatable)")
	create.Flags().StringArrayVar(&p.EvacuationRoutes, "route", nil, "evacuation route (repeatable)")

	list := &cobra.Command{
		Use:   "list <airstrip-id>",
		Short: "List emergency protocols",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.EmergencyProtocols(ctx, id)
				if err != nil {
					return err
				}
				return protocolTable.list(items)
			})
		},
	}

	c.AddCommand(create, list)
	return c
}

func fuelCmd() *cobra.Command {
	c := &cobra.Command{Use: "fuel", Short: "Manage fuel inventory"}

	var p engine.UpdateFuelInventoryPayload
	update := &cobra.Command{
		Use:   "update",
		Short: "Record a fuel inventory entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				f, err := e.UpdateFuelInventory(ctx, p)
				if err != nil {
					return err
				}
				return fuelTable.one(f)
			})
		},
	}
	update.Flags().Uint64Var(&p.AirstripID, "airstrip", 0, "airstrip id")
	update.Flags().StringVar(&p.FuelType, "type", "", "fuel type")
	update.Flags().Float64Var(&p.Quantity, "quantity", 0, "quantity on hand")
	update.Flags().Float64Var(&p.UnitPrice, "unit-price", 0, "price per unit")

	list := &cobra.Command{
		Use:   "list <airstrip-id>",
		Short: "List fuel inventory entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				items, err := e.FuelInventory(ctx, id)
				if err != nil {
					return err
				}
				return fuelTable.list(items)
			})
		},
	}

	c.AddCommand(update, list)
	return c
}

func revenueCmd() *cobra.Command {
	c := &cobra.Command{Use: "revenue", Short: "Record and analyse revenue"}

	var p engine.RecordRevenuePayload
	record := &cobra.Command{
		Use:   "record",
		Short: "Record revenue dated now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				r, err := e.RecordRevenue(ctx, p)
				if err != nil {
					return err
				}
				return revenueTable.one(r)
			})
		},
	}
	record.Flags().Uint64Var(&p.AirstripID, "airstrip", 0, "airstrip id")
	record.Flags().StringVar(&p.Source, "source", "", "landing_fees, fuel_sales, parking, maintenance or another category")
	record.Flags().Float64Var(&p.Amount, "amount", 0, "amount")
	record.Flags().StringVar(&p.Description, "description", "", "description")

	var start, end string
	analysis := &cobra.Command{
		Use:   "analysis <airstrip-id>",
		Short: "Sum revenue per source over [start, end]",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			from, err := parseTime(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to := uint64(1<<64 - 1)
			if end != "" {
				if to, err = parseTime(end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e *engine.Engine) error {
				b, err := e.RevenueAnalysis(ctx, id, from, to)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(b)
				}
				rows := make([]table.Row, 0, len(b))
				for _, l := range b {
					rows = append(rows, table.Row{l.Source, l.Amount})
				}
				renderTable(table.Row{"Source", "Amount"}, rows...)
				return nil
			})
		},
	}
	analysis.Flags().StringVar(&start, "start", "0", "window start (RFC3339 or unix nanoseconds)")
	analysis.Flags().StringVar(&end, "end", "", "window end, inclusive (default: no limit)")

	c.AddCommand(record, analysis)
	return c
}

func logCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every committed change appends one event: airstrips, flights, assignments, maintenance, protocols, fuel and revenue.",
	}
	c.AddCommand(logTailCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var n int
	var follow bool
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events, optionally following new ones over NATS",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.RecentEvents(ctx, n)
				if err != nil {
					return err
				}
				if err := eventTable.list(items); err != nil {
					return err
				}
				if !follow {
					return nil
				}
				np, ok := a.Publisher.(*events.NATSPublisher)
				if !ok {
					return errors.New("--follow requires nats.url")
				}
				return np.Subscribe(ctx, func(evt domain.Event) {
					_ = eventTable.one(evt)
				})
			})
		},
	}
	cmd.Flags().IntVarP(&n, "lines", "n", 20, "number of events")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "stream new events until interrupted")
	return cmd
}

func snapshotCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the whole store",
		Long:  "Snapshots go to snapshot.dir, or to snapshot.s3_bucket when one is configured.",
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				name, n, err := a.ExportSnapshot(ctx, time.Now())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"name": name, "entries": n})
				}
				fmt.Fprintf(stdout, "exported %d entries to %s\n", n, name)
				return nil
			})
		},
	}

	var merge bool
	imp := &cobra.Command{
		Use:   "import <name>",
		Short: "Load a snapshot into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				n, err := a.ImportSnapshot(ctx, args[0], merge)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"name": args[0], "entries": n})
				}
				fmt.Fprintf(stdout, "imported %d entries from %s\n", n, args[0])
				return nil
			})
		},
	}
	imp.Flags().BoolVar(&merge, "merge", false, "add to a non-empty store; entries that differ from live records abort the import")

	c.AddCommand(export, imp)
	return c
}

// --- helpers ---

// reportError prints engine failures in their wire form under --json.
func reportError(err error) {
	var engErr *engine.Error
	if viper.GetBool("json") && errors.As(err, &engErr) {
		_ = printJSON(engErr.Message())
		return
	}
	fmt.Fprintln(os.Stderr, "error:", err)
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func withEngine(ctx context.Context, fn func(context.Context, *engine.Engine) error) error {
	return withApp(ctx, func(ctx context.Context, a *app.App) error {
		return fn(ctx, a.Engine)
	})
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseTime accepts unix nanoseconds or an RFC3339 timestamp.
func parseTime(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return n, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("expected RFC3339 or unix nanoseconds, got %q", s)
	}
	if t.Before(time.Unix(0, 0)) {
		return 0, fmt.Errorf("time %s is before the unix epoch", s)
	}
	return uint64(t.UnixNano()), nil
}

func formatTime(ns uint64) string {
	if ns == 0 {
		return "-"
	}
	return time.Unix(0, int64(ns)).UTC().Format(time.RFC3339)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printMessage(msg domain.Message) error {
	if viper.GetBool("json") {
		return printJSON(msg)
	}
	fmt.Fprintln(stdout, msg.Message)
	return nil
}

func renderTable(header table.Row, rows ...table.Row) {
	tw := table.NewWriter()
	tw.SetOutputMirror(stdout)
	tw.AppendHeader(header)
	tw.AppendRows(rows)
	tw.Render()
}

// tableSpec renders one record kind as JSON or as a table.
type tableSpec[T any] struct {
	header table.Row
	row    func(T) table.Row
}

func (t tableSpec[T]) one(v T) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	renderTable(t.header, t.row(v))
	return nil
}

func (t tableSpec[T]) list(items []T) error {
	if viper.GetBool("json") {
		if items == nil {
			items = []T{}
		}
		return printJSON(items)
	}
	rows := make([]table.Row, 0, len(items))
	for _, v := range items {
		rows = append(rows, t.row(v))
	}
	renderTable(t.header, rows...)
	return nil
}

var airstripTable = tableSpec[domain.Airstrip]{
	header: table.Row{"ID", "Name", "Location", "Contact", "Email", "Runway (m)", "Capacity"},
	row: func(a domain.Airstrip) table.Row {
		return table.Row{a.ID, a.Name, a.Location, a.Contact, a.Email, a.RunwayLength, a.Capacity}
	},
}

var flightTable = tableSpec[domain.Flight]{
	header: table.Row{"ID", "Airstrip", "Number", "Destination", "Departure", "Arrival", "Status"},
	row: func(f domain.Flight) table.Row {
		return table.Row{f.ID, f.AirstripID, f.FlightNumber, f.Destination, formatTime(f.DepartureTime), formatTime(f.ArrivalTime), f.Status}
	},
}

var pilotTable = tableSpec[domain.Pilot]{
	header: table.Row{"ID", "Name", "License", "Years", "Contact", "Email"},
	row: func(p domain.Pilot) table.Row {
		return table.Row{p.ID, p.Name, p.LicenseNumber, p.ExperienceYears, p.Contact, p.Email}
	},
}

var scheduleTable = tableSpec[domain.PilotSchedule]{
	header: table.Row{"ID", "Pilot", "Flight", "Start", "End", "Status"},
	row: func(s domain.PilotSchedule) table.Row {
		return table.Row{s.ID, s.PilotID, s.FlightID, formatTime(s.StartTime), formatTime(s.EndTime), s.Status}
	},
}

var maintenanceTable = tableSpec[domain.MaintenanceSchedule]{
	header: table.Row{"ID", "Airstrip", "Date", "Description", "Status"},
	row: func(m domain.MaintenanceSchedule) table.Row {
		return table.Row{m.ID, m.AirstripID, formatTime(m.Date), m.Description, m.Status}
	},
}

var protocolTable = tableSpec[domain.EmergencyProtocol]{
	header: table.Row{"ID", "Airstrip", "Type", "Description", "Contacts", "Routes"},
	row: func(p domain.EmergencyProtocol) table.Row {
		return table.Row{p.ID, p.AirstripID, p.ProtocolType, p.Description,
			strings.Join(p.ContactNumbers, ", "), strings.Join(p.EvacuationRoutes, ", ")}
	},
}

var fuelTable = tableSpec[domain.FuelInventory]{
	header: table.Row{"ID", "Airstrip", "Fuel", "Quantity", "Unit price", "Updated"},
	row: func(f domain.FuelInventory) table.Row {
		return table.Row{f.ID, f.AirstripID, f.FuelType, f.Quantity, f.UnitPrice, formatTime(f.LastUpdated)}
	},
}

var revenueTable = tableSpec[domain.Revenue]{
	header: table.Row{"ID", "Airstrip", "Source", "Amount", "Date", "Description"},
	row: func(r domain.Revenue) table.Row {
		return table.Row{r.ID, r.AirstripID, r.Source, r.Amount, formatTime(r.TransactionDate), r.Description}
	},
}

var eventTable = tableSpec[domain.Event]{
	header: table.Row{"Seq", "Time", "Type", "Kind", "Entity", "Payload"},
	row: func(e domain.Event) table.Row {
		return table.Row{e.Seq, formatTime(e.TS), e.Type, e.EntityKind, e.EntityID, e.Payload}
	},
}

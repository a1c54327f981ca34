package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"zonemeter/internal/accounting"
	"zonemeter/internal/api"
	"zonemeter/internal/config"
	"zonemeter/internal/logger"
	"zonemeter/internal/models"
	"zonemeter/internal/service"
	"zonemeter/internal/setup"
	"zonemeter/internal/store"
)

func printSetupHint(meters []setup.MeterInfo, cfg *config.Config) {
	fmt.Printf("\nGateway Setup:\n")
	for _, m := range meters {
		zone := string(m.Zone)
		if zone == "" {
			zone = "UNASSIGNED"
		}
		fmt.Printf("  %-20s zone=%-12s fields=%s\n", m.MeterID, zone, strings.Join(m.Suffixes, ","))
	}

	var unassigned []setup.MeterInfo
	for _, m := range meters {
		if m.Zone == "" {
			unassigned = append(unassigned, m)
		}
	}
	if len(unassigned) == 0 {
		return
	}

	fmt.Printf("\n%d meter(s) have no zone assignment yet.\n", len(unassigned))
	fmt.Printf("Assign each one with:\n")
	for _, m := range unassigned {
		fmt.Printf("  zonemeter -reassign -meter %q -zone %q -by setup\n", m.MeterID, cfg.DefaultZone())
	}
}

func printReport(totals map[models.Zone]float64, from, to time.Time) {
	fmt.Printf("\nConsumption by zone: %s to %s\n",
		from.Format("2006-01-02 15:04"),
		to.Format("2006-01-02 15:04"))
	fmt.Printf("--------------------\n")
	for zone, total := range totals {
		fmt.Printf("%-15s %12.1f Wh\n", zone, total)
	}
}

func parseDate(dateStr string) (time.Time, error) {
	// Try different date formats
	formats := []string{
		"2006-01-02 15:04",
		"2006-01-02",
		"02.01.2006",
	}

	var parseErr error
	for _, format := range formats {
		t, err := time.ParseInLocation(format, dateStr, time.Local)
		if err == nil {
			return t, nil
		}
		parseErr = err
	}
	return time.Time{}, fmt.Errorf("invalid date format, please use YYYY-MM-DD or DD.MM.YYYY: %v", parseErr)
}

func main() {
	var (
		configPath  string
		startDate   string
		endDate     string
		meterList   string
		meterID     string
		zoneName    string
		requestedBy string
	)

	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&startDate, "from", "", "Window start (YYYY-MM-DD or 'YYYY-MM-DD HH:MM')")
	flag.StringVar(&endDate, "to", "", "Window end (YYYY-MM-DD or 'YYYY-MM-DD HH:MM')")
	flag.StringVar(&meterList, "meters", "", "Comma-separated meter IDs for -report (default: all assigned)")
	flag.StringVar(&meterID, "meter", "", "Meter ID for -reassign")
	flag.StringVar(&zoneName, "zone", "", "Target zone for -reassign")
	flag.StringVar(&requestedBy, "by", "", "Who requests the reassignment")
	serve := flag.Bool("serve", false, "Run the scheduled accounting loop")
	step := flag.Bool("step", false, "Run one manual accounting step and exit")
	report := flag.Bool("report", false, "Show consumption by zone for a window")
	reassign := flag.Bool("reassign", false, "Reassign a meter to a zone")
	analyze := flag.Bool("analyze", false, "Analyze gateway setup and suggest assignments")
	debug := flag.Bool("debug", false, "Enable debug output")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Debug = *debug
	if *debug {
		logger.SetDebug()
	}

	st, err := store.New(cfg.Storage.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	client := api.NewClient(cfg)
	tracker := accounting.NewTracker(cfg.Zones)
	runner := accounting.NewRunner(st, client, tracker, cfg.DefaultZone())
	svc := service.New(cfg, st, runner)

	ctx := context.Background()

	switch {
	case *analyze:
		setupAnalyzer := setup.NewAnalyzer(client, st)
		meters, err := setupAnalyzer.AnalyzeSetup(ctx)
		if err != nil {
			log.Fatalf("Setup analysis failed: %v", err)
		}
		printSetupHint(meters, cfg)

	case *reassign:
		if meterID == "" || zoneName == "" {
			log.Fatal("reassign needs -meter and -zone")
		}
		assignment, err := svc.Reassign(ctx, meterID, models.Zone(zoneName), requestedBy)
		if err != nil {
			log.Fatalf("Reassignment failed: %v", err)
		}
		fmt.Printf("Meter %s assigned to zone %s (record %s)\n",
			assignment.MeterID, assignment.Zone, assignment.ID)

	case *step:
		snap, err := runner.RunStep(ctx, models.SourceManual)
		if err != nil {
			log.Fatalf("Accounting step failed: %v", err)
		}
		fmt.Printf("Snapshot %d written (%d meters)\n", snap.ID, len(snap.Meters))

	case *report:
		from, to, err := reportWindow(startDate, endDate)
		if err != nil {
			log.Fatalf("Invalid window: %v", err)
		}
		meters, err := reportMeters(ctx, svc, meterList)
		if err != nil {
			log.Fatalf("Resolving meters: %v", err)
		}
		totals, err := svc.ConsumptionByZone(ctx, meters, from, to)
		if err != nil {
			log.Fatalf("Report failed: %v", err)
		}
		printReport(totals, from, to)

	case *serve:
		scheduler := accounting.NewScheduler(cfg.Accounting.StepInterval(), func(ctx context.Context) error {
			_, err := runner.RunStep(ctx, models.SourceScheduled)
			return err
		})
		scheduler.Start(ctx)
		logger.Info("accounting loop started", "interval", cfg.Accounting.StepInterval().String())

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		scheduler.Stop()
		logger.Info("accounting loop stopped")

	default:
		flag.Usage()
	}
}

func reportWindow(startDate, endDate string) (time.Time, time.Time, error) {
	now := time.Now()
	if startDate == "" && endDate == "" {
		// Default to the current day
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
		return from, now, nil
	}
	from, err := parseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date: %v", err)
	}
	to := now
	if endDate != "" {
		to, err = parseDate(endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date: %v", err)
		}
	}
	return from, to, nil
}

func reportMeters(ctx context.Context, svc *service.Service, meterList string) ([]string, error) {
	if meterList != "" {
		return strings.Split(meterList, ","), nil
	}
	assignments, err := svc.LatestAssignments(ctx)
	if err != nil {
		return nil, err
	}
	meters := make([]string, 0, len(assignments))
	for meterID := range assignments {
		meters = append(meters, meterID)
	}
	return meters, nil
}

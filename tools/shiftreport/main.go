// Command shiftreport dumps one shift's readings, reconciliations and
// handovers from Postgres into CSV files plus a zip archive for offline
// review.
package main

import (
	"archive/zip"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	handover "station-ops/internal/handover/domain"
	handoverpostgres "station-ops/internal/handover/infrastructure/postgres"
	readings "station-ops/internal/readings/domain"
	readingspostgres "station-ops/internal/readings/infrastructure/postgres"
	reconcile "station-ops/internal/reconcile/domain"
	reconcilepostgres "station-ops/internal/reconcile/infrastructure/postgres"
)

const timeLayout = time.RFC3339

type config struct {
	dbURL   string
	shiftID string
	tankIDs []string
	outDir  string
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	if err := os.MkdirAll(cfg.outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "create out dir:", err)
		os.Exit(2)
	}

	db, err := sql.Open("pgx", cfg.dbURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "db open:", err)
		os.Exit(2)
	}
	defer db.Close()

	ctx := context.Background()
	store := readingspostgres.NewReadingRepository(db)

	meters, err := store.ListShiftMeterReadings(ctx, cfg.shiftID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load meter readings:", err)
		os.Exit(2)
	}
	if err := writeMeterReadings(cfg.outDir, meters); err != nil {
		fmt.Fprintln(os.Stderr, "write meter readings:", err)
		os.Exit(2)
	}

	var dips []readings.TankDipReading
	var deliveries []readings.DeliveryRecord
	for _, tankID := range cfg.tankIDs {
		tankDips, err := store.ListShiftDipReadings(ctx, cfg.shiftID, tankID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load dip readings:", err)
			os.Exit(2)
		}
		dips = append(dips, tankDips...)
		tankDeliveries, err := store.ListShiftDeliveries(ctx, cfg.shiftID, tankID)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load deliveries:", err)
			os.Exit(2)
		}
		deliveries = append(deliveries, tankDeliveries...)
	}
	if err := writeDipReadings(cfg.outDir, dips); err != nil {
		fmt.Fprintln(os.Stderr, "write dip readings:", err)
		os.Exit(2)
	}
	if err := writeDeliveries(cfg.outDir, deliveries); err != nil {
		fmt.Fprintln(os.Stderr, "write deliveries:", err)
		os.Exit(2)
	}

	results, err := reconcilepostgres.NewResultRepository(db).ListShiftReconciliations(ctx, cfg.shiftID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load reconciliations:", err)
		os.Exit(2)
	}
	if err := writeReconciliations(cfg.outDir, results); err != nil {
		fmt.Fprintln(os.Stderr, "write reconciliations:", err)
		os.Exit(2)
	}

	handovers, err := handoverpostgres.NewHandoverRepository(db).ListShiftHandovers(ctx, cfg.shiftID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load handovers:", err)
		os.Exit(2)
	}
	if err := writeHandovers(cfg.outDir, handovers); err != nil {
		fmt.Fprintln(os.Stderr, "write handovers:", err)
		os.Exit(2)
	}

	archivePath, err := writeArchive(cfg.outDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "write archive:", err)
		os.Exit(2)
	}

	fmt.Printf("Shift report written to %s (archive %s)\n", cfg.outDir, archivePath)
}

func writeArchive(outDir string) (string, error) {
	archivePath := filepath.Join(outDir, "shift_report.zip")
	file, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	zipWriter := zip.NewWriter(file)
	defer zipWriter.Close()

	entries := []string{
		"nozzle_readings.csv",
		"tank_dips.csv",
		"deliveries.csv",
		"reconciliations.csv",
		"handovers.csv",
	}

	for _, name := range entries {
		path := filepath.Join(outDir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		fw, err := zipWriter.Create(name)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		if _, err := fw.Write(data); err != nil {
			return "", err
		}
	}
	return archivePath, nil
}

func parseFlags() (config, error) {
	var cfg config
	var tanks string
	flag.StringVar(&cfg.dbURL, "db", getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")), "Postgres DSN")
	flag.StringVar(&cfg.shiftID, "shift", "", "shift id")
	flag.StringVar(&tanks, "tanks", "", "comma-separated tank ids")
	flag.StringVar(&cfg.outDir, "out", "./out", "output directory")
	flag.Parse()

	if cfg.dbURL == "" {
		return cfg, errors.New("missing --db or DATABASE_URL/PG_DSN")
	}
	if cfg.shiftID == "" {
		return cfg, errors.New("missing --shift")
	}
	cfg.tankIDs = splitCSVList(tanks)
	if len(cfg.tankIDs) == 0 {
		return cfg, errors.New("missing --tanks")
	}
	return cfg, nil
}

func splitCSVList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func writeCSV(outDir, name string, header []string, rows [][]string) error {
	path := filepath.Join(outDir, name)
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeMeterReadings(outDir string, rows []readings.NozzleMeterReading) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.ShiftID,
			row.NozzleID,
			row.TankID,
			string(row.Type),
			formatFloat(row.Electronic),
			formatFloat(row.Mechanical),
			row.RecordedBy,
			row.RecordedAt.Format(timeLayout),
		})
	}
	return writeCSV(outDir, "nozzle_readings.csv",
		[]string{"shift_id", "nozzle_id", "tank_id", "type", "electronic", "mechanical", "recorded_by", "recorded_at"},
		records)
}

func writeDipReadings(outDir string, rows []readings.TankDipReading) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.ShiftID,
			row.TankID,
			formatFloat(row.DepthCm),
			formatFloat(row.Liters),
			row.RecordedBy,
			row.RecordedAt.Format(timeLayout),
		})
	}
	return writeCSV(outDir, "tank_dips.csv",
		[]string{"shift_id", "tank_id", "depth_cm", "liters", "recorded_by", "recorded_at"},
		records)
}

func writeDeliveries(outDir string, rows []readings.DeliveryRecord) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.ShiftID,
			row.TankID,
			row.At.Format(timeLayout),
			formatFloat(row.Liters),
			row.Supplier,
		})
	}
	return writeCSV(outDir, "deliveries.csv",
		[]string{"shift_id", "tank_id", "delivered_at", "liters", "supplier"},
		records)
}

func writeReconciliations(outDir string, rows []reconcile.StoredReconciliation) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		result := row.Result
		records = append(records, []string{
			row.ShiftID,
			result.TankID,
			formatFloat(result.OpeningDipLiters),
			formatFloat(result.ClosingDipLiters),
			formatFloat(result.TotalDeliveredLiters),
			formatFloat(result.TankVolumeMovement),
			formatFloat(result.NozzleTotalLiters),
			formatFloat(result.VarianceLiters),
			formatFloat(result.VariancePercent),
			string(result.Verdict),
			string(result.DataSource),
			strconv.FormatBool(result.Complete()),
			row.CreatedAt.Format(timeLayout),
		})
	}
	return writeCSV(outDir, "reconciliations.csv",
		[]string{"shift_id", "tank_id", "opening_dip_liters", "closing_dip_liters", "delivered_liters", "movement_liters", "nozzle_total_liters", "variance_liters", "variance_percent", "verdict", "data_source", "complete", "created_at"},
		records)
}

func writeHandovers(outDir string, rows []handover.StoredHandover) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		result := row.Result
		records = append(records, []string{
			row.ShiftID,
			result.AttendantID,
			result.FuelRevenue.StringFixed(2),
			result.LPGSales.StringFixed(2),
			result.LubricantSales.StringFixed(2),
			result.AccessorySales.StringFixed(2),
			result.TotalExpected.StringFixed(2),
			result.CreditSales.StringFixed(2),
			result.ExpectedCash.StringFixed(2),
			result.ActualCash.StringFixed(2),
			result.Difference.StringFixed(2),
			string(row.Status),
			row.CreatedAt.Format(timeLayout),
		})
	}
	return writeCSV(outDir, "handovers.csv",
		[]string{"shift_id", "attendant_id", "fuel_revenue", "lpg_sales", "lubricant_sales", "accessory_sales", "total_expected", "credit_sales", "expected_cash", "actual_cash", "difference", "status", "created_at"},
		records)
}

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/donormap/internal/fetcher"
	"github.com/sells-group/donormap/internal/report"
)

// -- totals --

var totalsCmd = &cobra.Command{
	Use:   "totals",
	Short: "Sum the amount column of each input file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("report"); err != nil {
			return err
		}

		totals, err := report.FileTotals(ctx, cfg.Input.Dir, cfg.Input.Suffix)
		if err != nil {
			return err
		}
		if len(totals) == 0 {
			fmt.Fprintf(os.Stderr, "No files matching *%s in %s.\n", cfg.Input.Suffix, cfg.Input.Dir)
			return nil
		}

		printLines(os.Stdout, totalLines(totals))
		if err := report.WriteTotals(cfg.Report.TotalsPath, totals); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Wrote %d total(s) to %s\n", len(totals), cfg.Report.TotalsPath)
		return nil
	},
}

// -- city-totals --

var cityTotalsCmd = &cobra.Command{
	Use:   "city-totals",
	Short: "Count donors and dollars from a set of cities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		file, _ := cmd.Flags().GetString("file")
		if file == "" {
			file = cfg.Report.CityTotalFile
		}
		cities, _ := cmd.Flags().GetStringSlice("cities")
		if len(cities) == 0 {
			cities = cfg.Report.Cities
		}
		if len(cities) == 0 {
			return eris.New("city-totals: no cities given")
		}

		if _, err := os.Stat(file); err != nil {
			return eris.Wrapf(err, "city-totals: input file not found: %s", file)
		}
		_, records, err := fetcher.ReadRecords(ctx, file)
		if err != nil {
			return eris.Wrap(err, "city-totals")
		}

		printLines(os.Stdout, report.CityTotals(records, cities).Lines())
		return nil
	},
}

// -- zips --

var zipsCmd = &cobra.Command{
	Use:   "zips",
	Short: "Write the unique ZIP codes found in the input files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.Input.Dir
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Report.ZIPsPath
		}

		files, err := report.CSVFiles(dir)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Fprintf(os.Stderr, "No input CSVs found in %s.\n", dir)
			return nil
		}

		zips, err := report.UniqueZIPs(ctx, files)
		if err != nil {
			return err
		}
		if err := report.WriteZIPs(out, zips); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Wrote %d unique ZIP(s) to %s\n", len(zips), out)
		return nil
	},
}

// -- filter --

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Keep one state's rows from the national contribution files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("state") {
			cfg.Report.FilterState, _ = cmd.Flags().GetString("state")
		}
		if cmd.Flags().Changed("in") {
			cfg.Report.FilterInput, _ = cmd.Flags().GetString("in")
		}
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = cfg.Input.Dir
		}
		if err := cfg.Validate("filter"); err != nil {
			return err
		}

		results, err := report.FilterDir(ctx, cfg.Report.FilterInput, out, cfg.Report.FilterState)
		if err != nil {
			return err
		}
		for _, r := range results {
			fmt.Fprintf(os.Stdout, "Filtered %s -> %s (%d of %d rows)\n", r.Input, r.Output, r.Kept, r.Rows)
		}
		return nil
	},
}

func totalLines(totals []report.FileTotal) []string {
	lines := make([]string, len(totals))
	for i, t := range totals {
		lines[i] = t.String()
	}
	return lines
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(w, l)
	}
}

func init() {
	cityTotalsCmd.Flags().String("file", "", "donation file to read (overrides report.city_total_file)")
	cityTotalsCmd.Flags().StringSlice("cities", nil, "comma-separated city names, case-insensitive (overrides report.cities)")

	zipsCmd.Flags().String("dir", "", "directory of CSV files to scan (defaults to input.dir)")
	zipsCmd.Flags().String("out", "", "output CSV path (overrides report.zips_path)")

	filterCmd.Flags().String("state", "MT", "two-letter state code to keep")
	filterCmd.Flags().String("in", "", "directory of *-all.csv files (overrides report.filter_input)")
	filterCmd.Flags().String("out", "", "output directory (defaults to input.dir)")

	rootCmd.AddCommand(totalsCmd)
	rootCmd.AddCommand(cityTotalsCmd)
	rootCmd.AddCommand(zipsCmd)
	rootCmd.AddCommand(filterCmd)
}

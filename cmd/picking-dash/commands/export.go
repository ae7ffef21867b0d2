package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"picking-dash/internal/analysis"
	"picking-dash/internal/picklog"
)

var (
	exportFilter filterFlags
	exportOut    string
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write the filtered records of a picking export to CSV or XLSX",
	Long: `Loads one CSV or XLSX file, applies the filter flags and writes the selected rows with the
source columns first, followed by the derived Shift and Efficiency columns. Without --out the file
lands in the export directory as <name>_filtered.<format>.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportFilter.bind(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "destination file")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "csv or xlsx (defaults to the --out extension, then csv)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := picklog.FormatCSV
	switch {
	case exportFormat != "":
		f, err := analysis.ParseExportFormat(exportFormat)
		if err != nil {
			return err
		}
		format = f
	case exportOut != "":
		format = formatFromPath(exportOut)
	}

	svc := newService(nil)
	info, err := loadFile(svc, args[0])
	if err != nil {
		return err
	}
	params, err := exportFilter.params(svc.Location())
	if err != nil {
		return err
	}

	path := exportOut
	if path == "" {
		ds, err := svc.Dataset(info.ID)
		if err != nil {
			return err
		}
		path = filepath.Join(cfg.ExportDir, analysis.ExportFileName(ds, format))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	rows, err := svc.Export(f, info.ID, params, format)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}

	log.Info().Str("path", path).Int("rows", rows).Msg("Export complete")
	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d rows)\n", path, rows)
	return nil
}

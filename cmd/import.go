package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chaos-io/photo2gallery/gallery"
	"github.com/chaos-io/photo2gallery/gallery/webpcodec"
	"github.com/chaos-io/photo2gallery/util"
)

func newImportCmd(root *rootOptions) *cobra.Command {
	var (
		source, output, manifest string
		maxWidth, maxHeight      int
		autoOrient               bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Convert new captures into gallery images and rewrite the manifest",
		Long: `Import scans the source folder for IMG_* captures (JPEG or PNG), skips duplicates
whose name contains " 2", flattens transparency onto the background color, scales each
photo to fit the maximum size and writes it as <prefix>-NNN.webp.

The manifest is rewritten once every photo has been processed. Numbering follows the sorted
file names; photos that fail are reported and do not take a number. Existing gallery files
with the same names are overwritten.`,
		Example: `  # Import from ~/Downloads into client/public/gallery
  photo2gallery import

  # Import from a phone dump with EXIF rotation applied
  photo2gallery import --source /mnt/phone/DCIM --auto-orient`,
		RunE: root.run(func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("source") {
				cfg.Import.SourceDir = source
			}
			if flags.Changed("output") {
				cfg.Import.OutputDir = output
			}
			if flags.Changed("manifest") {
				cfg.Import.ManifestPath = manifest
			}
			if flags.Changed("max-width") {
				cfg.Import.MaxWidth = maxWidth
			}
			if flags.Changed("max-height") {
				cfg.Import.MaxHeight = maxHeight
			}
			if flags.Changed("auto-orient") {
				cfg.Import.AutoOrient = autoOrient
			}
			if err := cfg.ValidateImport(); err != nil {
				return err
			}

			sourceDir, err := util.ExpandHome(cfg.Import.SourceDir)
			if err != nil {
				return err
			}

			defer util.Trace("import")()

			codec := webpcodec.New(webpcodec.Options{
				Quality:    cfg.Quality,
				Method:     cfg.Method,
				AutoOrient: cfg.Import.AutoOrient,
			})
			importer := gallery.NewImporter(gallery.ImportOptions{
				SourceDir:    sourceDir,
				OutputDir:    cfg.Import.OutputDir,
				ManifestPath: cfg.Import.ManifestPath,
				Selector: gallery.Selector{
					Extensions:      cfg.Import.Extensions,
					CapturePrefix:   cfg.Import.CapturePrefix,
					DuplicateMarker: cfg.Import.DuplicateMarker,
				},
				Background: cfg.Background.NRGBA(),
				MaxWidth:   cfg.Import.MaxWidth,
				MaxHeight:  cfg.Import.MaxHeight,
				FilePrefix: cfg.Import.FilePrefix,
				PublicPath: cfg.Import.PublicPath,
				AltFormat:  cfg.Import.AltFormat,
				Category:   cfg.Import.Category,
			}, codec, cmd.OutOrStdout())

			report, err := importer.Run(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "--------------------------------------------------")
			fmt.Fprintf(out, "%d photos processed successfully\n", len(report.Entries))
			if len(report.Failures) > 0 {
				fmt.Fprintf(out, "%d photos skipped because of errors\n", len(report.Failures))
			}
			fmt.Fprintf(out, "Images: %s\n", cfg.Import.OutputDir)
			fmt.Fprintf(out, "Manifest: %s\n", cfg.Import.ManifestPath)
			if report.Replaced > 0 {
				fmt.Fprintf(out, "Replaced a manifest of %d entries\n", report.Replaced)
			}
			if report.Curated > 0 {
				fmt.Fprintf(out, "WARNING: %d curated categories were reset to %q\n", report.Curated, cfg.Import.Category)
			}
			fmt.Fprintf(out, "\nEvery entry has category %q; edit the manifest to assign real categories.\n", cfg.Import.Category)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Folder with the original photos (default from config: ~/Downloads)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Gallery output folder (default from config: client/public/gallery)")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Manifest JSON path (default from config: client/src/data/gallery.json)")
	cmd.Flags().IntVar(&maxWidth, "max-width", 0, "Maximum output width in pixels (default from config: 1200)")
	cmd.Flags().IntVar(&maxHeight, "max-height", 0, "Maximum output height in pixels (default from config: 1600)")
	cmd.Flags().BoolVar(&autoOrient, "auto-orient", false, "Rotate photos according to their EXIF orientation")

	return cmd
}

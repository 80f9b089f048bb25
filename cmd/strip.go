package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chaos-io/photo2gallery/gallery"
	"github.com/chaos-io/photo2gallery/gallery/webpcodec"
	"github.com/chaos-io/photo2gallery/rembg"
	"github.com/chaos-io/photo2gallery/util"
)

func newStripCmd(root *rootOptions) *cobra.Command {
	var (
		galleryDir, backupDir string
		backend, rembgURL     string
		comfyURL, model       string
	)

	cmd := &cobra.Command{
		Use:   "strip",
		Short: "Replace the background of every gallery image with a flat color",
		Long: `Strip sends each WebP image of the gallery folder to a background removal backend,
puts the cut-out subject on the background color and overwrites the file.

This is destructive: the original image is replaced and cannot be recovered unless
--backup-dir is given. Backends:
  rembg     a rembg HTTP server ("rembg s")
  birefnet  a ComfyUI server running the BiRefNet workflow
  none      no removal, only re-encodes`,
		Example: `  # Use a local rembg server, keeping copies of the originals
  photo2gallery strip --backup-dir backups/gallery

  # Use ComfyUI with BiRefNet
  photo2gallery strip --backend birefnet --comfy-url http://192.168.4.188:8188/`,
		RunE: root.run(func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			flags := cmd.Flags()
			if flags.Changed("gallery") {
				cfg.Strip.GalleryDir = galleryDir
			}
			if flags.Changed("backup-dir") {
				cfg.Strip.BackupDir = backupDir
			}
			if flags.Changed("backend") {
				cfg.RemBG.Backend = backend
			}
			if flags.Changed("rembg-url") {
				cfg.RemBG.URL = rembgURL
			}
			if flags.Changed("comfy-url") {
				cfg.RemBG.ComfyURL = comfyURL
			}
			if flags.Changed("model") {
				cfg.RemBG.Model = model
			}
			if err := cfg.ValidateStrip(); err != nil {
				return err
			}

			remover, err := rembg.New(rembg.Options{
				Backend:      cfg.RemBG.Backend,
				URL:          cfg.RemBG.URL,
				Model:        cfg.RemBG.Model,
				ComfyURL:     cfg.RemBG.ComfyURL,
				PollInterval: cfg.RemBG.PollInterval,
				Timeout:      cfg.RemBG.Timeout,
			})
			if err != nil {
				return err
			}

			defer util.Trace("strip")()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "==================================================")
			fmt.Fprintln(out, "Background removal")
			fmt.Fprintln(out, "==================================================")
			fmt.Fprintf(out, "Folder: %s\n", cfg.Strip.GalleryDir)
			fmt.Fprintf(out, "Background: %s\n", cfg.Background)
			fmt.Fprintf(out, "Backend: %s\n", cfg.RemBG.Backend)

			codec := webpcodec.New(webpcodec.Options{Quality: cfg.Quality, Method: cfg.Method})
			stripper := gallery.NewStripper(gallery.StripOptions{
				GalleryDir: cfg.Strip.GalleryDir,
				Background: cfg.Background.NRGBA(),
				BackupDir:  cfg.Strip.BackupDir,
			}, codec, remover, out)

			report, err := stripper.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(out, "--------------------------------------------------")
			fmt.Fprintf(out, "Done: %d succeeded, %d errors\n", len(report.Succeeded), len(report.Failures))
			if len(report.Unsegmented) > 0 {
				fmt.Fprintf(out, "No background found in %d images: %s\n", len(report.Unsegmented), strings.Join(report.Unsegmented, ", "))
			}
			if report.BackupDir != "" {
				fmt.Fprintf(out, "Originals saved in %s\n", report.BackupDir)
			}
			fmt.Fprintln(out, "==================================================")
			return nil
		}),
	}

	cmd.Flags().StringVarP(&galleryDir, "gallery", "g", "", "Gallery folder to rewrite (default from config: client/public/gallery)")
	cmd.Flags().StringVar(&backupDir, "backup-dir", "", "Copy each original here before overwriting it")
	cmd.Flags().StringVar(&backend, "backend", "", "Background removal backend: rembg, birefnet or none")
	cmd.Flags().StringVar(&rembgURL, "rembg-url", "", "rembg server endpoint")
	cmd.Flags().StringVar(&comfyURL, "comfy-url", "", "ComfyUI base URL for the birefnet backend")
	cmd.Flags().StringVar(&model, "model", "", "rembg model name, e.g. u2net or isnet-general-use")

	return cmd
}

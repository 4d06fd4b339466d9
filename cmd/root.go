package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/internal/disk"
	"github.com/deploymenttheory/go-squashfs/internal/services"
)

var (
	verbose     bool
	imageOffset int64
)

var rootCmd = &cobra.Command{
	Use:   "go-squashfs",
	Short: "Read-only SquashFS image explorer and extractor",
	Long: `go-squashfs is a cross-platform, read-only command-line tool for
inspecting and extracting SquashFS filesystem images.

Works directly with image files or firmware blobs that embed an image at an
offset, without mounting or kernel support.

Commands:
  info     Show superblock and compression details
  list     List directory contents
  find     Find entries by name across the tree
  extract  Extract files or directory trees
  xattrs   Show extended attributes of a path`,
	Version: "0.1.0-dev",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Int64Var(&imageOffset, "offset", 0, "byte offset of the superblock within the file")
}

// openImage opens the image file at path and mounts the filesystem view
// over it. The caller closes the returned device.
func openImage(path string) (*disk.ImageDevice, *services.FileSystem, error) {
	config, err := disk.LoadImageConfig()
	if err != nil {
		return nil, nil, err
	}
	if imageOffset != 0 {
		config.AutoDetectOffset = false
		config.DefaultOffset = imageOffset
	}
	device, err := disk.OpenImage(path, config)
	if err != nil {
		return nil, nil, err
	}
	fs, err := services.Open(device)
	if err != nil {
		device.Close()
		return nil, nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "superblock at offset %d (%s)\n", device.Offset(), path)
	}
	return device, fs, nil
}

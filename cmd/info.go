package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [image-path]",
	Short: "Show superblock and compression details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runInfo(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(imagePath string) error {
	device, fs, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer device.Close()

	sb := fs.Superblock()
	fmt.Printf("SquashFS %d.%d image: %s\n", sb.VersionMajor, sb.VersionMinor, imagePath)
	fmt.Printf("    Compression:    %s\n", sb.Compression)
	fmt.Printf("    Block size:     %d\n", sb.BlockSize)
	fmt.Printf("    Inodes:         %d\n", sb.InodeCount)
	fmt.Printf("    Fragments:      %d\n", sb.FragmentCount)
	fmt.Printf("    Ids:            %d\n", sb.IDCount)
	fmt.Printf("    Bytes used:     %d\n", sb.BytesUsed)
	fmt.Printf("    Created:        %s\n", sb.ModTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("    Exportable:     %t\n", sb.HasExports())
	fmt.Printf("    Xattrs:         %t\n", sb.HasXattrs())

	if verbose {
		readCalls, bytesRead, method, detection := device.Statistics()
		fmt.Printf("    Offset method:  %s (%s)\n", method, detection)
		fmt.Printf("    Reads:          %d calls, %d bytes\n", readCalls, bytesRead)
	}
	return nil
}

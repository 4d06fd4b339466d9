package cmd

import (
	"fmt"
	"sort"
	"unicode"

	"github.com/spf13/cobra"
)

var xattrsPath string

var xattrsCmd = &cobra.Command{
	Use:   "xattrs [image-path]",
	Short: "Show extended attributes of a path",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runXattrs(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(xattrsCmd)

	xattrsCmd.Flags().StringVarP(&xattrsPath, "path", "p", "/", "path to inspect")
}

func runXattrs(imagePath string) error {
	device, fs, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer device.Close()

	node, err := fs.ResolvePath(xattrsPath)
	if err != nil {
		return err
	}
	attrs, err := fs.Xattrs(node)
	if err != nil {
		return err
	}
	if len(attrs) == 0 {
		fmt.Printf("%s: no extended attributes\n", xattrsPath)
		return nil
	}

	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%s=%s\n", k, renderValue(attrs[k]))
	}
	return nil
}

// renderValue prints printable values verbatim and the rest as a hex dump.
func renderValue(v []byte) string {
	for _, b := range v {
		if b > unicode.MaxASCII || (!unicode.IsPrint(rune(b)) && b != '\n' && b != '\t') {
			return fmt.Sprintf("%#x", v)
		}
	}
	return string(v)
}

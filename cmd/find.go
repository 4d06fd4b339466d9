package cmd

import (
	"fmt"
	gopath "path"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
)

var (
	findName string
	findRoot string
	findType string
)

var findCmd = &cobra.Command{
	Use:   "find [image-path]",
	Short: "Find entries by name across the tree",
	Long: `Find directory entries whose name matches a glob pattern.

Examples:
  # Find every shared library
  go-squashfs find firmware.squashfs --name "*.so"

  # Find directories named bin under /usr
  go-squashfs find firmware.squashfs --name bin --root /usr --type d`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runFind(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringVarP(&findName, "name", "n", "*", "glob pattern to match entry names against")
	findCmd.Flags().StringVar(&findRoot, "root", "/", "subtree to search")
	findCmd.Flags().StringVarP(&findType, "type", "t", "", "restrict to a type: f, d or l")
}

func runFind(imagePath string) error {
	device, fs, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer device.Close()

	if _, err := gopath.Match(findName, ""); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", findName, err)
	}

	return fs.Walk(findRoot, func(path string, entry *directories.Entry, ino *inodes.Inode, err error) error {
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			return nil
		}
		if !typeMatches(ino) {
			return nil
		}
		if ok, _ := gopath.Match(findName, string(entry.Name)); ok {
			fmt.Println(path)
		}
		return nil
	})
}

func typeMatches(ino *inodes.Inode) bool {
	switch findType {
	case "":
		return true
	case "f":
		return ino.IsFile()
	case "d":
		return ino.IsDir()
	case "l":
		return ino.IsSymlink()
	}
	return false
}

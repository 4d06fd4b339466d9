package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-squashfs/internal/parsers/directories"
	"github.com/deploymenttheory/go-squashfs/internal/parsers/inodes"
	"github.com/deploymenttheory/go-squashfs/internal/services"
)

var (
	listPath      string
	listRecursive bool
	listLong      bool
)

var listCmd = &cobra.Command{
	Use:   "list [image-path]",
	Short: "List directory contents",
	Long: `List contents of a directory within a SquashFS image.

Examples:
  # List the root directory
  go-squashfs list firmware.squashfs

  # Long recursive listing of a subtree
  go-squashfs list firmware.squashfs --path /etc --recursive --long`,

	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runList(args[0]); err != nil {
			cobra.CheckErr(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringVarP(&listPath, "path", "p", "/", "path to list")
	listCmd.Flags().BoolVarP(&listRecursive, "recursive", "r", false, "recursive listing")
	listCmd.Flags().BoolVarP(&listLong, "long", "l", false, "show mode, ownership, size and mtime")
}

func runList(imagePath string) error {
	device, fs, err := openImage(imagePath)
	if err != nil {
		return err
	}
	defer device.Close()

	if listRecursive {
		return fs.Walk(listPath, func(path string, entry *directories.Entry, ino *inodes.Inode, err error) error {
			if err != nil {
				fmt.Printf("%s: %v\n", path, err)
				return nil
			}
			return printEntry(fs, path, ino)
		})
	}

	node, err := fs.ResolvePath(listPath)
	if err != nil {
		return err
	}
	entries, err := fs.ListDirectory(node)
	if err != nil {
		return err
	}
	for i := range entries {
		child, err := fs.ResolveInode(entries[i].Ref())
		if err != nil {
			fmt.Printf("%s: %v\n", entries[i].Name, err)
			continue
		}
		if err := printEntry(fs, string(entries[i].Name), child); err != nil {
			return err
		}
	}
	return nil
}

func printEntry(fs *services.FileSystem, path string, ino *inodes.Inode) error {
	if !listLong {
		fmt.Println(path)
		return nil
	}
	info, err := fs.Stat(ino)
	if err != nil {
		return err
	}
	line := fmt.Sprintf("%s %5d %5d %9d %s %s",
		info.Mode, info.UID, info.GID, info.Size,
		info.ModTime.Format("2006-01-02 15:04"), path)
	if ino.IsSymlink() {
		if target, err := fs.ReadLink(ino); err == nil {
			line += " -> " + target
		}
	}
	fmt.Println(line)
	return nil
}

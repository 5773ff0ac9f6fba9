package cmd

import (
	"fmt"

	"github.com/refitfs/gofsw/fsw"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls <path-in-volume>",
	Short: "List directory entries for a path inside the mounted image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		vol, closeVol, err := openVolume(ctx)
		if err != nil {
			return err
		}
		defer closeVol()

		dn, err := vol.LookupPath(ctx, vol.Root, fsw.NewISO88591([]byte(args[0])), '/')
		if err != nil {
			return err
		}
		defer vol.DnodeRelease(dn)

		dn, err = vol.DnodeResolve(ctx, dn)
		if err != nil {
			return err
		}
		if dn.Type != fsw.TypeDir {
			return fmt.Errorf("%s: %w (not a directory)", args[0], fsw.ErrUnsupported)
		}

		shand, err := vol.ShandleOpen(ctx, dn)
		if err != nil {
			return err
		}
		defer vol.ShandleClose(shand)

		for {
			child, err := vol.DnodeDirRead(ctx, shand)
			if err != nil {
				return err
			}
			if child == nil {
				return nil
			}
			if err := vol.DnodeFill(ctx, child); err != nil {
				vol.DnodeRelease(child)
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s\n", dnodeTypeNames[child.Type], child.Name.GoString())
			vol.DnodeRelease(child)
		}
	},
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

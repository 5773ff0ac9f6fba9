package cmd

import (
	"fmt"

	"github.com/refitfs/gofsw/fsw"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <path-in-volume>",
	Short: "Print the contents of a file inside the mounted image",
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
		if dn.Type != fsw.TypeFile {
			return fmt.Errorf("%s: %w (not a regular file)", args[0], fsw.ErrUnsupported)
		}

		shand, err := vol.ShandleOpen(ctx, dn)
		if err != nil {
			return err
		}
		defer vol.ShandleClose(shand)

		buf := make([]byte, 32*1024)
		out := cmd.OutOrStdout()
		for {
			n, err := vol.ShandleRead(ctx, shand, buf)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(catCmd)
}

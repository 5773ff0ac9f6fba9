package cmd

import (
	"fmt"
	"time"

	"github.com/refitfs/gofsw/fsw"
	"github.com/spf13/cobra"
)

var dnodeTypeNames = map[fsw.DnodeType]string{
	fsw.TypeUnknown: "unknown",
	fsw.TypeFile:    "file",
	fsw.TypeDir:     "dir",
	fsw.TypeSymlink: "symlink",
	fsw.TypeSpecial: "special",
}

var statCmd = &cobra.Command{
	Use:   "stat <path-in-volume>",
	Short: "Print type, size, and timestamps for a path inside the mounted image",
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
		if err := vol.DnodeFill(ctx, dn); err != nil {
			return err
		}

		st, err := vol.DnodeStat(ctx, dn)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "type:      %s\n", dnodeTypeNames[dn.Type])
		fmt.Fprintf(cmd.OutOrStdout(), "size:      %d\n", dn.Size)
		fmt.Fprintf(cmd.OutOrStdout(), "used:      %d\n", st.UsedBytes)
		fmt.Fprintf(cmd.OutOrStdout(), "mode:      %04o\n", st.ModePosix)
		fmt.Fprintf(cmd.OutOrStdout(), "atime:     %s\n", time.Unix(st.ATime, 0).UTC())
		fmt.Fprintf(cmd.OutOrStdout(), "mtime:     %s\n", time.Unix(st.MTime, 0).UTC())
		fmt.Fprintf(cmd.OutOrStdout(), "ctime:     %s\n", time.Unix(st.CTime, 0).UTC())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statCmd)
}

// Command gofsw mounts an ext2 or ReiserFS disk image read-only and lets
// you stat, list, and cat paths inside it.
package main

import "github.com/refitfs/gofsw/cmd"

func main() {
	cmd.Execute()
}

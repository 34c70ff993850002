// Package led publishes a per-daemon health signal as a coloured icon on
// the local status page. Setting the signal copies the matching colour PNG
// over the daemon's icon file; a missing icon set is tolerated so the
// collectors run fine on machines without the status page installed.
package led

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/mbruggen/homeflux/pkg/pathing"
)

// Set points the daemon's status icon at the given colour. A missing icon
// set is ignored; any other failure is logged.
func Set(daemon, colour string) {
	src := filepath.Join(pathing.GetIconDir(), colour+".png")
	dst := filepath.Join(pathing.GetSiteDir(), daemon+".png")

	if err := copyFile(src, dst); err != nil {
		if os.IsNotExist(err) {
			return
		}
		log.Printf("status icon update failed: %v", err)
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

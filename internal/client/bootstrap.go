package client

import (
	"context"
	"fmt"

	"wgstatusbar/internal/core"
)

// VersionGetter is the part of the helper needed for the bootstrap check.
type VersionGetter interface {
	GetVersion(ctx context.Context) (string, error)
}

// HelperStatus reports whether the installed helper is reachable and runs
// exactly bundledVersion. When it is not, message says why, for display to
// the user before offering a (re)install.
func HelperStatus(ctx context.Context, helper VersionGetter, bundledVersion string) (installed bool, message string) {
	installedVersion, err := helper.GetVersion(ctx)
	if err != nil {
		core.Log.Infof("Client", "Helper not reachable: %v", err)
		return false, fmt.Sprintf("Helper is not installed or not running: %v", err)
	}
	core.Log.Debugf("Client", "Helper version %s, bundled %s", installedVersion, bundledVersion)
	if installedVersion != bundledVersion {
		return false, fmt.Sprintf("Helper version %s does not match %s. If downgrading, uninstall first.",
			installedVersion, bundledVersion)
	}
	return true, ""
}

package provider

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

func isWSL() bool {
	if runtime.GOOS != "linux" {
		return false
	}

	if data, err := os.ReadFile("/proc/version"); err == nil {
		return strings.Contains(strings.ToLower(string(data)), "wsl")
	}

	return false
}

// OpenBrowser opens url in the default browser. Failure is not fatal for
// a device flow; the user can still visit the verification URI manually.
func OpenBrowser(url string) error {
	switch runtime.GOOS {
	case "linux":
		if isWSL() {
			// Use Windows default browser via cmd.exe start
			return exec.Command("cmd.exe", "/c", "start", url).Start()
		}

		for _, name := range []string{"xdg-open", "sensible-browser", "x-www-browser", "gnome-open", "kde-open"} {
			if _, err := exec.LookPath(name); err == nil {
				return exec.Command(name, url).Start()
			}
		}
		return fmt.Errorf("no browser launcher found")
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return fmt.Errorf("unsupported platform")
	}
}

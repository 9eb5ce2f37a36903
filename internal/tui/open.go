package tui

import (
	"fmt"
	"os/exec"
	"runtime"
)

// OpenURL opens url in the system browser without waiting for it to exit.
func OpenURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	go func() {
		_ = cmd.Wait() // reap; the browser's exit status is not interesting
	}()
	return nil
}

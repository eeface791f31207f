package main

import (
	"fmt"
	"os"

	"github.com/dkwon/relaychat/pkg/logging"
	"github.com/dkwon/relaychat/ui"
)

func main() {
	// Default to "info"; override with RELAYCHAT_LOG_LEVEL env var (debug, info, warn, error).
	level := "info"
	if v := os.Getenv("RELAYCHAT_LOG_LEVEL"); v != "" {
		level = v
	}
	format := "text"
	if v := os.Getenv("RELAYCHAT_LOG_FORMAT"); v != "" {
		format = v
	}
	if err := logging.Setup(logging.Options{
		Level:  level,
		Format: format,
		Output: os.Stdout,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging config: %v; falling back to defaults\n", err)
		_ = logging.Setup(logging.Options{Output: os.Stdout})
	}

	app := ui.NewApp()
	app.Run()
}
